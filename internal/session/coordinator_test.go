package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

// memStore - хранилище в памяти.
type memStore struct {
	mu    sync.Mutex
	saves map[string]domain.Snapshot
}

func newMemStore() *memStore {
	return &memStore{saves: make(map[string]domain.Snapshot)}
}

func (s *memStore) Save(_ context.Context, name string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves[name] = snap
	return nil
}

func (s *memStore) Load(_ context.Context, name string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.saves[name]
	if !ok {
		return domain.Snapshot{}, apperr.New(apperr.CodeNotFound, "save '%s' not found", name)
	}
	return snap, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []api.EffectEvent
}

func (s *recordingSink) Publish(ev api.EffectEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Command
	}
	return out
}

type fixture struct {
	coord *Coordinator
	store *memStore
	sink  *recordingSink
}

func start(t *testing.T, cfg Config) fixture {
	t.Helper()
	f := fixture{store: newMemStore(), sink: &recordingSink{}}
	f.coord = New(cfg, engine.New(domain.NewState("dnd5e")), WithStore(f.store), WithSink(f.sink))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = f.coord.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return f
}

func join(t *testing.T, f fixture, name, role string) *Conn {
	t.Helper()
	conn, err := f.coord.Connect(context.Background(), JoinRequest{Username: name, Role: role})
	require.NoError(t, err)
	return conn
}

func next(t *testing.T, conn *Conn) api.Envelope {
	t.Helper()
	select {
	case env, ok := <-conn.Outbound():
		require.True(t, ok, "outbound closed for %s", conn.User.Username)
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("no message for %s", conn.User.Username)
	}
	return api.Envelope{}
}

func nextOf(t *testing.T, conn *Conn, want api.MessageType) api.Envelope {
	t.Helper()
	env := next(t, conn)
	require.Equal(t, want, env.Type, "payload: %s", env.Payload)
	return env
}

func text(t *testing.T, env api.Envelope) string {
	t.Helper()
	s, err := env.Text()
	require.NoError(t, err)
	return s
}

func send(t *testing.T, f fixture, conn *Conn, typ api.MessageType, line string) {
	t.Helper()
	env, err := api.NewEnvelope(typ, line)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, f.coord.Dispatch(context.Background(), conn.ID, raw))
}

func command(t *testing.T, f fixture, conn *Conn, line string) {
	t.Helper()
	send(t, f, conn, api.TypeCommand, line)
}

func fullState(t *testing.T, env api.Envelope) (api.FullStatePayload, domain.Snapshot) {
	t.Helper()
	var p api.FullStatePayload
	require.NoError(t, env.Decode(&p))
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(p.State, &snap))
	return p, snap
}

func TestJoinSendsFullStateAndNotifiesOthers(t *testing.T) {
	f := start(t, Config{AutoGM: true})

	gm := join(t, f, "dm", "")
	assert.Equal(t, StateActive, gm.State())
	assert.Equal(t, domain.RoleGM, gm.User.Role, "first connection is promoted")

	p, _ := fullState(t, nextOf(t, gm, api.TypeFullState))
	assert.Equal(t, gm.ID, p.Session.ClientID)
	assert.Equal(t, "GM", p.Session.Role)

	alice := join(t, f, "alice", "PLAYER")
	assert.Equal(t, domain.RolePlayer, alice.User.Role)
	nextOf(t, alice, api.TypeFullState)

	assert.Equal(t, "alice joined as PLAYER.", text(t, nextOf(t, gm, api.TypeChat)))
}

func TestJoinRejections(t *testing.T) {
	f := start(t, Config{AutoGM: false})

	join(t, f, "dm", "GM")

	_, err := f.coord.Connect(context.Background(), JoinRequest{Username: "usurper", Role: "GM"})
	assert.ErrorIs(t, err, apperr.Unauthorized)

	_, err = f.coord.Connect(context.Background(), JoinRequest{Username: "  "})
	assert.ErrorIs(t, err, apperr.InvalidArgument)

	_, err = f.coord.Connect(context.Background(), JoinRequest{Username: "x", Role: "wizard"})
	assert.ErrorIs(t, err, apperr.InvalidArgument)

	_, err = f.coord.Connect(context.Background(), JoinRequest{Username: "DM"})
	assert.ErrorIs(t, err, apperr.DuplicateName)
}

func TestWithoutAutoGMPlayersStayPlayers(t *testing.T) {
	f := start(t, Config{AutoGM: false})
	p := join(t, f, "alice", "")
	assert.Equal(t, domain.RolePlayer, p.User.Role)
}

func TestEffectIsBroadcastToEveryoneWithSeq(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	alice := join(t, f, "alice", "")
	nextOf(t, gm, api.TypeFullState)
	nextOf(t, gm, api.TypeChat)
	nextOf(t, alice, api.TypeFullState)

	command(t, f, gm, "map create cave 5 5")
	command(t, f, gm, "object place cave 1 1 id=rock")

	for _, conn := range []*Conn{gm, alice} {
		first := nextOf(t, conn, api.TypeCommand)
		assert.Equal(t, uint64(1), first.Seq)
		assert.Equal(t, "dm", first.From)
		assert.Equal(t, "map create cave 5 5 grid=square", text(t, first))

		if conn == gm {
			assert.Contains(t, text(t, nextOf(t, gm, api.TypeOutput)), "Created square map 'cave'")
		}

		second := nextOf(t, conn, api.TypeCommand)
		assert.Equal(t, uint64(2), second.Seq)
		assert.Contains(t, text(t, second), "id=rock")
	}

	// Inspect выполняется после обоих эффектов: sink к этому моменту заполнен
	require.NoError(t, f.coord.Inspect(context.Background(), func(View) {}))
	assert.Equal(t, []string{"map create cave 5 5 grid=square", "object place cave 1 1 id=rock"}, f.sink.commands())
}

func TestRejectionGoesOnlyToSender(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	alice := join(t, f, "alice", "")
	nextOf(t, gm, api.TypeFullState)
	nextOf(t, gm, api.TypeChat)
	nextOf(t, alice, api.TypeFullState)

	command(t, f, alice, "map create cave 5 5")

	var perr api.ErrorPayload
	require.NoError(t, nextOf(t, alice, api.TypeError).Decode(&perr))
	assert.Equal(t, string(apperr.CodeUnauthorized), perr.Code)

	// У ГМ следующим идет его собственный эффект: отказ ему не приходил
	command(t, f, gm, "map create cave 5 5")
	env := nextOf(t, gm, api.TypeCommand)
	assert.Equal(t, uint64(1), env.Seq)

	err := f.coord.Inspect(context.Background(), func(v View) {
		assert.Equal(t, []string{"cave"}, v.Engine.State().Maps.MapNames())
	})
	require.NoError(t, err)
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	nextOf(t, gm, api.TypeFullState)

	require.NoError(t, f.coord.Dispatch(context.Background(), gm.ID, []byte("{not json")))
	var perr api.ErrorPayload
	require.NoError(t, nextOf(t, gm, api.TypeError).Decode(&perr))
	assert.Equal(t, string(apperr.CodeMalformedMessage), perr.Code)
	assert.NotContains(t, perr.Message, "\n")

	send(t, f, gm, api.TypeFullState, "forged")
	require.NoError(t, nextOf(t, gm, api.TypeError).Decode(&perr))
	assert.Equal(t, string(apperr.CodeMalformedMessage), perr.Code)

	assert.Equal(t, StateActive, gm.State())
	command(t, f, gm, "map create cave 2 2")
	nextOf(t, gm, api.TypeCommand)
}

func TestReadCommandAnswersSenderOnly(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	alice := join(t, f, "alice", "")
	nextOf(t, gm, api.TypeFullState)
	nextOf(t, gm, api.TypeChat)
	nextOf(t, alice, api.TypeFullState)

	command(t, f, alice, "users")
	out := text(t, nextOf(t, alice, api.TypeOutput))
	assert.Contains(t, out, "Connected users: 2")
	assert.Contains(t, out, "dm (GM)")

	command(t, f, gm, "whoami")
	assert.Contains(t, text(t, nextOf(t, gm, api.TypeOutput)), "You are dm (GM)")
}

func TestChatIsRelayed(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	alice := join(t, f, "alice", "")
	nextOf(t, gm, api.TypeFullState)
	nextOf(t, gm, api.TypeChat)
	nextOf(t, alice, api.TypeFullState)

	send(t, f, alice, api.TypeChat, "hello there")
	for _, conn := range []*Conn{gm, alice} {
		env := nextOf(t, conn, api.TypeChat)
		assert.Equal(t, "alice: hello there", text(t, env))
		assert.Equal(t, "alice", env.From)
	}
}

func TestDisconnectIsIdempotentAndVacatesGM(t *testing.T) {
	f := start(t, Config{AutoGM: false})
	gm := join(t, f, "dm", "GM")
	alice := join(t, f, "alice", "")
	nextOf(t, alice, api.TypeFullState)

	require.NoError(t, f.coord.Disconnect(context.Background(), gm.ID))
	require.NoError(t, f.coord.Disconnect(context.Background(), gm.ID))

	assert.Equal(t, "dm left. The GM seat is vacant.", text(t, nextOf(t, alice, api.TypeChat)))
	assert.Equal(t, StateDisconnected, gm.State())
	assert.Equal(t, domain.RolePlayer, alice.User.Role, "no automatic promotion")

	err := f.coord.Inspect(context.Background(), func(v View) {
		assert.Equal(t, 1, v.Clients)
		assert.False(t, v.Users.HasGM())
	})
	require.NoError(t, err)

	// Место свободно: новый ГМ может войти явно
	newGM := join(t, f, "dm2", "GM")
	assert.True(t, newGM.User.IsGM())
}

func TestSaveAndLoadResyncEveryone(t *testing.T) {
	f := start(t, Config{AutoGM: true})
	gm := join(t, f, "dm", "")
	alice := join(t, f, "alice", "")
	nextOf(t, gm, api.TypeFullState)
	nextOf(t, gm, api.TypeChat)
	nextOf(t, alice, api.TypeFullState)

	command(t, f, gm, "map create cave 5 5")
	nextOf(t, gm, api.TypeCommand)
	nextOf(t, gm, api.TypeOutput)
	nextOf(t, alice, api.TypeCommand)

	command(t, f, gm, "save checkpoint")
	assert.Equal(t, "Saved session as 'checkpoint'.", text(t, nextOf(t, gm, api.TypeOutput)))

	command(t, f, gm, "map create crypt 3 3")
	nextOf(t, gm, api.TypeCommand)
	nextOf(t, gm, api.TypeOutput)
	nextOf(t, alice, api.TypeCommand)

	command(t, f, gm, "load checkpoint")
	for _, conn := range []*Conn{gm, alice} {
		env := nextOf(t, conn, api.TypeFullState)
		assert.Equal(t, uint64(3), env.Seq)
		p, snap := fullState(t, env)
		assert.Equal(t, conn.ID, p.Session.ClientID)
		require.Len(t, snap.Maps, 1)
		assert.Equal(t, "cave", snap.Maps[0].Name)
		assert.Equal(t, "Session 'checkpoint' loaded.", text(t, nextOf(t, conn, api.TypeChat)))
	}

	command(t, f, gm, "load missing")
	var perr api.ErrorPayload
	require.NoError(t, nextOf(t, gm, api.TypeError).Decode(&perr))
	assert.Equal(t, string(apperr.CodeNotFound), perr.Code)
}

func TestSlowClientIsDropped(t *testing.T) {
	f := start(t, Config{AutoGM: true, SendBuffer: 3})
	gm := join(t, f, "dm", "")
	nextOf(t, gm, api.TypeFullState)
	slow := join(t, f, "slow", "")
	nextOf(t, gm, api.TypeChat)

	for i := 0; i < 3; i++ {
		command(t, f, gm, fmt.Sprintf("map create m%d 2 2", i))
		nextOf(t, gm, api.TypeCommand)
		if i == 2 {
			assert.Equal(t, "slow left.", text(t, nextOf(t, gm, api.TypeChat)))
		}
		nextOf(t, gm, api.TypeOutput)
	}

	// Очередь медленного клиента: full_state и два эффекта, потом закрытие
	nextOf(t, slow, api.TypeFullState)
	nextOf(t, slow, api.TypeCommand)
	nextOf(t, slow, api.TypeCommand)
	_, open := <-slow.Outbound()
	assert.False(t, open)
	assert.Equal(t, StateDisconnected, slow.State())
}

func TestMessagesAfterStopFail(t *testing.T) {
	coord := New(Config{}, engine.New(domain.NewState("")))
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = coord.Run(ctx)
	}()

	conn, err := coord.Connect(context.Background(), JoinRequest{Username: "dm"})
	require.NoError(t, err)

	cancel()
	<-stopped

	_, open := <-conn.Outbound()
	assert.True(t, open, "full_state is still buffered")
	_, open = <-conn.Outbound()
	assert.False(t, open)

	assert.ErrorIs(t, coord.Dispatch(context.Background(), conn.ID, []byte(`{}`)), ErrStopped)
}

func TestQueryAfterCancelledRequest(t *testing.T) {
	coord := New(Config{AutoGM: true}, engine.New(domain.NewState("dnd5e")))

	// Рабочий цикл еще не запущен: запрос уходит в очередь, ответа не дождаться
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Query(ctx, coord, func(v View) (int, error) {
		return len(v.Engine.State().Maps.MapNames()), nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	runCtx, stop := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = coord.Run(runCtx)
	}()
	t.Cleanup(func() {
		stop()
		<-stopped
	})

	// Запоздавший запрос не блокирует цикл
	seq, err := Query(context.Background(), coord, func(v View) (uint64, error) {
		return v.Seq, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seq)

	_, err = Query(context.Background(), coord, func(v View) (string, error) {
		return "", apperr.MapNotFound("nowhere")
	})
	assert.ErrorIs(t, err, apperr.NotFound)
}
