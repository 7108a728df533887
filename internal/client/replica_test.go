package client

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"

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

var gm = &domain.User{ID: "gm-1", Username: "dm", Role: domain.RoleGM}

func canonical(t *testing.T) *engine.Engine {
	t.Helper()
	n := 0
	return engine.New(domain.NewState("dnd5e"), engine.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
}

func run(t *testing.T, e *engine.Engine, line string) string {
	t.Helper()
	res, err := e.Execute(engine.Request{Line: line, Actor: gm})
	require.NoError(t, err, line)
	require.NotEmpty(t, res.Effect, line)
	return res.Effect
}

func fullState(t *testing.T, e *engine.Engine, seq uint64) api.Envelope {
	t.Helper()
	state, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)
	env, err := api.NewEnvelope(api.TypeFullState, api.FullStatePayload{
		Session: api.SessionInfo{ClientID: "c-1", UserID: "u-alice", Username: "alice", Role: "PLAYER"},
		State:   state,
	})
	require.NoError(t, err)
	env.Seq = seq
	return env
}

func effect(t *testing.T, seq uint64, from, line string) api.Envelope {
	t.Helper()
	env, err := api.NewEnvelope(api.TypeCommand, line)
	require.NoError(t, err)
	env.Seq = seq
	env.From = from
	return env
}

func snapshotJSON(t *testing.T, e *engine.Engine) string {
	t.Helper()
	raw, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)
	return string(raw)
}

func TestReplicaFollowsServer(t *testing.T) {
	server := canonical(t)
	first := run(t, server, "map create cave 5 5")
	r := NewReplica()

	// До full_state эффекты не применяются
	text, err := r.Apply(effect(t, 1, "dm", first))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.False(t, r.Synced())

	text, err = r.Apply(fullState(t, server, 1))
	require.NoError(t, err)
	assert.Equal(t, "Joined as alice (PLAYER). 1 maps, 0 entities.", text)
	assert.Equal(t, uint64(1), r.Seq())
	assert.Equal(t, "alice", r.Session().Username)

	// Эффект уже вошел в снапшот
	text, err = r.Apply(effect(t, 1, "dm", first))
	require.NoError(t, err)
	assert.Empty(t, text)

	second := run(t, server, "object place cave 1 1 glyph=#")
	third := run(t, server, "create char Goblin")
	text, err = r.Apply(effect(t, 2, "dm", second))
	require.NoError(t, err)
	assert.Equal(t, "[dm] "+second, text)
	_, err = r.Apply(effect(t, 3, "dm", third))
	require.NoError(t, err)

	assert.Equal(t, uint64(3), r.Seq())
	assert.JSONEq(t, snapshotJSON(t, server), snapshotJSON(t, r.Engine()))
}

func TestReplicaResyncReplacesState(t *testing.T) {
	server := canonical(t)
	run(t, server, "map create cave 5 5")
	r := NewReplica()
	_, err := r.Apply(fullState(t, server, 1))
	require.NoError(t, err)

	other := canonical(t)
	run(t, other, "map create crypt 3 3")
	run(t, other, "map create tower 2 2")
	text, err := r.Apply(fullState(t, other, 7))
	require.NoError(t, err)
	assert.Equal(t, "State resynchronized: 2 maps, 0 entities.", text)
	assert.Equal(t, uint64(7), r.Seq())
	assert.JSONEq(t, snapshotJSON(t, other), snapshotJSON(t, r.Engine()))
}

func TestReplicaRejectsBrokenEffect(t *testing.T) {
	server := canonical(t)
	r := NewReplica()
	_, err := r.Apply(fullState(t, server, 0))
	require.NoError(t, err)

	_, err = r.Apply(effect(t, 1, "dm", "object move nothing cave 1 1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiverged)
	assert.Equal(t, uint64(0), r.Seq(), "seq does not advance on failure")
	assert.False(t, r.Synced())

	// После расхождения эффекты не применяются до нового full_state
	run(t, server, "map create cave 3 3")
	text, err := r.Apply(effect(t, 2, "dm", "map create cave 3 3"))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.False(t, r.IsLocal("map list"))

	_, err = r.Apply(fullState(t, server, 2))
	require.NoError(t, err)
	assert.True(t, r.Synced())
	assert.JSONEq(t, snapshotJSON(t, server), snapshotJSON(t, r.Engine()))
}

func TestReplicaDisplayMessages(t *testing.T) {
	r := NewReplica()

	chat, err := api.NewEnvelope(api.TypeChat, "bob joined as PLAYER.")
	require.NoError(t, err)
	text, err := r.Apply(chat)
	require.NoError(t, err)
	assert.Equal(t, "bob joined as PLAYER.", text)

	fail, err := api.NewEnvelope(api.TypeError, api.ErrorPayload{Code: "UNAUTHORIZED", Message: "only the GM can run create_map commands"})
	require.NoError(t, err)
	text, err = r.Apply(fail)
	require.NoError(t, err)
	assert.Equal(t, "Error [UNAUTHORIZED]: only the GM can run create_map commands", text)

	_, err = r.Apply(api.Envelope{Type: "telepathy"})
	assert.Error(t, err)
}

func TestReplicaLocalReads(t *testing.T) {
	server := canonical(t)
	run(t, server, "map create cave 3 3")
	r := NewReplica()

	assert.False(t, r.IsLocal("map list"), "nothing to read before sync")

	_, err := r.Apply(fullState(t, server, 1))
	require.NoError(t, err)

	assert.True(t, r.IsLocal("map list"))
	assert.True(t, r.IsLocal("fov cave 1 1 2"))
	assert.False(t, r.IsLocal("users"), "the user list lives on the server")
	assert.False(t, r.IsLocal("save slot1"))
	assert.False(t, r.IsLocal("object place cave 1 1"))
	assert.False(t, r.IsLocal("nonsense"))

	text, err := r.Local("map list")
	require.NoError(t, err)
	assert.Contains(t, text, "* cave 3x3 square, 0 objects")

	_, err = r.Local("map show nowhere")
	assert.Error(t, err)
}
