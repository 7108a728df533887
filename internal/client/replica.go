package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/sirupsen/logrus"
)

// ErrDiverged - эффект не применился, реплика разошлась с сервером.
// Восстановление только через новое подключение (свежий full_state).
var ErrDiverged = errors.New("local state diverged from the server, reconnect to resynchronize")

// Replica - локальная копия состояния сессии.
// Получает full_state, затем проигрывает эффекты в порядке seq.
// Не потокобезопасна: с ней работает один цикл консоли.
type Replica struct {
	engine  *engine.Engine
	seq     uint64
	session api.SessionInfo
	synced  bool
	log     *logrus.Entry
}

func NewReplica() *Replica {
	return &Replica{
		engine: engine.New(domain.NewState("")),
		log:    logger.Component("replica"),
	}
}

func (r *Replica) Engine() *engine.Engine { return r.engine }
func (r *Replica) Seq() uint64            { return r.seq }
func (r *Replica) Session() api.SessionInfo {
	return r.session
}

// Synced - получен ли хотя бы один full_state.
func (r *Replica) Synced() bool { return r.synced }

// Apply применяет конверт сервера и возвращает строку для показа.
// Пустая строка - показывать нечего.
func (r *Replica) Apply(env api.Envelope) (string, error) {
	switch env.Type {
	case api.TypeFullState:
		return r.applyFullState(env)

	case api.TypeCommand:
		return r.applyEffect(env)

	case api.TypeChat, api.TypeOutput:
		return env.Text()

	case api.TypeError:
		var p api.ErrorPayload
		if err := env.Decode(&p); err != nil {
			return "", err
		}
		return fmt.Sprintf("Error [%s]: %s", p.Code, p.Message), nil
	}
	return "", fmt.Errorf("unexpected message type %q", env.Type)
}

func (r *Replica) applyFullState(env api.Envelope) (string, error) {
	var p api.FullStatePayload
	if err := env.Decode(&p); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(p.State, &snap); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	if err := r.engine.Restore(snap); err != nil {
		return "", fmt.Errorf("restore snapshot: %w", err)
	}

	first := !r.synced
	r.seq = env.Seq
	r.session = p.Session
	r.synced = true
	r.log.WithField("seq", env.Seq).Debug("State synchronized")

	if first {
		return fmt.Sprintf("Joined as %s (%s). %d maps, %d entities.",
			p.Session.Username, p.Session.Role, len(snap.Maps), len(snap.Entities)), nil
	}
	return fmt.Sprintf("State resynchronized: %d maps, %d entities.", len(snap.Maps), len(snap.Entities)), nil
}

func (r *Replica) applyEffect(env api.Envelope) (string, error) {
	effect, err := env.Text()
	if err != nil {
		return "", err
	}
	// Дубликат или эффект, уже вошедший в снапшот
	if !r.synced || env.Seq <= r.seq {
		r.log.WithFields(logrus.Fields{"seq": env.Seq, "have": r.seq}).Debug("Skipping stale effect")
		return "", nil
	}
	if err := r.engine.Replay(effect); err != nil {
		r.synced = false
		r.log.WithError(err).WithField("seq", env.Seq).Error("Effect replay failed")
		return "", fmt.Errorf("%w: effect #%d %q: %v", ErrDiverged, env.Seq, effect, err)
	}
	r.seq = env.Seq
	if env.From == "" {
		return effect, nil
	}
	return fmt.Sprintf("[%s] %s", env.From, effect), nil
}

// IsLocal - выполняется ли строка на реплике без обращения к серверу.
func (r *Replica) IsLocal(line string) bool {
	return r.synced && r.engine.IsLocal(line)
}

// Local выполняет команду чтения на реплике.
func (r *Replica) Local(line string) (string, error) {
	actor := &domain.User{
		ID:       r.session.UserID,
		Username: r.session.Username,
		Role:     domain.Role(r.session.Role),
	}
	res, err := r.engine.Execute(engine.Request{Line: line, Actor: actor})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}
