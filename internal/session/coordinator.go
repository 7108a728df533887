// Package session держит каноническое состояние сессии и рассылает
// изменения репликам. Все мутации выполняет один рабочий цикл (Run).
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/internal/network"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/hopper1357/VTT/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ErrStopped - рабочий цикл уже остановлен.
var ErrStopped = errors.New("session coordinator stopped")

// Config - параметры сессии.
type Config struct {
	AutoGM     bool // Первый вошедший при пустом месте ГМ становится ГМ
	QueueSize  int  // Очередь событий рабочего цикла
	SendBuffer int  // Исходящая очередь каждого клиента
}

// SnapshotStore - хранилище сохранений (save/load).
type SnapshotStore interface {
	Save(ctx context.Context, name string, snap domain.Snapshot) error
	Load(ctx context.Context, name string) (domain.Snapshot, error)
}

// EffectSink получает каждый примененный эффект. Publish не должен блокировать.
type EffectSink interface {
	Publish(ev api.EffectEvent)
}

type Option func(*Coordinator)

func WithStore(s SnapshotStore) Option {
	return func(c *Coordinator) { c.store = s }
}

func WithSink(s EffectSink) Option {
	return func(c *Coordinator) { c.sink = s }
}

// Coordinator - владелец канонического состояния.
type Coordinator struct {
	cfg    Config
	engine *engine.Engine
	users  *domain.UserRegistry
	hub    *network.Broadcaster
	store  SnapshotStore
	sink   EffectSink
	log    *logrus.Entry

	events chan event
	done   chan struct{}
	jobs   sync.WaitGroup

	// Дальше - только для рабочего цикла
	runCtx context.Context
	conns  map[string]*Conn
	seq    uint64
}

func New(cfg Config, eng *engine.Engine, opts ...Option) *Coordinator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	c := &Coordinator{
		cfg:    cfg,
		engine: eng,
		users:  domain.NewUserRegistry(),
		hub:    network.NewBroadcaster(cfg.SendBuffer),
		log:    logger.Component("session"),
		events: make(chan event, cfg.QueueSize),
		done:   make(chan struct{}),
		conns:  make(map[string]*Conn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run - рабочий цикл. Возвращается после отмены ctx; все подключения
// при этом закрываются.
func (c *Coordinator) Run(ctx context.Context) error {
	c.runCtx = ctx
	c.log.WithField("auto_gm", c.cfg.AutoGM).Info("Session worker started")

	defer func() {
		close(c.done)
		c.jobs.Wait()
		for _, conn := range c.conns {
			conn.setState(StateDisconnected)
		}
		c.hub.Close()
		c.log.Info("Session worker stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Connect регистрирует участника. Когда Connect вернул Conn, первым
// сообщением в его очереди уже лежит full_state.
func (c *Coordinator) Connect(ctx context.Context, req JoinRequest) (*Conn, error) {
	conn := newConn(utils.GenerateID())
	reply := make(chan error, 1)
	if err := c.submit(ctx, event{kind: evConnect, conn: conn, join: req, reply: reply}); err != nil {
		return nil, err
	}

	select {
	case err := <-reply:
		if err != nil {
			conn.setState(StateDisconnected)
			return nil, err
		}
		return conn, nil
	case <-ctx.Done():
		// Рабочий цикл может успеть зарегистрировать клиента: убираем его
		go func() { _ = c.Disconnect(context.Background(), conn.ID) }()
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrStopped
	}
}

// Dispatch ставит входящее сообщение клиента в очередь. Результат клиент
// получит через свою исходящую очередь.
func (c *Coordinator) Dispatch(ctx context.Context, clientID string, raw []byte) error {
	return c.submit(ctx, event{kind: evMessage, clientID: clientID, raw: raw})
}

// Disconnect отключает клиента. Повторный вызов ничего не делает.
func (c *Coordinator) Disconnect(ctx context.Context, clientID string) error {
	return c.submit(ctx, event{kind: evDisconnect, clientID: clientID, reason: "client left"})
}

// Query выполняет fn внутри рабочего цикла и возвращает его результат.
// Результат идет через буферизованный канал: если ctx отменен раньше,
// запоздавший fn ничего не пишет в память вызывающего.
func Query[T any](ctx context.Context, c *Coordinator, fn func(View) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	results := make(chan result, 1)
	err := c.Inspect(ctx, func(v View) {
		value, err := fn(v)
		results <- result{value: value, err: err}
	})
	if err != nil {
		var zero T
		return zero, err
	}
	r := <-results
	return r.value, r.err
}

// Inspect выполняет fn внутри рабочего цикла и ждет завершения.
// При отмене ctx fn может выполниться уже после возврата; читать
// состояние за пределы fn лучше через Query.
func (c *Coordinator) Inspect(ctx context.Context, fn func(View)) error {
	finished := make(chan struct{})
	if err := c.submit(ctx, event{kind: evInspect, inspect: fn, finished: finished}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// Restore заменяет состояние до запуска Run (автозагрузка).
func (c *Coordinator) Restore(snap domain.Snapshot) error {
	return c.engine.Restore(snap)
}

// Snapshot снимает состояние. Вызывать до Run или после его завершения.
func (c *Coordinator) Snapshot() domain.Snapshot {
	return c.engine.Snapshot()
}

func (c *Coordinator) submit(ctx context.Context, ev event) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}
