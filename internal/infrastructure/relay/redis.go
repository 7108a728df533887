package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/hopper1357/VTT/internal/config"
	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultBuffer = 1024

// Publisher - часть redis.Client, нужная ретранслятору.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis пересылает примененные эффекты в канал Redis для внешних наблюдателей
// (логгеры партий, оверлеи трансляций). Рабочий цикл сессии не ждет сеть:
// Publish только кладет событие в очередь, отправляет Run.
type Redis struct {
	client  Publisher
	channel string
	queue   chan api.EffectEvent
	dropped atomic.Uint64
	log     *logrus.Entry
}

func New(client Publisher, channel string, buffer int) *Redis {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Redis{
		client:  client,
		channel: channel,
		queue:   make(chan api.EffectEvent, buffer),
		log:     logger.Component("relay").WithField("channel", channel),
	}
}

// Dial подключается к Redis и проверяет соединение.
func Dial(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// Publish не блокирует. При переполненной очереди событие теряется.
func (r *Redis) Publish(ev api.EffectEvent) {
	select {
	case r.queue <- ev:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.WithField("dropped", n).Warn("Relay queue is full, dropping effects")
		}
	}
}

// Dropped - сколько событий потеряно из-за переполнения.
func (r *Redis) Dropped() uint64 {
	return r.dropped.Load()
}

// Run отправляет события, пока не отменен ctx. Ошибки Redis не останавливают цикл.
func (r *Redis) Run(ctx context.Context) error {
	r.log.Info("Effect relay started")
	defer r.log.Info("Effect relay stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-r.queue:
			payload, err := json.Marshal(ev)
			if err != nil {
				r.log.WithError(err).Error("Failed to encode effect")
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				r.log.WithError(err).WithField("seq", ev.Seq).Warn("Error publishing to Redis")
			}
		}
	}
}
