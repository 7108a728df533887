package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/config"
	"github.com/hopper1357/VTT/internal/domain"
	"github.com/hopper1357/VTT/internal/engine"
	"github.com/hopper1357/VTT/internal/infrastructure/discovery"
	"github.com/hopper1357/VTT/internal/infrastructure/relay"
	"github.com/hopper1357/VTT/internal/infrastructure/storage"
	"github.com/hopper1357/VTT/internal/server"
	"github.com/hopper1357/VTT/internal/session"
	"github.com/hopper1357/VTT/internal/version"
	"github.com/hopper1357/VTT/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const persistTimeout = 10 * time.Second

func init() {
	logger.Init()
}

func main() {
	// 1. Конфигурация: файл, затем окружение, затем флаги
	var configPath, addr string
	flag.StringVar(&configPath, "config", "vtt.yaml", "Path to YAML config (missing file = defaults)")
	flag.StringVar(&addr, "addr", "", "Listen address, overrides config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid configuration")
	}
	if addr != "" {
		cfg.Addr = addr
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	logger.Log.Info("Starting VTT session server...")
	logger.Log.Info(version.String())

	if err := run(cfg); err != nil {
		logger.Log.WithError(err).Fatal("Server stopped with error")
	}
	logger.Log.Info("Done.")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Хранилище сохранений
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	var opts []session.Option
	if store != nil {
		defer store.Close()
		opts = append(opts, session.WithStore(store))
		logger.Log.WithField("driver", cfg.Storage.Driver).Info("Save storage ready")
	}

	// 3. Ретрансляция эффектов в Redis
	var effects *relay.Redis
	if cfg.Redis.Addr != "" {
		rdb, err := relay.Dial(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		effects = relay.New(rdb, cfg.Redis.Channel, 0)
		opts = append(opts, session.WithSink(effects))
		logger.Log.WithField("redis", cfg.Redis.Addr).Info("Connected to Redis successfully.")
	}

	// 4. Сессия
	eng := engine.New(domain.NewState(cfg.Session.Ruleset))
	coord := session.New(session.Config{
		AutoGM:     cfg.Session.AutoGM,
		QueueSize:  cfg.Session.QueueSize,
		SendBuffer: cfg.Session.SendBuffer,
	}, eng, opts...)

	if name := cfg.Storage.Autoload; name != "" {
		if err := autoload(ctx, store, coord, name); err != nil {
			return err
		}
	}

	// 5. Все подсистемы живут до сигнала или первой ошибки
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(gctx) })
	g.Go(func() error { return server.New(coord, cfg.Addr).Run(gctx) })
	if effects != nil {
		g.Go(func() error { return effects.Run(gctx) })
	}
	if cfg.Discovery.Enabled {
		port, err := discovery.PortOf(cfg.Addr)
		if err != nil {
			return err
		}
		g.Go(func() error { return discovery.Advertise(gctx, cfg.Discovery.Instance, port) })
	}

	runErr := g.Wait()
	logger.Log.Info("Shutting down...")

	// Рабочий цикл остановлен, снимок консистентен
	if name := cfg.Storage.Autosave; name != "" && store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := store.Save(saveCtx, name, coord.Snapshot()); err != nil {
			logger.Log.WithError(err).WithField("save", name).Error("Autosave failed")
		} else {
			logger.Log.WithField("save", name).Info("Session autosaved")
		}
	}
	return runErr
}

// autoload восстанавливает сессию до старта. Отсутствующее сохранение - не ошибка:
// первый запуск с autoload=autosave просто начинается с пустой сессии.
func autoload(ctx context.Context, store storage.Store, coord *session.Coordinator, name string) error {
	loadCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	snap, err := store.Load(loadCtx, name)
	if errors.Is(err, apperr.NotFound) {
		logger.Log.WithField("save", name).Warn("Autoload save not found, starting empty")
		return nil
	}
	if err != nil {
		return err
	}
	if err := coord.Restore(snap); err != nil {
		return err
	}
	logger.Log.WithField("save", name).Infof("Session restored: %d maps, %d entities", len(snap.Maps), len(snap.Entities))
	return nil
}
