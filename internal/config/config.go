package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Драйверы хранилища сохранений
const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config - параметры запуска сервера.
// Порядок: значения по умолчанию -> YAML-файл -> переменные окружения.
type Config struct {
	Addr      string `yaml:"addr" env:"VTT_ADDR"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	Session   SessionConfig   `yaml:"session"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

type SessionConfig struct {
	AutoGM     bool   `yaml:"auto_gm" env:"VTT_AUTO_GM"`
	QueueSize  int    `yaml:"queue_size" env:"VTT_QUEUE_SIZE"`
	SendBuffer int    `yaml:"send_buffer" env:"VTT_SEND_BUFFER"`
	Ruleset    string `yaml:"ruleset" env:"VTT_RULESET"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"VTT_STORAGE_DRIVER"`
	Dir    string `yaml:"dir" env:"VTT_STORAGE_DIR"`
	DSN    string `yaml:"dsn" env:"VTT_STORAGE_DSN"`

	// Autosave - имя сохранения при остановке. Пусто - не сохранять.
	Autosave string `yaml:"autosave" env:"VTT_AUTOSAVE"`
	// Autoload - имя сохранения, загружаемого при старте.
	Autoload string `yaml:"autoload" env:"VTT_AUTOLOAD"`
}

// RedisConfig - ретрансляция эффектов внешним наблюдателям. Пустой Addr - выключено.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"VTT_REDIS_ADDR"`
	Password string `yaml:"password" env:"VTT_REDIS_PASSWORD"`
	Channel  string `yaml:"channel" env:"VTT_REDIS_CHANNEL"`
}

// DiscoveryConfig - объявление сервера в локальной сети (mDNS).
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"VTT_DISCOVERY"`
	Instance string `yaml:"instance" env:"VTT_DISCOVERY_INSTANCE"`
}

func Defaults() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Session: SessionConfig{
			AutoGM:     true,
			QueueSize:  256,
			SendBuffer: 256,
			Ruleset:    "dnd5e",
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Dir:    "saves",
		},
		Redis: RedisConfig{
			Channel: "vtt:effects",
		},
		Discovery: DiscoveryConfig{
			Instance: "VTT",
		},
	}
}

// Load читает конфиг. path может быть пустым; отсутствующий файл не ошибка.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// Переменная не задана - поле остается как есть
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Session.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("session.queue_size must be positive, got %d", c.Session.QueueSize))
	}
	if c.Session.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("session.send_buffer must be positive, got %d", c.Session.SendBuffer))
	}

	switch c.Storage.Driver {
	case DriverNone:
	case DriverFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file driver"))
		}
	case DriverSQLite, DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for the %s driver", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q (none, file, sqlite, postgres)", c.Storage.Driver))
	}

	if (c.Storage.Autosave != "" || c.Storage.Autoload != "") && c.Storage.Driver == DriverNone {
		errs = append(errs, errors.New("storage.autosave and storage.autoload need a storage driver"))
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		errs = append(errs, errors.New("redis.channel is required when redis.addr is set"))
	}
	return errors.Join(errs...)
}
