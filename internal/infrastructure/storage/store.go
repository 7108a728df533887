package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/config"
	"github.com/hopper1357/VTT/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

// SaveInfo - запись в списке сохранений.
type SaveInfo struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
}

// Store - хранилище именованных снапшотов сессии.
type Store interface {
	Save(ctx context.Context, name string, snap domain.Snapshot) error
	Load(ctx context.Context, name string) (domain.Snapshot, error)
	List(ctx context.Context) ([]SaveInfo, error)
	Close() error
}

// Open создает хранилище по конфигу. Для драйвера none возвращает nil, nil.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverFile:
		return NewFileStore(cfg.Dir)
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// checkName - имя сохранения становится именем файла, поэтому правила общие для всех драйверов.
func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Invalid("save name is empty")
	}
	if strings.ContainsAny(name, `/\:`) || strings.HasPrefix(name, ".") {
		return apperr.Invalid("save name '%s' must not contain path separators", name)
	}
	return nil
}

func saveNotFound(name string) error {
	return apperr.New(apperr.CodeNotFound, "save '%s' not found", name).WithMetadata("save", name)
}

func migrations(dialect string) (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", dialect, err)
	}
	return sub, nil
}
