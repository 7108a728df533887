package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStore - сохранения во встроенной базе SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite открывает базу по пути и применяет миграции.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Один писатель: SQLite не любит параллельные транзакции
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saves (name, snapshot, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot, saved_at = excluded.saved_at`,
		name, string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	if err := checkName(name); err != nil {
		return domain.Snapshot{}, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM saves WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, saveNotFound(name)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode save %s: %w", name, err)
	}
	return snap, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, saved_at FROM saves ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	saves := []SaveInfo{}
	for rows.Next() {
		var info SaveInfo
		var savedAt int64
		if err := rows.Scan(&info.Name, &savedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		info.SavedAt = time.UnixMilli(savedAt)
		saves = append(saves, info)
	}
	return saves, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate применяет встроенные миграции goose для диалекта.
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	fsys, err := migrations(dir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
