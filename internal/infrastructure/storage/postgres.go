package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hopper1357/VTT/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresStore - сохранения в PostgreSQL. Снапшот лежит в JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres подключается по DSN и применяет миграции.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// goose работает через database/sql
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	if err := migrate(ctx, sqlDB, goose.DialectPostgres, "postgres"); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO saves (name, snapshot, saved_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET snapshot = EXCLUDED.snapshot, saved_at = EXCLUDED.saved_at`,
		name, data,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	if err := checkName(name); err != nil {
		return domain.Snapshot{}, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM saves WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Snapshot{}, saveNotFound(name)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load %s: %w", name, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode save %s: %w", name, err)
	}
	return snap, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, saved_at FROM saves ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	saves := []SaveInfo{}
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.Name, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		saves = append(saves, info)
	}
	return saves, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
