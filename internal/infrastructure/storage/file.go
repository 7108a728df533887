package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hopper1357/VTT/internal/domain"
)

const fileExt = ".json"

// FileStore хранит каждое сохранение отдельным JSON-файлом в каталоге.
type FileStore struct {
	dir string
}

// NewFileStore создает каталог, если его нет.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save пишет во временный файл и переименовывает: чтение никогда не видит половину снапшота.
func (s *FileStore) Save(_ context.Context, name string, snap domain.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("rename save %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, name string) (domain.Snapshot, error) {
	if err := checkName(name); err != nil {
		return domain.Snapshot{}, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Snapshot{}, saveNotFound(name)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read save %s: %w", name, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode save %s: %w", name, err)
	}
	return snap, nil
}

// List возвращает сохранения по имени. Временные и чужие файлы пропускаются.
func (s *FileStore) List(_ context.Context) ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read save dir %s: %w", s.dir, err)
	}

	saves := []SaveInfo{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // файл удалили между ReadDir и Info
		}
		saves = append(saves, SaveInfo{
			Name:    strings.TrimSuffix(name, fileExt),
			SavedAt: info.ModTime(),
		})
	}
	sort.Slice(saves, func(i, j int) bool { return saves[i].Name < saves[j].Name })
	return saves, nil
}

func (s *FileStore) Close() error { return nil }
