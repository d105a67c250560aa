// Package backup stores module backups as JSON files.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/artpar/carehub/core/registry"
	"github.com/artpar/carehub/ports"
	"github.com/rs/zerolog"
)

const fileExt = ".json"

// ErrInvalidName is returned for backup names that escape the store directory.
var ErrInvalidName = errors.New("invalid backup name")

// FileStore keeps one JSON file per backup in a directory.
type FileStore struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Save writes b as <module>-<timestamp>.json and returns that name.
func (s *FileStore) Save(ctx context.Context, b registry.Backup) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.Descriptor.ID == "" {
		return "", fmt.Errorf("save backup: descriptor id is required")
	}

	ts, err := time.Parse(time.RFC3339, b.Timestamp)
	if err != nil {
		ts = s.now()
	}
	name := fmt.Sprintf("%s-%s%s", b.Descriptor.ID, ts.UTC().Format("20060102T150405Z"), fileExt)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode backup: %w", err)
	}

	// Write to a temp file first so readers never see a partial backup.
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write backup: %w", err)
	}

	s.logger.Info().
		Str("module", b.Descriptor.ID).
		Str("file", name).
		Msg("backup saved")
	return name, nil
}

// Load reads the backup stored under name.
func (s *FileStore) Load(ctx context.Context, name string) (registry.Backup, error) {
	if err := ctx.Err(); err != nil {
		return registry.Backup{}, err
	}
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, fileExt) {
		return registry.Backup{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return ReadFile(filepath.Join(s.dir, name))
}

// List returns the stored backup names, newest first.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	type entry struct {
		name string
		mod  time.Time
	}
	var files []entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, entry{e.Name(), info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.After(files[j].mod)
		}
		return files[i].name > files[j].name
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// ReadFile decodes a backup file from any path.
func ReadFile(path string) (registry.Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Backup{}, fmt.Errorf("read backup %s: %w", path, err)
	}

	var b registry.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return registry.Backup{}, fmt.Errorf("parse backup %s: %w", path, err)
	}
	return b, nil
}

var _ ports.BackupStore = (*FileStore)(nil)
