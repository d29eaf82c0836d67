// Package jsonfile keeps the ledger dataset in a single JSON document:
//
//	{"<user id>": {"name": "...", "expenses": {"<category>": [record, ...]}, "incomes": {...}}}
//
// Every save rewrites the whole file through a temporary file and a rename,
// so readers never observe a partially written document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fintrack/internal/core"
)

// Repository implements ledger.Repository on a JSON file.
type Repository struct {
	path string
}

func New(path string) *Repository {
	return &Repository{path: path}
}

// Path returns the file backing the repository.
func (r *Repository) Path() string {
	return r.path
}

// Load reads the document. A missing or empty file is an empty dataset.
func (r *Repository) Load(_ context.Context) (map[string]core.User, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]core.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return map[string]core.User{}, nil
	}
	users := map[string]core.User{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	for id, u := range users {
		u.ID = id
		users[id] = u
	}
	return users, nil
}

// Save writes users to a temporary file next to the target, syncs it and
// renames it over the target.
func (r *Repository) Save(ctx context.Context, users map[string]core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
