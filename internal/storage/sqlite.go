// Package storage keeps the ledger dataset in SQLite. Schema changes are
// applied with embedded golang-migrate migrations when the repository opens.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements ledger.Repository on a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := Migrate(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if schema.Applied {
		slog.Info("SQLite schema migrated", "path", dbPath, "version", schema.Version)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads every user with categories and records in their stored order.
func (r *SQLiteRepository) Load(ctx context.Context) (map[string]core.User, error) {
	users := map[string]core.User{}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM users`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[id] = core.NewUser(id, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT user_id, kind, name FROM categories ORDER BY user_id, kind, position`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	for rows.Next() {
		var userID, kind, name string
		if err := rows.Scan(&userID, &kind, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan category: %w", err)
		}
		u, ok := users[userID]
		if !ok {
			continue
		}
		if l := u.Ledger(core.Kind(kind)); l != nil {
			l.Ensure(name)
		}
		users[userID] = u
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, user_id, kind, category, title, amount, date FROM records ORDER BY user_id, kind, category, position`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec                core.Record
			userID, kind       string
			amount, dateString string
		)
		if err := rows.Scan(&rec.ID, &userID, &kind, &rec.Category, &rec.Title, &amount, &dateString); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("record %s amount %q: %w", rec.ID, amount, err)
		}
		if err := rec.Date.UnmarshalJSON([]byte(`"` + dateString + `"`)); err != nil {
			return nil, fmt.Errorf("record %s date: %w", rec.ID, err)
		}
		u, ok := users[userID]
		if !ok {
			continue
		}
		l := u.Ledger(core.Kind(kind))
		if l == nil {
			continue
		}
		l.Ensure(rec.Category)
		if err := l.Append(rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		users[userID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return users, nil
}

// Save replaces the stored dataset with users inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, users map[string]core.User) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.ErrorContext(ctx, "Failed to roll back save", "error", rbErr)
			}
		}
	}()

	for _, stmt := range []string{`DELETE FROM records`, `DELETE FROM categories`, `DELETE FROM users`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear tables: %w", err)
		}
	}

	insertUser, err := tx.PrepareContext(ctx, `INSERT INTO users (id, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare user insert: %w", err)
	}
	defer insertUser.Close()
	insertCategory, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (user_id, kind, name, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer insertCategory.Close()
	insertRecord, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, user_id, kind, category, position, title, amount, date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer insertRecord.Close()

	records := 0
	for id, u := range users {
		if _, err = insertUser.ExecContext(ctx, id, u.Name); err != nil {
			return fmt.Errorf("insert user %s: %w", id, err)
		}
		for _, kind := range []core.Kind{core.Expenses, core.Incomes} {
			for pos, b := range u.Ledger(kind).Buckets() {
				if _, err = insertCategory.ExecContext(ctx, id, kind.String(), b.Category, pos); err != nil {
					return fmt.Errorf("insert category %s/%s: %w", kind, b.Category, err)
				}
				for i, rec := range b.Records {
					if _, err = insertRecord.ExecContext(ctx,
						rec.ID, id, kind.String(), b.Category, i, rec.Title, rec.Amount.String(), rec.Date.String()); err != nil {
						return fmt.Errorf("insert record %s: %w", rec.ID, err)
					}
					records++
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.DebugContext(ctx, "Ledger saved to SQLite", "users", len(users), "records", records)
	return nil
}
