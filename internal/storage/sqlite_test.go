package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func sampleUsers() map[string]core.User {
	ann := core.NewUser("1", "Ann")
	ann.Expenses = core.NewLedger(
		core.Bucket{Category: "Transport", Records: []core.Record{
			{ID: "t1", Category: "Transport", Title: "Bus", Amount: decimal.RequireFromString("1.5"), Date: core.NewDate(2024, 1, 2)},
		}},
		core.Bucket{Category: "Food", Records: []core.Record{
			{ID: "f2", Category: "Food", Title: "Dinner", Amount: decimal.RequireFromString("30"), Date: core.NewDate(2024, 1, 3)},
			{ID: "f1", Category: "Food", Title: "Lunch", Amount: decimal.RequireFromString("12.5"), Date: core.NewDate(2024, 1, 1)},
		}},
	)
	ann.Incomes.Ensure("Salary")
	bob := core.NewUser("2", "Bob")
	return map[string]core.User{"1": ann, "2": bob}
}

func openTemp(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)

	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.Save(ctx, sampleUsers()))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ann := got["1"]
	assert.Equal(t, "Ann", ann.Name)
	assert.Equal(t, []string{"Transport", "Food"}, ann.Expenses.Categories())
	food := ann.Expenses.Records("Food")
	require.Len(t, food, 2)
	assert.Equal(t, "f2", food[0].ID, "insertion order must survive, not date order")
	assert.True(t, food[1].Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "2024-01-01", food[1].Date.String())
	assert.True(t, ann.Incomes.Has("Salary"), "empty categories are kept")
	assert.Equal(t, 0, got["2"].Expenses.Len())
}

func TestSQLiteSaveReplacesDataset(t *testing.T) {
	ctx := context.Background()
	repo := openTemp(t)
	require.NoError(t, repo.Save(ctx, sampleUsers()))

	users := sampleUsers()
	ann := users["1"]
	_, err := ann.Expenses.Remove(core.RecordRef{Category: "Transport", ID: "t1"})
	require.NoError(t, err)
	users["1"] = ann
	delete(users, "2")
	require.NoError(t, repo.Save(ctx, users))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Food"}, got["1"].Expenses.Categories())
	assert.NoError(t, repo.Ping(ctx))
}

func TestMigrateIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")

	first, err := Migrate(path)
	require.NoError(t, err)
	assert.Equal(t, Schema{Version: 1, Applied: true}, first)

	second, err := Migrate(path)
	require.NoError(t, err)
	assert.Equal(t, Schema{Version: 1, Applied: false}, second)
}

func TestMigrateRefusesDirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dirty.db")
	_, err := Migrate(path)
	require.NoError(t, err)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_migrations SET dirty = 1`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Migrate(path)
	assert.ErrorIs(t, err, ErrDirtySchema)

	_, err = NewSQLiteRepository(path)
	assert.ErrorIs(t, err, ErrDirtySchema)
}
