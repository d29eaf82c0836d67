package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

const legacyDocument = `{
    "123": {
        "name": "Ann",
        "expenses": {
            "Transport": [
                {"category": "Transport", "title": "Bus", "amount": 1.5, "date": "2024-01-02"}
            ],
            "Food": [
                {"category": "Food", "title": "Lunch", "amount": 12, "date": "2024-01-01"}
            ]
        },
        "incomes": {
            "Salary": [
                {"category": "Salary", "amount": 300, "date": "2024-01-05"}
            ]
        }
    }
}`

func TestLoadMissingFile(t *testing.T) {
	repo := New(filepath.Join(t.TempDir(), "data.json"))
	users, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestLoadLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	users, err := New(path).Load(context.Background())
	require.NoError(t, err)
	ann := users["123"]
	assert.Equal(t, "123", ann.ID)
	assert.Equal(t, "Ann", ann.Name)
	assert.Equal(t, []string{"Transport", "Food"}, ann.Expenses.Categories())
	salary := ann.Incomes.Records("Salary")
	require.Len(t, salary, 1)
	assert.Empty(t, salary[0].ID)
	assert.True(t, salary[0].Amount.Equal(decimal.NewFromInt(300)))
}

func TestSaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "data.json")
	repo := New(path)

	u := core.NewUser("7", "Bob")
	u.Expenses.Ensure("Home")
	u.Expenses.Ensure("Food")
	require.NoError(t, u.Expenses.Append(core.Record{ID: "x", Category: "Food", Title: "Tea", Amount: decimal.RequireFromString("3.20"), Date: core.NewDate(2024, 2, 1)}))
	require.NoError(t, repo.Save(ctx, map[string]core.User{"7": u}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, `"amount": 3.2`)
	assert.Contains(t, text, `"date": "2024-02-01"`)
	assert.NotContains(t, text, `"title": ""`)
	assert.Less(t, strings.Index(text, `"Home"`), strings.Index(text, `"Food"`))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Food"}, got["7"].Expenses.Categories())
	assert.Equal(t, "x", got["7"].Expenses.All()[0].ID)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": {"expenses": [`), 0o644))
	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}
