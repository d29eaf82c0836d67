package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Expenses Kind = "expenses"
	Incomes  Kind = "incomes"
)

type (
	// Kind selects one of the two ledgers a user owns.
	Kind string

	// Record is a single expense or income entry. Title is only set for expenses.
	Record struct {
		ID       string
		Category string
		Title    string
		Amount   decimal.Decimal
		Date     Date
	}

	// RecordRef points at a record inside a ledger without relying on its position.
	RecordRef struct {
		Category string
		ID       string
	}

	// User owns an expenses and an incomes ledger. ID is the persistence key.
	User struct {
		ID       string `json:"-"`
		Name     string `json:"name"`
		Expenses Ledger `json:"expenses"`
		Incomes  Ledger `json:"incomes"`
	}
)

// Error taxonomy. Specific causes wrap one of the three classes so callers can
// match either level with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")

	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrAmountTooLarge    = fmt.Errorf("%w: amount is too large", ErrInvalidAmount)
	ErrInvalidDate       = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrFutureDate        = fmt.Errorf("%w: date is in the future", ErrValidation)
	ErrInvalidRange      = fmt.Errorf("%w: invalid date range", ErrValidation)
	ErrEmptyCategory     = fmt.Errorf("%w: empty category", ErrValidation)
	ErrEmptyTitle        = fmt.Errorf("%w: empty title", ErrValidation)
	ErrInvalidKind       = fmt.Errorf("%w: invalid ledger kind", ErrValidation)

	ErrUserNotFound     = fmt.Errorf("%w: user", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("%w: category", ErrNotFound)
	ErrRecordNotFound   = fmt.Errorf("%w: record", ErrNotFound)
)

// IsValid reports whether k names one of the two ledgers.
func (k Kind) IsValid() bool {
	return k == Expenses || k == Incomes
}

// Label is the user-facing, capitalised name of the ledger.
func (k Kind) Label() string {
	switch k {
	case Expenses:
		return "Expenses"
	case Incomes:
		return "Incomes"
	default:
		return string(k)
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts both the stored form ("expenses") and the label ("Expenses").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// NewRecordID returns a fresh identifier for a record.
func NewRecordID() string {
	return uuid.New().String()
}

// Ref returns the stable reference of r.
func (r Record) Ref() RecordRef {
	return RecordRef{Category: r.Category, ID: r.ID}
}

// Validate checks the record invariants against today's date.
func (r Record) Validate(kind Kind, today Date) error {
	if !kind.IsValid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if kind == Expenses && strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if !r.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if r.Amount.GreaterThanOrEqual(MaxAmount) {
		return ErrAmountTooLarge
	}
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if r.Date.After(today.Time) {
		return ErrFutureDate
	}
	return nil
}

type recordJSON struct {
	ID       string          `json:"id,omitempty"`
	Category string          `json:"category"`
	Title    string          `json:"title,omitempty"`
	Amount   json.RawMessage `json:"amount"`
	Date     Date            `json:"date"`
}

// MarshalJSON writes the amount as a bare JSON number.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:       r.ID,
		Category: r.Category,
		Title:    r.Title,
		Amount:   json.RawMessage(r.Amount.String()),
		Date:     r.Date,
	})
}

// UnmarshalJSON accepts the amount either as a number or as a quoted string.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var amount decimal.Decimal
	if len(raw.Amount) > 0 {
		if err := amount.UnmarshalJSON(raw.Amount); err != nil {
			return fmt.Errorf("record amount: %w", err)
		}
	}
	*r = Record{
		ID:       raw.ID,
		Category: raw.Category,
		Title:    raw.Title,
		Amount:   amount,
		Date:     raw.Date,
	}
	return nil
}

// NewUser returns a user with two empty ledgers.
func NewUser(id, name string) User {
	return User{ID: id, Name: name}
}

// Ledger returns the ledger of the given kind, or nil for an unknown kind.
func (u *User) Ledger(kind Kind) *Ledger {
	switch kind {
	case Expenses:
		return &u.Expenses
	case Incomes:
		return &u.Incomes
	default:
		return nil
	}
}

// Clone returns a deep copy that shares no slices with u.
func (u User) Clone() User {
	return User{
		ID:       u.ID,
		Name:     u.Name,
		Expenses: u.Expenses.Clone(),
		Incomes:  u.Incomes.Clone(),
	}
}
