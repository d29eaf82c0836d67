// Package ledger owns every user's records and writes them through to a
// Repository after each mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Store is the single owner of users and their ledgers. Mutations are applied
// to a copy, the full snapshot is saved, and the copy replaces the live user
// only when the save succeeded.
type Store struct {
	mu       sync.RWMutex
	repo     Repository
	users    map[string]core.User
	notifier Notifier
	recorder Recorder
	clock    func() time.Time
	logger   *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier announces committed mutations to n.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithRecorder reports mutation counts and persistence failures.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the store logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the dataset from repo. Records stored without an identifier get
// one and the upgraded dataset is saved back immediately.
func Open(ctx context.Context, repo Repository, opts ...Option) (*Store, error) {
	s := &Store{
		repo:   repo,
		clock:  time.Now,
		logger: log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}

	users, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", core.ErrPersistence, err)
	}
	if users == nil {
		users = map[string]core.User{}
	}
	if n := Normalize(users); n > 0 {
		s.logger.InfoContext(ctx, "Assigned identifiers to stored records", "count", n)
		if err := repo.Save(ctx, users); err != nil {
			return nil, fmt.Errorf("%w: save normalized dataset: %w", core.ErrPersistence, err)
		}
	}
	s.users = users
	s.logger.InfoContext(ctx, "Ledger store opened", "users", len(users))
	return s, nil
}

// Normalize fixes up a freshly loaded dataset in place: user IDs are taken
// from the map keys and records without an identifier get one. It returns the
// number of identifiers assigned.
func Normalize(users map[string]core.User) int {
	n := 0
	for id, u := range users {
		u.ID = id
		n += u.Expenses.AssignMissingIDs()
		n += u.Incomes.AssignMissingIDs()
		users[id] = u
	}
	return n
}

func (s *Store) today() core.Date {
	return core.DateOf(s.clock())
}

// EnsureUser returns the user, creating and persisting it when unknown.
// created reports whether the user was new.
func (s *Store) EnsureUser(ctx context.Context, id, name string) (core.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return u.Clone(), false, nil
	}
	u := core.NewUser(id, name)
	if err := s.commit(ctx, u); err != nil {
		return core.User{}, false, err
	}
	s.logger.InfoContext(ctx, "User created", log.FieldUserID, id)
	return u.Clone(), true, nil
}

// User returns a deep copy of the user.
func (s *Store) User(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
	}
	return u.Clone(), nil
}

// ListAll returns every record of one ledger: categories in creation order,
// records in insertion order.
func (s *Store) ListAll(ctx context.Context, userID string, kind core.Kind) ([]core.Record, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Ledger(kind).All(), nil
}

// EnsureCategory creates an empty category if it is missing. Calling it again
// for the same category changes nothing and does not touch the repository.
func (s *Store) EnsureCategory(ctx context.Context, userID string, kind core.Kind, category string) error {
	if category == "" {
		return core.ErrEmptyCategory
	}
	return s.mutate(ctx, userID, kind, func(l *core.Ledger) (bool, error) {
		return l.Ensure(category), nil
	})
}

// AppendRecord validates r, gives it an identifier when it has none and adds
// it to the end of its category, which must already exist.
func (s *Store) AppendRecord(ctx context.Context, userID string, kind core.Kind, r core.Record) (core.Record, error) {
	if err := r.Validate(kind, s.today()); err != nil {
		return core.Record{}, err
	}
	if r.ID == "" {
		r.ID = core.NewRecordID()
	}
	if kind == core.Incomes {
		r.Title = ""
	}
	err := s.mutate(ctx, userID, kind, func(l *core.Ledger) (bool, error) {
		return true, l.Append(r)
	})
	if err != nil {
		return core.Record{}, err
	}
	s.record(kind, log.OpAppend)
	s.notify(ctx, Event{Type: RecordAdded, UserID: userID, Kind: kind, Record: r, At: s.clock()})
	return r, nil
}

// DeleteRecord removes the referenced record. A category left empty is
// removed too.
func (s *Store) DeleteRecord(ctx context.Context, userID string, kind core.Kind, ref core.RecordRef) (core.Record, error) {
	var removed core.Record
	err := s.mutate(ctx, userID, kind, func(l *core.Ledger) (bool, error) {
		r, err := l.Remove(ref)
		removed = r
		return err == nil, err
	})
	if err != nil {
		return core.Record{}, err
	}
	s.record(kind, log.OpDelete)
	s.notify(ctx, Event{Type: RecordDeleted, UserID: userID, Kind: kind, Record: removed, At: s.clock()})
	return removed, nil
}

// mutate runs fn against a copy of one ledger. fn reports whether it changed
// anything; unchanged ledgers are not saved.
func (s *Store) mutate(ctx context.Context, userID string, kind core.Kind, fn func(*core.Ledger) (bool, error)) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUserNotFound, userID)
	}
	next := current.Clone()
	changed, err := fn(next.Ledger(kind))
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.commit(ctx, next)
}

// commit saves a snapshot containing u and installs u on success.
// Callers hold the write lock.
func (s *Store) commit(ctx context.Context, u core.User) error {
	snapshot := make(map[string]core.User, len(s.users)+1)
	for id, existing := range s.users {
		snapshot[id] = existing
	}
	snapshot[u.ID] = u

	if err := s.repo.Save(ctx, snapshot); err != nil {
		if s.recorder != nil {
			s.recorder.PersistenceFailure()
		}
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.NewFields().WithUser(u.ID).WithOperation(log.OpSave).WithError(err).ToSlice()...)
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) record(kind core.Kind, op string) {
	if s.recorder != nil {
		s.recorder.LedgerMutation(kind, op)
	}
}

func (s *Store) notify(ctx context.Context, e Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.NewFields().WithUser(e.UserID).
				WithRecord(e.Kind.String(), e.Record.Category, e.Record.ID, e.Record.Amount.String()).
				WithError(err).ToSlice()...)
	}
}

// IsPersistence reports whether err came from the repository.
func IsPersistence(err error) bool {
	return errors.Is(err, core.ErrPersistence)
}
