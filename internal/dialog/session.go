package dialog

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/report"
)

// Flow names one of the four guided conversations.
type Flow string

const (
	FlowAdd        Flow = "add"
	FlowFilter     Flow = "filter"
	FlowDelete     Flow = "delete"
	FlowStatistics Flow = "statistics"
)

// State is a step inside a flow.
type State string

const (
	AwaitingCategory       State = "awaiting_category"
	AwaitingTitle          State = "awaiting_title"
	AwaitingPrice          State = "awaiting_price"
	AwaitingDate           State = "awaiting_date"
	AwaitingFilterKind     State = "awaiting_filter_kind"
	AwaitingDateFilter     State = "awaiting_date_filter"
	AwaitingCategoryChoice State = "awaiting_category_choice"
	AwaitingLedgerKind     State = "awaiting_ledger_kind"
	AwaitingRecordIndex    State = "awaiting_record_index"
	AwaitingStatScope      State = "awaiting_stat_scope"
	AwaitingStatCriterion  State = "awaiting_stat_criterion"
	AwaitingStatRange      State = "awaiting_stat_range"
	Terminal               State = "terminal"
)

// Filter kinds offered by the view flow.
const (
	FilterDate     = "Date"
	FilterCategory = "Category"
	FilterExpenses = "Expenses"
	FilterIncomes  = "Incomes"
)

// Session is the transient state of one user's active flow. Handlers receive
// it explicitly and advance State; reaching Terminal ends the flow.
type Session struct {
	UserID string
	Flow   Flow
	State  State

	// add flow
	Kind     core.Kind
	Category string
	Title    string
	Amount   decimal.Decimal

	// view flow
	FilterKind string
	Range      *period.Range

	// delete flow: the list shown to the user, frozen as stable references
	Refs []core.RecordRef

	// statistics flow
	Scope     report.Scope
	Criterion report.Criterion
}

// Done reports whether the flow reached its terminal state.
func (s *Session) Done() bool {
	return s.State == Terminal
}

const lockStripes = 64

// SessionObserver is told when a session ends without the user finishing or
// abandoning it. *metrics.Collector implements it.
type SessionObserver interface {
	SessionEvicted(reason string)
}

// SessionStore keeps sessions with idle expiry and hands out per-user locks.
// Lock striping bounds memory regardless of user count.
type SessionStore struct {
	sessions *cache.IdleCache[Session]
	locks    [lockStripes]sync.Mutex
}

// NewSessionStore creates a store holding at most maxSize sessions, each
// expiring after ttl without activity. observer may be nil.
func NewSessionStore(maxSize int, ttl time.Duration, observer SessionObserver) *SessionStore {
	var opts []cache.IdleOption[Session]
	if observer != nil {
		opts = append(opts, cache.OnEvict(func(_ string, _ Session, why cache.Reason) {
			observer.SessionEvicted(string(why))
		}))
	}
	return &SessionStore{sessions: cache.NewIdleCache(maxSize, ttl, opts...)}
}

// Sweep drops expired sessions. It lets a cache.Manager own the schedule.
func (s *SessionStore) Sweep() int {
	return s.sessions.Sweep()
}

// Lock serialises message handling for one user and returns the unlock func.
func (s *SessionStore) Lock(userID string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Get returns a copy of the user's active session.
func (s *SessionStore) Get(userID string) (Session, bool) {
	return s.sessions.Get(userID)
}

// Put stores the session, restarting its idle timer.
func (s *SessionStore) Put(sess Session) {
	s.sessions.Put(sess.UserID, sess)
}

// Clear abandons the user's session, if any.
func (s *SessionStore) Clear(userID string) {
	s.sessions.Remove(userID)
}
