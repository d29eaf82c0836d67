// Package dialog drives the guided conversations: adding records, viewing
// and filtering them, deleting them and drawing statistics.
//
// Every inbound message goes through Machine.Handle. Commands start flows
// (abandoning any active one); other text is fed to the current state of the
// user's Session. A state either advances, finishes the flow, or re-prompts
// and stays where it is.
package dialog

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

// LedgerStore is what the flows need from the ledger.
type LedgerStore interface {
	UserEnsurer
	User(ctx context.Context, id string) (core.User, error)
	ListAll(ctx context.Context, userID string, kind core.Kind) ([]core.Record, error)
	EnsureCategory(ctx context.Context, userID string, kind core.Kind, category string) error
	AppendRecord(ctx context.Context, userID string, kind core.Kind, r core.Record) (core.Record, error)
	DeleteRecord(ctx context.Context, userID string, kind core.Kind, ref core.RecordRef) (core.Record, error)
}

// Recorder counts dialog outcomes.
type Recorder interface {
	FlowCompleted(flow string)
	Reprompt(state string)
}

type nopRecorder struct{}

func (nopRecorder) FlowCompleted(string) {}
func (nopRecorder) Reprompt(string)      {}

// step handles text for one state. It advances s in place.
type step func(ctx context.Context, s *Session, msg Message) ([]Reply, error)

type Machine struct {
	store    LedgerStore
	sessions *SessionStore
	renderer chart.Renderer
	recorder Recorder
	clock    func() time.Time
	logger   *log.Logger

	middleware []Middleware
	commands   map[string]Handler
	steps      map[State]step
}

// Option configures a Machine.
type Option func(*Machine)

func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) { m.clock = clock }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Machine) { m.logger = l.WithComponent(log.ComponentDialog) }
}

// WithMiddleware appends middleware run before every command and before
// free text outside a flow. EnsureUser is always installed first.
func WithMiddleware(mws ...Middleware) Option {
	return func(m *Machine) { m.middleware = append(m.middleware, mws...) }
}

func New(store LedgerStore, sessions *SessionStore, renderer chart.Renderer, opts ...Option) *Machine {
	m := &Machine{
		store:      store,
		sessions:   sessions,
		renderer:   renderer,
		recorder:   nopRecorder{},
		clock:      time.Now,
		logger:     log.Default(log.ComponentDialog),
		middleware: []Middleware{EnsureUser(store)},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.renderer == nil {
		m.renderer = chart.NewPieRenderer(m.logger)
	}

	m.commands = map[string]Handler{
		CmdStart:         m.start,
		CmdHelp:          m.help,
		CmdCategories:    m.categories,
		CmdList:          m.list,
		CmdAddExpense:    m.startAdd(core.Expenses),
		CmdAddIncome:     m.startAdd(core.Incomes),
		CmdListByFilter:  m.startFilter,
		CmdDeleteRecord:  m.startDelete,
		CmdGetStatistics: m.startStatistics,
	}
	m.steps = map[State]step{
		AwaitingCategory:       m.addCategory,
		AwaitingTitle:          m.addTitle,
		AwaitingPrice:          m.addPrice,
		AwaitingDate:           m.addDate,
		AwaitingFilterKind:     m.filterKind,
		AwaitingDateFilter:     m.filterPeriod,
		AwaitingCategoryChoice: m.filterCategory,
		AwaitingLedgerKind:     m.deleteKind,
		AwaitingRecordIndex:    m.deleteIndex,
		AwaitingStatScope:      m.statScope,
		AwaitingStatCriterion:  m.statCriterion,
		AwaitingStatRange:      m.statRange,
	}
	return m
}

// Handle answers one inbound message. Messages of the same user are handled
// one at a time; different users proceed in parallel.
func (m *Machine) Handle(ctx context.Context, msg Message) []Reply {
	unlock := m.sessions.Lock(msg.UserID)
	defer unlock()

	msg.Text = strings.TrimSpace(msg.Text)
	logger := m.logger.With(log.FieldUserID, msg.UserID)

	if cmd, ok := parseCommand(msg.Text); ok {
		h, known := m.commands[cmd]
		if !known {
			// An unknown command leaves the active flow untouched.
			return m.run(ctx, msg, m.unknownCommand)
		}
		if prev, active := m.sessions.Get(msg.UserID); active {
			logger.DebugContext(ctx, "Abandoning flow", log.NewFields().WithDialog(string(prev.Flow), string(prev.State)).ToSlice()...)
		}
		m.sessions.Clear(msg.UserID)
		return m.run(ctx, msg, h)
	}

	sess, active := m.sessions.Get(msg.UserID)
	if !active {
		return m.run(ctx, msg, m.defaultMessage)
	}
	return m.advance(ctx, sess, msg)
}

func (m *Machine) run(ctx context.Context, msg Message, h Handler) []Reply {
	replies, err := Chain(h, m.middleware...)(ctx, msg)
	if err != nil {
		return m.failure(ctx, msg.UserID, err)
	}
	return replies
}

func (m *Machine) advance(ctx context.Context, sess Session, msg Message) []Reply {
	fields := log.NewFields().WithUser(msg.UserID).WithDialog(string(sess.Flow), string(sess.State))

	st, ok := m.steps[sess.State]
	if !ok {
		m.logger.WarnContext(ctx, "Session in unknown state, dropping it", fields.ToSlice()...)
		m.sessions.Clear(msg.UserID)
		return m.run(ctx, msg, m.defaultMessage)
	}

	replies, err := st(ctx, &sess, msg)
	if err != nil {
		if ledger.IsPersistence(err) {
			// Stored session is unchanged, the user can retry the same answer.
			m.logger.ErrorContext(ctx, "Could not persist flow step", fields.WithError(err).ToSlice()...)
			return []Reply{text(msgSaveFailed)}
		}
		m.sessions.Clear(msg.UserID)
		return m.failure(ctx, msg.UserID, err)
	}

	if sess.Done() {
		m.sessions.Clear(msg.UserID)
		m.recorder.FlowCompleted(string(sess.Flow))
		m.logger.InfoContext(ctx, "Flow completed", fields.ToSlice()...)
		return replies
	}
	m.sessions.Put(sess)
	return replies
}

func (m *Machine) failure(ctx context.Context, userID string, err error) []Reply {
	if ledger.IsPersistence(err) {
		m.logger.ErrorContext(ctx, "Persistence failure", log.FieldUserID, userID, log.FieldError, err.Error())
		return []Reply{text(msgSaveFailed)}
	}
	m.logger.ErrorContext(ctx, "Failed to handle message", log.FieldUserID, userID, log.FieldError, err.Error())
	return []Reply{text(msgInternal)}
}

// reprompt keeps s in its state and counts the rejection.
func (m *Machine) reprompt(s *Session, replies ...Reply) []Reply {
	m.recorder.Reprompt(string(s.State))
	return replies
}

func (m *Machine) today() core.Date {
	return core.DateOf(m.clock())
}

// begin stores a fresh session for a flow entry point.
func (m *Machine) begin(userID string, flow Flow, state State) {
	m.sessions.Put(Session{UserID: userID, Flow: flow, State: state})
}

// parseCommand returns the command word of text, without a "@botname" suffix.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	word := strings.Fields(text)[0]
	if at := strings.IndexByte(word, '@'); at > 0 {
		word = word[:at]
	}
	return word, true
}

func isNo(s string) bool {
	return strings.EqualFold(s, "no")
}
