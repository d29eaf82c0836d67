package dialog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

const userID = "1"

type flakyRepo struct {
	*memory.Repository
	mu   sync.Mutex
	fail bool
}

func (r *flakyRepo) setFail(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = v
}

func (r *flakyRepo) Save(ctx context.Context, users map[string]core.User) error {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.Repository.Save(ctx, users)
}

type fakeRenderer struct {
	charts []report.Chart
}

func (f *fakeRenderer) Render(_ context.Context, c report.Chart) (chart.Image, error) {
	f.charts = append(f.charts, c)
	return chart.Image{Data: []byte("png"), MIME: "image/png"}, nil
}

type countingRecorder struct {
	completed map[string]int
	reprompts map[string]int
}

func (c *countingRecorder) FlowCompleted(flow string) { c.completed[flow]++ }
func (c *countingRecorder) Reprompt(state string)     { c.reprompts[state]++ }

type harness struct {
	machine  *Machine
	store    *ledger.Store
	repo     *flakyRepo
	renderer *fakeRenderer
	recorder *countingRecorder
}

func rec(category, title, amount string, d core.Date) core.Record {
	return core.Record{Category: category, Title: title, Amount: decimal.RequireFromString(amount), Date: d}
}

func newHarness(t *testing.T, seed map[string]core.User) *harness {
	t.Helper()
	if seed == nil {
		seed = map[string]core.User{userID: core.NewUser(userID, "Ann")}
	}
	repo := &flakyRepo{Repository: memory.New(seed)}
	clock := func() time.Time { return fixedNow }
	store, err := ledger.Open(context.Background(), repo, ledger.WithClock(clock), ledger.WithLogger(log.Discard()))
	require.NoError(t, err)

	h := &harness{
		store:    store,
		repo:     repo,
		renderer: &fakeRenderer{},
		recorder: &countingRecorder{completed: map[string]int{}, reprompts: map[string]int{}},
	}
	h.machine = New(store, NewSessionStore(100, time.Hour, nil), h.renderer,
		WithClock(clock), WithLogger(log.Discard()), WithRecorder(h.recorder))
	return h
}

func (h *harness) send(text string) []Reply {
	return h.machine.Handle(context.Background(), Message{UserID: userID, DisplayName: "Ann", Text: text})
}

func (h *harness) sendText(t *testing.T, text string) string {
	t.Helper()
	replies := h.send(text)
	require.Len(t, replies, 1, "replies to %q", text)
	return replies[0].Text
}

func (h *harness) state(t *testing.T) (State, bool) {
	t.Helper()
	s, ok := h.machine.sessions.Get(userID)
	return s.State, ok
}

func TestUnknownUserIsWelcomedBeforeAnyCommand(t *testing.T) {
	h := newHarness(t, map[string]core.User{})

	replies := h.send(CmdAddExpense)
	require.Len(t, replies, 1)
	assert.Equal(t, "Hello, Ann.\nEnter the /start command", replies[0].Text)
	_, active := h.state(t)
	assert.False(t, active, "welcome must not start the flow")

	u, err := h.store.User(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)

	assert.Contains(t, h.sendText(t, CmdStart), "Hi Ann\n")
}

func TestAddExpenseScenario(t *testing.T) {
	h := newHarness(t, nil)

	replies := h.send(CmdAddExpense)
	require.Len(t, replies, 1)
	assert.Equal(t, msgChooseCategory, replies[0].Text)
	require.Len(t, replies[0].Keyboard, 4)
	assert.Equal(t, []string{"Home 🏘", "Transport 🚚", "Utilities 🧾"}, replies[0].Keyboard[0])

	replies = h.send("Food 🍽")
	require.Len(t, replies, 1)
	assert.Equal(t, "Food 🍽 category selected.\nEnter the name of this action:", replies[0].Text)
	assert.True(t, replies[0].RemoveKeyboard)

	assert.Equal(t, msgAmountSpent, h.sendText(t, "Lunch"))
	assert.Equal(t, msgEnterDate, h.sendText(t, "12.5"))
	assert.Equal(t,
		"Thank you! Record:\nCategory: Food, Name: Lunch (Date: 2024-03-15) - 12.5UAH\nwas added!",
		h.sendText(t, "No"))

	records, err := h.store.ListAll(context.Background(), userID, core.Expenses)
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "Food", r.Category)
	assert.Equal(t, "Lunch", r.Title)
	assert.True(t, r.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, core.NewDate(2024, 3, 15), r.Date)
	assert.NotEmpty(t, r.ID)

	_, active := h.state(t)
	assert.False(t, active)
	assert.Equal(t, 1, h.recorder.completed[string(FlowAdd)])
}

func TestAddExpenseRepromptsOnInvalidInput(t *testing.T) {
	h := newHarness(t, nil)
	h.send(CmdAddExpense)

	for _, input := range []string{"food", "Groceries", ""} {
		assert.Contains(t, h.sendText(t, input), "I don`t know this category", "input %q", input)
	}
	st, _ := h.state(t)
	assert.Equal(t, AwaitingCategory, st)

	h.send("Debts")
	assert.Equal(t, msgEnterTitle, h.sendText(t, ""))
	h.send("Loan")

	assert.Equal(t, msgWrongAmount, h.sendText(t, "abc"))
	assert.Equal(t, msgWrongAmount, h.sendText(t, "99999999999999999999"))
	assert.Equal(t, msgAmountPositive, h.sendText(t, "0"))
	assert.Equal(t, msgAmountPositive, h.sendText(t, "-3"))
	st, _ = h.state(t)
	assert.Equal(t, AwaitingPrice, st)

	h.send("10,75")
	assert.Equal(t, msgFutureDate, h.sendText(t, "2024-03-16"))
	assert.Equal(t, msgInvalidDate, h.sendText(t, "15.03.2024"))
	assert.Equal(t, msgInvalidDate, h.sendText(t, "2024-02-30"))
	st, _ = h.state(t)
	assert.Equal(t, AwaitingDate, st)

	assert.Contains(t, h.sendText(t, "2024-02-29"), "Category: Debts, Name: Loan (Date: 2024-02-29) - 10.75UAH")

	assert.Equal(t, 3, h.recorder.reprompts[string(AwaitingCategory)])
	assert.Equal(t, 1, h.recorder.reprompts[string(AwaitingTitle)])
	assert.Equal(t, 3, h.recorder.reprompts[string(AwaitingPrice)])
	assert.Equal(t, 3, h.recorder.reprompts[string(AwaitingDate)])
}

func TestAddIncomeSkipsTitle(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, msgEnterCategory, h.sendText(t, CmdAddIncome))
	replies := h.send("Salary")
	require.Len(t, replies, 2)
	assert.Equal(t, "Salary category entered.", replies[0].Text)
	assert.Equal(t, msgAmountIncome, replies[1].Text)

	h.send("300")
	assert.Equal(t,
		"Thank you! Record:\nCategory: Salary (Date: 2024-03-01) - 300UAH\nwas added!",
		h.sendText(t, "2024-03-01"))

	u, err := h.store.User(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Salary"}, u.Incomes.Categories())
	assert.Empty(t, u.Incomes.All()[0].Title)
}

func TestPersistenceFailureKeepsState(t *testing.T) {
	h := newHarness(t, nil)
	h.send(CmdAddExpense)
	h.send("Food")
	h.send("Lunch")
	h.send("5")

	h.repo.setFail(true)
	assert.Equal(t, msgSaveFailed, h.sendText(t, "No"))
	st, active := h.state(t)
	require.True(t, active)
	assert.Equal(t, AwaitingDate, st)

	h.repo.setFail(false)
	assert.Contains(t, h.sendText(t, "No"), "was added!")
	records, err := h.store.ListAll(context.Background(), userID, core.Expenses)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNewCommandAbandonsFlowAndUnknownCommandKeepsIt(t *testing.T) {
	h := newHarness(t, nil)
	h.send(CmdAddExpense)

	assert.Contains(t, h.sendText(t, "/nope"), "I don't know this command.")
	st, _ := h.state(t)
	assert.Equal(t, AwaitingCategory, st)

	h.send(CmdListByFilter)
	s, ok := h.machine.sessions.Get(userID)
	require.True(t, ok)
	assert.Equal(t, FlowFilter, s.Flow)
	assert.Equal(t, AwaitingFilterKind, s.State)

	h.send(CmdHelp)
	_, active := h.state(t)
	assert.False(t, active)
	assert.Equal(t, msgDefault, h.sendText(t, "hello"))
}

func seededUser() map[string]core.User {
	u := core.NewUser(userID, "Ann")
	u.Expenses = core.NewLedger(
		core.Bucket{Category: "Food", Records: []core.Record{
			rec("Food", "Lunch", "60", core.NewDate(2024, 1, 10)),
			rec("Food", "Dinner", "40", core.NewDate(2024, 3, 12)),
		}},
		core.Bucket{Category: "Home", Records: []core.Record{
			rec("Home", "Rent", "500", core.NewDate(2023, 12, 1)),
		}},
	)
	u.Incomes = core.NewLedger(core.Bucket{Category: "Salary", Records: []core.Record{
		rec("Salary", "", "300", core.NewDate(2024, 1, 20)),
	}})
	return map[string]core.User{userID: u}
}

func TestDeleteOnEmptyIncomesTerminates(t *testing.T) {
	h := newHarness(t, nil)

	replies := h.send(CmdDeleteRecord)
	require.Len(t, replies, 1)
	assert.Equal(t, [][]string{{"Incomes", "Expenses"}}, replies[0].Keyboard)

	assert.Equal(t, msgNoRecordsFound, h.sendText(t, "Incomes"))
	_, active := h.state(t)
	assert.False(t, active)
}

func TestDeleteIndexBounds(t *testing.T) {
	h := newHarness(t, seededUser())
	h.send(CmdDeleteRecord)
	assert.Equal(t, msgOptionInvalid, h.sendText(t, "expenses"))

	list := h.sendText(t, "Expenses")
	assert.Equal(t, "Enter the record number to delete:\n"+
		"1. Category: Food, Name: Lunch (Date: 2024-01-10) - 60UAH\n"+
		"2. Category: Food, Name: Dinner (Date: 2024-03-12) - 40UAH\n"+
		"3. Category: Home, Name: Rent (Date: 2023-12-01) - 500UAH", list)

	for _, input := range []string{"0", "4", "-1", "two", ""} {
		assert.Equal(t, msgWrongNumber, h.sendText(t, input), "input %q", input)
	}
	st, _ := h.state(t)
	assert.Equal(t, AwaitingRecordIndex, st)

	assert.Equal(t, "Your record number 3 has been deleted.", h.sendText(t, "3"))
	u, err := h.store.User(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food"}, u.Expenses.Categories(), "empty category is removed")
	assert.Len(t, u.Expenses.All(), 2)
}

func TestDeleteRecordThatVanished(t *testing.T) {
	h := newHarness(t, seededUser())
	h.send(CmdDeleteRecord)
	h.send("Incomes")

	incomes, err := h.store.ListAll(context.Background(), userID, core.Incomes)
	require.NoError(t, err)
	_, err = h.store.DeleteRecord(context.Background(), userID, core.Incomes, incomes[0].Ref())
	require.NoError(t, err)

	assert.Equal(t, msgNoRecordsFound, h.sendText(t, "1"))
}

func TestStatisticsGeneralByDate(t *testing.T) {
	h := newHarness(t, seededUser())

	h.send(CmdGetStatistics)
	replies := h.send("General")
	require.Len(t, replies, 1)
	assert.Equal(t, [][]string{{"Category", "Date"}}, replies[0].Keyboard)

	assert.Equal(t, msgStatsRequired, h.sendText(t, "Date"))
	assert.Equal(t, msgStatsNoForDate, h.sendText(t, "No"))
	assert.Equal(t, msgInvalidRange, h.sendText(t, "2024-01-31 - 2024-01-01"))
	assert.Equal(t, msgInvalidRange, h.sendText(t, "2024-01-01"))

	replies = h.send("2024-01-01 - 2024-01-31")
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Image)
	require.Len(t, h.renderer.charts, 1)
	c := h.renderer.charts[0]
	assert.Equal(t, "General", c.Title)
	assert.Equal(t, []string{"Expenses", "Incomes"}, c.Labels)
	assert.Equal(t, []int64{60, 300}, c.Amounts)
}

func TestStatisticsSingleLedgerAllTime(t *testing.T) {
	h := newHarness(t, seededUser())

	h.send(CmdGetStatistics)
	assert.Equal(t, msgProposedInvalid, h.sendText(t, "Everything"))
	assert.Contains(t, h.sendText(t, "Expenses"), "Great! You choose Expenses.")
	st, _ := h.state(t)
	assert.Equal(t, AwaitingStatRange, st)

	replies := h.send("no")
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Image)
	c := h.renderer.charts[0]
	assert.Equal(t, []string{"Food", "Home"}, c.Labels)
	assert.Equal(t, []int64{100, 500}, c.Amounts)
}

func TestStatisticsEmptyPeriod(t *testing.T) {
	h := newHarness(t, seededUser())
	h.send(CmdGetStatistics)
	h.send("Incomes")
	assert.Equal(t, msgStatsEmpty, h.sendText(t, "2024-02-01 - 2024-02-29"))
	assert.Empty(t, h.renderer.charts)
	_, active := h.state(t)
	assert.False(t, active)
}

func TestFilterByDateAndCategory(t *testing.T) {
	h := newHarness(t, seededUser())

	h.send(CmdListByFilter)
	assert.Equal(t, msgFilterInvalid, h.sendText(t, "Title"))
	h.send("Date")
	assert.Equal(t, msgPeriodInvalid, h.sendText(t, "Decade"))

	replies := h.send("Month")
	require.Len(t, replies, 2)
	assert.Equal(t, "Expenses:\n1. Category: Food, Name: Dinner (Date: 2024-03-12) - 40UAH", replies[0].Text)
	assert.Equal(t, "Incomes:\nNo records", replies[1].Text)
	assert.True(t, replies[1].RemoveKeyboard)

	h.send(CmdListByFilter)
	h.send("Category")
	h.send("Year")
	assert.Contains(t, h.sendText(t, "Salary"), "I don`t know this category")
	replies = h.send("Food 🍽")
	require.Len(t, replies, 2)
	assert.Equal(t, "Expenses:\n"+
		"1. Category: Food, Name: Lunch (Date: 2024-01-10) - 60UAH\n"+
		"2. Category: Food, Name: Dinner (Date: 2024-03-12) - 40UAH", replies[0].Text)
	assert.Equal(t, "Incomes:\nNo records", replies[1].Text)
}

func TestListAndCategories(t *testing.T) {
	h := newHarness(t, seededUser())

	replies := h.send(CmdList)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0].Text, "3. Category: Home, Name: Rent (Date: 2023-12-01) - 500UAH")
	assert.Equal(t, "Incomes:\n1. Category: Salary (Date: 2024-01-20) - 300UAH", replies[1].Text)

	cats := h.sendText(t, CmdCategories)
	assert.Contains(t, cats, "1. Home 🏘\n")
	assert.Contains(t, cats, "10. Other 📝")
}

func TestConcurrentUsers(t *testing.T) {
	h := newHarness(t, map[string]core.User{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			send := func(text string) {
				h.machine.Handle(context.Background(), Message{UserID: id, DisplayName: "U", Text: text})
			}
			send(CmdStart)
			send(CmdAddIncome)
			send("Gift")
			send("1")
			send("No")
		}(string(rune('a' + i)))
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		records, err := h.store.ListAll(context.Background(), string(rune('a'+i)), core.Incomes)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/start", "/start", true},
		{"/add_expense@fintrack_bot", "/add_expense", true},
		{"/list extra words", "/list", true},
		{"hello", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
