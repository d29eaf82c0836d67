package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/chart"
	"fintrack/internal/core"
	"fintrack/internal/dialog"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
)

type fakeConversation struct {
	got     []dialog.Message
	replies []dialog.Reply
}

func (f *fakeConversation) Handle(_ context.Context, msg dialog.Message) []dialog.Reply {
	f.got = append(f.got, msg)
	return f.replies
}

type fakeUsers map[string]core.User

func (f fakeUsers) User(_ context.Context, id string) (core.User, error) {
	u, ok := f[id]
	if !ok {
		return core.User{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
	}
	return u, nil
}

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

const testToken = "test-api-token-0123456789"

func sampleUser() core.User {
	u := core.NewUser("1", "Ann")
	u.Expenses.Ensure("Food")
	_ = u.Expenses.Append(core.Record{ID: "a", Category: "Food", Title: "Lunch", Amount: decimal.RequireFromString("12.5"), Date: core.NewDate(2024, 3, 14)})
	_ = u.Expenses.Append(core.Record{ID: "b", Category: "Food", Title: "Dinner", Amount: decimal.RequireFromString("30"), Date: core.NewDate(2024, 1, 2)})
	u.Incomes.Ensure("Salary")
	_ = u.Incomes.Append(core.Record{ID: "c", Category: "Salary", Amount: decimal.RequireFromString("1000"), Date: core.NewDate(2024, 3, 1)})
	return u
}

func newTestServer(t *testing.T, conv *fakeConversation, ready ReadyFunc) *Server {
	t.Helper()
	srv := NewServer(":0", Deps{
		Conversation:      conv,
		Users:             fakeUsers{"1": sampleUser()},
		Ready:             ready,
		Metrics:           metrics.NewCollector("test"),
		Logger:            log.Discard(),
		Clock:             func() time.Time { return fixedNow },
		APIToken:          testToken,
		RequestsPerMinute: 3,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doAs(t, srv, "Bearer "+testToken, method, path, body)
}

func doAs(t *testing.T, srv *Server, authorization, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}
}

func TestReadyFailure(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, func(context.Context) error { return errors.New("db down") })

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID == "" || body.Error != "not ready" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)
	do(t, srv, http.MethodGet, "/healthz", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `route="/healthz"`) {
		t.Fatalf("metrics missing healthz route:\n%s", rr.Body.String())
	}
}

func TestPostMessage(t *testing.T) {
	conv := &fakeConversation{replies: []dialog.Reply{
		{Text: "Choose", Keyboard: [][]string{{"Week", "Month"}}},
		{Text: "Chart", Image: &chart.Image{Data: []byte("png"), MIME: "image/png", Filename: "stats.png"}},
	}}
	srv := newTestServer(t, conv, nil)

	rr := do(t, srv, http.MethodPost, "/api/messages", `{"user_id":"1","name":"Ann","text":"  /statistics\u0007 "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if len(conv.got) != 1 || conv.got[0] != (dialog.Message{UserID: "1", DisplayName: "Ann", Text: "/statistics"}) {
		t.Fatalf("unexpected message %+v", conv.got)
	}

	var resp MessageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Replies) != 2 {
		t.Fatalf("replies=%d", len(resp.Replies))
	}
	if resp.Replies[0].Keyboard[0][1] != "Month" {
		t.Fatalf("keyboard %+v", resp.Replies[0].Keyboard)
	}
	img := resp.Replies[1].Image
	if img == nil || img.MIME != "image/png" {
		t.Fatalf("image %+v", img)
	}
	data, _ := base64.StdEncoding.DecodeString(img.Data)
	if string(data) != "png" {
		t.Fatalf("image data %q", data)
	}
}

func TestPostMessageValidation(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing text", `{"user_id":"1"}`},
		{"missing user", `{"text":"hi"}`},
		{"unknown field", `{"user_id":"1","text":"hi","extra":1}`},
		{"malformed", `{"user_id":`},
		{"only control characters", `{"user_id":"1","text":"\u0001"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/messages", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPostMessageRateLimited(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)

	var last int
	for i := 0; i < 4; i++ {
		last = do(t, srv, http.MethodPost, "/api/messages", `{"user_id":"1","text":"hi"}`).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status=%d", last)
	}
}

func TestRecords(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)

	rr := do(t, srv, http.MethodGet, "/api/users/1/records", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var all RecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if all.Name != "Ann" || all.Expenses.Total != 42 || all.Incomes.Total != 1000 {
		t.Fatalf("unexpected %+v", all)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/1/records?kind=expenses&period=Month", "")
	var month RecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &month); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if month.Incomes != nil || len(month.Expenses.Records) != 1 || month.Expenses.Records[0].ID != "a" {
		t.Fatalf("unexpected %+v", month)
	}
	if month.Range != "2024-03-01 - 2024-03-31" {
		t.Fatalf("range=%q", month.Range)
	}

	rr = do(t, srv, http.MethodGet, "/api/users/1/records?kind=incomes&from=2024-01-01&to=2024-02-01", "")
	var empty RecordsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Incomes == nil || len(empty.Incomes.Records) != 0 {
		t.Fatalf("unexpected %+v", empty)
	}
}

func TestRecordsErrors(t *testing.T) {
	srv := newTestServer(t, &fakeConversation{}, nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/users/2/records", http.StatusNotFound},
		{"/api/users/1/records?kind=savings", http.StatusBadRequest},
		{"/api/users/1/records?period=Decade", http.StatusBadRequest},
		{"/api/users/1/records?from=2024-01-01", http.StatusBadRequest},
		{"/api/users/1/records?from=2024-03-01&to=2024-01-01", http.StatusBadRequest},
		{"/api/users/1/records?from=2024-03-01&to=2030-01-01", http.StatusBadRequest},
		{"/nowhere", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rr := do(t, srv, http.MethodGet, tt.path, ""); rr.Code != tt.want {
				t.Fatalf("status=%d want %d", rr.Code, tt.want)
			}
		})
	}

	if rr := do(t, srv, http.MethodDelete, "/healthz", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /healthz status=%d", rr.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	conv := &fakeConversation{replies: []dialog.Reply{{Text: "Your record number 1 has been deleted."}}}
	srv := newTestServer(t, conv, nil)

	tests := []struct {
		name          string
		authorization string
		method        string
		path          string
		body          string
	}{
		{"records without token", "", http.MethodGet, "/api/users/1/records", ""},
		{"records with wrong token", "Bearer nope", http.MethodGet, "/api/users/1/records", ""},
		{"delete without token", "", http.MethodPost, "/api/messages", `{"user_id":"1","text":"/delete_record"}`},
		{"message with basic auth", "Basic " + testToken, http.MethodPost, "/api/messages", `{"user_id":"1","text":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAs(t, srv, tt.authorization, tt.method, tt.path, tt.body)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.HasPrefix(rr.Header().Get("WWW-Authenticate"), "Bearer") {
				t.Fatalf("missing WWW-Authenticate header")
			}
			if strings.Contains(rr.Body.String(), "Lunch") {
				t.Fatalf("ledger leaked: %s", rr.Body.String())
			}
		})
	}
	if len(conv.got) != 0 {
		t.Fatalf("unauthenticated messages reached the dialog: %+v", conv.got)
	}

	// Health checks stay public.
	if rr := doAs(t, srv, "", http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestAPIDisabledWithoutConfiguredToken(t *testing.T) {
	conv := &fakeConversation{}
	srv := NewServer(":0", Deps{
		Conversation: conv,
		Users:        fakeUsers{"1": sampleUser()},
		Metrics:      metrics.NewCollector("test"),
		Logger:       log.Discard(),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, authorization := range []string{"", "Bearer ", "Bearer anything"} {
		rr := doAs(t, srv, authorization, http.MethodPost, "/api/messages", `{"user_id":"1","text":"/delete_record"}`)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("authorization %q: status=%d", authorization, rr.Code)
		}
	}
	if len(conv.got) != 0 {
		t.Fatalf("messages reached the dialog: %+v", conv.got)
	}
}
