package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}), Component: ComponentApp})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponentIsAttached(t *testing.T) {
	var buf bytes.Buffer
	bufferLogger(&buf).WithComponent(ComponentDialog).Info("hello", FieldUserID, "1")

	out := buf.String()
	if !strings.Contains(out, "component=dialog") || !strings.Contains(out, "user_id=1") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithUser("1").WithDialog("add", "awaiting_price").WithRecord("expenses", "Food", "id", "12.5")
	if f[FieldFlow] != "add" || f[FieldCategory] != "Food" || f[FieldUserID] != "1" {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("ToSlice length mismatch")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a fallback logger")
	}
	var buf bytes.Buffer
	l := bufferLogger(&buf)
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected the stored logger")
	}
}

func TestAccessMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(bufferLogger(&buf))(AccessMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status_code=418") || !strings.Contains(out, "path=/x") {
		t.Fatalf("unexpected access log: %s", out)
	}
}
