package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/dialog"
	"fintrack/internal/log"
	"fintrack/internal/period"
	"fintrack/internal/report"
)

const transportName = "http"

// ImageBody is a chart image inlined in a reply.
type ImageBody struct {
	MIME     string `json:"mime"`
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// ReplyBody mirrors dialog.Reply.
type ReplyBody struct {
	Text           string     `json:"text"`
	Keyboard       [][]string `json:"keyboard,omitempty"`
	RemoveKeyboard bool       `json:"remove_keyboard,omitempty"`
	Image          *ImageBody `json:"image,omitempty"`
}

// MessageResponse is returned by POST /api/messages.
type MessageResponse struct {
	Replies []ReplyBody `json:"replies"`
}

// RecordsResponse is returned by GET /api/users/{id}/records.
type RecordsResponse struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Range    string        `json:"range,omitempty"`
	Expenses *LedgerResult `json:"expenses,omitempty"`
	Incomes  *LedgerResult `json:"incomes,omitempty"`
}

// LedgerResult lists one ledger's matching records and their truncated total.
type LedgerResult struct {
	Records []core.Record `json:"records"`
	Total   int64         `json:"total"`
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		s.fail(w, r, ServiceUnavailableError("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}

	msg := dialog.Message{
		UserID:      sanitizeInput(req.UserID),
		DisplayName: sanitizeInput(req.Name),
		Text:        sanitizeInput(req.Text),
	}
	if msg.Text == "" {
		s.fail(w, r, BadRequestError("text is required"))
		return
	}

	ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, msg.UserID))
	replies := s.deps.Conversation.Handle(ctx, msg)
	s.deps.Metrics.MessageHandled(transportName)

	resp := MessageResponse{Replies: make([]ReplyBody, len(replies))}
	for i, rep := range replies {
		resp.Replies[i] = toReplyBody(rep)
	}
	NewJSONResponse().Body(resp).Write(w)
}

func toReplyBody(r dialog.Reply) ReplyBody {
	out := ReplyBody{Text: r.Text, Keyboard: r.Keyboard, RemoveKeyboard: r.RemoveKeyboard}
	if r.Image != nil {
		out.Image = &ImageBody{
			MIME:     r.Image.MIME,
			Filename: r.Image.Filename,
			Data:     base64.StdEncoding.EncodeToString(r.Image.Data),
		}
	}
	return out
}

// handleRecords lists a user's records. Query parameters:
//
//	kind    expenses|incomes, both when omitted
//	period  Week|Month|Year
//	from,to YYYY-MM-DD, inclusive; ignored when period is set
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := chi.URLParam(r, "id")

	kinds := []core.Kind{core.Expenses, core.Incomes}
	if v := q.Get("kind"); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			s.fail(w, r, BadRequestError("kind must be expenses or incomes"))
			return
		}
		kinds = []core.Kind{k}
	}

	rng, err := s.parseRange(q.Get("period"), q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, BadRequestError(err.Error()))
		return
	}

	u, err := s.deps.Users.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.fail(w, r, NotFoundError("user not found"))
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to read user", log.FieldUserID, userID, log.FieldError, err)
		s.fail(w, r, InternalServerError("failed to read records"))
		return
	}

	resp := RecordsResponse{UserID: u.ID, Name: u.Name}
	if rng != nil {
		resp.Range = rng.String()
	}
	for _, k := range kinds {
		l := u.Ledger(k)
		records := report.Filter(l.All(), rng)
		result := &LedgerResult{Records: records, Total: report.SumAmounts(records)}
		if result.Records == nil {
			result.Records = []core.Record{}
		}
		if k == core.Expenses {
			resp.Expenses = result
		} else {
			resp.Incomes = result
		}
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) parseRange(p, from, to string) (*period.Range, error) {
	today := core.DateOf(s.deps.Clock())
	if p != "" {
		per, ok := period.ParsePeriod(p)
		if !ok {
			return nil, errors.New("period must be Week, Month or Year")
		}
		rng, err := period.Resolve(per, today)
		if err != nil {
			return nil, err
		}
		return &rng, nil
	}
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, errors.New("from and to must be given together")
	}
	rng, err := period.ParseRange(from+" - "+to, today)
	if err != nil {
		return nil, errors.New("from and to must be dates YYYY-MM-DD, not in the future, in order")
	}
	return &rng, nil
}
