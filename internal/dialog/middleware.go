package dialog

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Handler answers one message.
type Handler func(ctx context.Context, msg Message) ([]Reply, error)

// Middleware wraps a Handler. It may answer on its own without calling next.
type Middleware func(next Handler) Handler

// Chain wraps h so that the first middleware runs first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// UserEnsurer creates users on first contact.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, id, name string) (core.User, bool, error)
}

// EnsureUser registers unknown users and greets them instead of running the
// handler. Known users pass straight through.
func EnsureUser(users UserEnsurer) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) ([]Reply, error) {
			_, created, err := users.EnsureUser(ctx, msg.UserID, msg.DisplayName)
			if err != nil {
				return nil, fmt.Errorf("ensure user %s: %w", msg.UserID, err)
			}
			if created {
				return []Reply{text(welcomeText(msg.DisplayName))}, nil
			}
			return next(ctx, msg)
		}
	}
}
