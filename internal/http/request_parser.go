// Package http exposes the dialog machine and read-only ledger queries over
// a JSON API, next to health, readiness and metrics endpoints.
//
// This file holds request decoding and validation helpers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds request bodies. Chat messages are short.
const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// MessageRequest is one chat message posted to /api/messages.
type MessageRequest struct {
	UserID string `json:"user_id" validate:"required,max=64,printascii"`
	Name   string `json:"name" validate:"max=128"`
	Text   string `json:"text" validate:"required,max=4096"`
}

// DecodeJSON reads a single JSON object from r into dst, rejecting unknown
// fields and trailing data, then validates dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body larger than %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("malformed JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}

	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError flattens validator errors into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
