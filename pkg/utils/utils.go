package utils

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-rbac/pkg/errors"
)

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseUUIDParam reads a chi URL parameter as a UUID
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidInput(name, "must be a valid UUID")
	}
	return id, nil
}

// DecodeJSON decodes the request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "Invalid request body")
	}
	return nil
}

// ParseUUIDs parses a list of UUID strings, reporting the first invalid entry under field
func ParseUUIDs(field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, apperrors.InvalidInput(field, "must contain valid UUIDs").WithDetail("value", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
