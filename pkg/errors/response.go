package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse is the JSON body written for failed requests.
type ErrorResponse struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteError renders err as JSON with the status derived from its code.
// Errors that are not structured are reported as a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = InternalWrap(err, "Server error")
	}

	status := e.HTTPStatusCode()
	resp := ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		resp = ErrorResponse{Code: ErrCodeInternal, Message: "Server error"}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
