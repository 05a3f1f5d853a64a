// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mercatohq/mercato/internal/app/system/authz"
)

// response is the JSON body every error path returns.
type response struct {
	Error string `json:"error"`
}

// JSON writes a JSON error body with the given status.
func JSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Error: msg})
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, msg)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, "authentication required")
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter) {
	JSON(w, http.StatusForbidden, "insufficient permissions")
}

// NotFound writes a 404 with the given message.
func NotFound(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusNotFound, msg)
}

// Authz writes the status an access-control error calls for: 401 when no
// user is signed in, 403 when a signed-in user lacks permission.
func Authz(w http.ResponseWriter, err error) {
	var ae *authz.AuthError
	if stderrors.As(err, &ae) {
		Unauthorized(w)
		return
	}
	Forbidden(w)
}

// Conflict writes a 409 with the given message.
func Conflict(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusConflict, msg)
}

// Logger wraps error responses that should also be recorded server-side.
// Client-caused errors (400/401/403/404) carry enough signal in access logs;
// only server faults get logged here.
type Logger struct {
	Log *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{Log: logger}
}

// ServerError logs the underlying error and writes a generic 500. The raw
// error never reaches the client.
func (l *Logger) ServerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	l.Log.Error(op,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path))
	JSON(w, http.StatusInternalServerError, "a server error occurred")
}
