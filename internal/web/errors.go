package web

// errors.go provides unified error responses for the API.
//
// Every error is logged server-side with the request ID and returned to the
// client as the core.UserMessage for it, so HTTP and CLI callers see the same
// codes.

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// codeBadRequest marks requests the API could not understand.
const codeBadRequest = "REQ001"

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError maps err through core.MapError, logs the technical detail and
// writes the user message as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	// Failures with a specific code log at warn level.
	level := slog.LevelError
	if core.IsUserFacing(err) {
		level = slog.LevelWarn
	}

	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondBadRequest rejects a malformed request body.
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	slog.Warn("bad request",
		"path", r.URL.Path,
		"reason", message,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, core.UserMessage{
		Message: message,
		Action:  `Send a JSON body such as {"files": ["/data/flow.uff"], "dry_run": false}`,
		Code:    codeBadRequest,
	}, http.StatusBadRequest)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
