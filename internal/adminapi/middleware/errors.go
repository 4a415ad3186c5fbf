package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorResponse mirrors adminapi's own error shape, duplicated here to
// avoid an import cycle between middleware and adminapi.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message}); err != nil {
		slog.Error("failed to encode middleware error response", "error", err)
	}
}
