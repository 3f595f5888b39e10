package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the stable error envelope: a code and a generic message.
// Collaborator error detail never reaches the client.
type errResponse struct {
	Code    int    `json:"code" validate:"required"`
	Message string `json:"message" validate:"required"`
}

func writeValidationFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errResponse{Code: http.StatusBadRequest, Message: "Validation Failed"})
}

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errResponse{Code: http.StatusNotFound, Message: "Item not found"})
}

func writeInternal(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errResponse{Code: http.StatusInternalServerError, Message: "Internal error"})
}
