package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"zenith-backend/internal/services"
	"zenith-backend/pkg/logger"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorBody{Message: message, Code: code}})
}

func writeUnauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, services.CodeUnauthorized, "Authentication failed")
}

func writeForbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, services.CodeForbidden, "Not allowed")
}

func writeInvalidPayload(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, services.CodeValidation, "Invalid payload")
}

// writeServiceError reports err to the client. Anything that is not a
// ServiceError is logged and hidden behind a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if serr, ok := services.AsServiceError(err); ok {
		WriteError(w, serr.Status, serr.Code, serr.Message)
		return
	}
	s.Log.Error("request failed",
		zap.String(logger.FieldOperation, r.Method+" "+r.URL.Path),
		zap.String(logger.FieldRequestID, middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	WriteError(w, http.StatusInternalServerError, services.CodeInternal, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathID reads a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < 1 {
		return fallback
	}
	return value
}
