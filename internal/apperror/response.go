package apperror

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, ErrInternal)
	}

	attrs := []any{"code", appErr.Code, "status", appErr.StatusCode}
	if appErr.Internal != nil {
		attrs = append(attrs, "internal_error", appErr.Internal.Error())
	}
	// Undecodable uploads and bad options are the client's problem.
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     appErr.Code,
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: logger.RequestID(r.Context()),
	})
}
