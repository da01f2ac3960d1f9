package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ingest"
	"github.com/ahrav/go-precis/internal/ports"
)

type errorBody struct {
	Error string `json:"error"`
}

// StatusFor maps an application error to an HTTP status code.
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, ingest.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrEmptyValue),
		errors.Is(err, domain.ErrUnknownStyle),
		errors.Is(err, domain.ErrUnknownEngine),
		errors.Is(err, summarizer.ErrListingUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ports.ErrCircuitOpen),
		errors.Is(err, ports.ErrServiceUnavailable),
		errors.Is(err, ports.ErrAuthenticationFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ports.ErrEmptyResponse), errors.Is(err, ports.ErrInvalidResponse):
		return http.StatusBadGateway
	}

	var perr *summarizer.ProviderError
	if errors.As(err, &perr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": ...}. Internal errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Errorf("%s %s request_id=%s: %v", r.Method, r.URL.Path, RequestID(r.Context()), err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}
