package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/domain"
	"github.com/eatsalad239/gato-blanco-ops/internal/platform/httpx"
	"github.com/eatsalad239/gato-blanco-ops/internal/services"
)

const maxRequestBodySize = 64 * 1024

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSONBody reads a bounded JSON request body into dst.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeServiceError maps the service error taxonomy onto the JSON envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvalidCard):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_card", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrMethodUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("method_unavailable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrStorageUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("storage_unavailable", "storage temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process request", http.StatusInternalServerError))
	}
}

func parseStatusFilters(values []string) ([]domain.RecordStatus, error) {
	statuses := make([]domain.RecordStatus, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status := domain.RecordStatus(part)
			if !status.Valid() {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func parseTimeParam(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(value))
}

// parseDateRange reads optional created_after / created_before query params.
func parseDateRange(r *http.Request) (domain.RangeQuery[time.Time], error) {
	var dateRange domain.RangeQuery[time.Time]
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			return dateRange, fmt.Errorf("created_after must be a valid RFC3339 timestamp")
		}
		dateRange.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			return dateRange, fmt.Errorf("created_before must be a valid RFC3339 timestamp")
		}
		dateRange.To = &ts
	}
	return dateRange, nil
}

type customerPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Origin string `json:"origin,omitempty"`
}

func (p customerPayload) toProfile() services.CustomerProfile {
	return services.CustomerProfile{
		Name:   p.Name,
		Email:  p.Email,
		Phone:  p.Phone,
		Origin: domain.OriginClass(p.Origin),
	}
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}
