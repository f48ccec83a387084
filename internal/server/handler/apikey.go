package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/service"
)

// APIKeyManager defines the methods that the API key handler requires from
// the service layer.
type APIKeyManager interface {
	Validate(ctx context.Context, apiKey string) (service.ValidationResult, error)
	Save(ctx context.Context, ownerKey, apiKey string) (service.KeyStatus, error)
	Status(ctx context.Context, ownerKey string) (service.KeyStatus, error)
	Delete(ctx context.Context, ownerKey string) error
}

// APIKeyHandler serves the marketplace API key endpoints. The key itself is
// write-only through this surface.
type APIKeyHandler struct {
	keys   APIKeyManager
	logger *slog.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler with the given service and logger.
func NewAPIKeyHandler(keys APIKeyManager, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:   keys,
		logger: logger,
	}
}

// saveKeyRequest is the POST /api/apikey request body.
type saveKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// ValidateKey probes the marketplace with a candidate key without
// storing it, so the panel can check a key before committing it.
// POST /api/apikey/validate
func (h *APIKeyHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req saveKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.keys.Validate(r.Context(), req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAPIKey):
			writeError(w, http.StatusBadRequest, "the marketplace rejected this API key")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "marketplace rate limit reached, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: validate api key failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to validate api key")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SaveKey validates and stores the caller's marketplace API key.
// POST /api/apikey
func (h *APIKeyHandler) SaveKey(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req saveKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status, err := h.keys.Save(r.Context(), owner, req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAPIKey):
			writeError(w, http.StatusBadRequest, "the marketplace rejected this API key")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "marketplace rate limit reached, retry shortly")
		default:
			h.logger.ErrorContext(r.Context(), "handler: save api key failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to save api key")
		}
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// KeyStatus reports whether the caller has a stored key and its metadata.
// GET /api/apikey
func (h *APIKeyHandler) KeyStatus(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	status, err := h.keys.Status(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: api key status failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read api key status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DeleteKey removes the caller's stored key.
// DELETE /api/apikey
func (h *APIKeyHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.keys.Delete(r.Context(), owner); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: delete api key failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete api key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
