package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/glitchedstore/farmpanel/internal/domain"
	"github.com/glitchedstore/farmpanel/internal/service"
)

// ListingManager defines the methods that the listing handler requires from
// the service layer.
type ListingManager interface {
	Register(ctx context.Context, p service.RegisterParams) (domain.TrackedListing, error)
	Get(ctx context.Context, ownerKey, code string) (domain.TrackedListing, error)
	List(ctx context.Context, ownerKey string) ([]domain.TrackedListing, error)
	Update(ctx context.Context, ownerKey, code string, p service.UpdateParams) (domain.TrackedListing, error)
	Delete(ctx context.Context, ownerKey, code string) error
}

// ListingHandler serves tracked-listing CRUD endpoints. Every request is
// scoped to the caller's owner key.
type ListingHandler struct {
	listings ListingManager
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler with the given service and logger.
func NewListingHandler(listings ListingManager, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		logger:   logger,
	}
}

// registerRequest is the POST /api/listings request body.
type registerRequest struct {
	ItemName string  `json:"itemName"`
	Rate     float64 `json:"rate"`
	Code     string  `json:"code,omitempty"`
	Price    string  `json:"price,omitempty"`
}

// updateRequest is the PUT /api/listings/{code} request body. Absent fields
// are left unchanged.
type updateRequest struct {
	ItemName *string  `json:"itemName,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	Price    *string  `json:"price,omitempty"`
}

// listListingsResponse wraps the list endpoint output.
type listListingsResponse struct {
	Listings []domain.TrackedListing `json:"listings"`
	Total    int                     `json:"total"`
}

// ListListings returns all of the caller's tracked listings.
// GET /api/listings
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	listings, err := h.listings.List(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list listings failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}
	if listings == nil {
		listings = []domain.TrackedListing{}
	}

	writeJSON(w, http.StatusOK, listListingsResponse{
		Listings: listings,
		Total:    len(listings),
	})
}

// RegisterListing creates a tracked listing in the pending state.
// POST /api/listings
func (h *ListingHandler) RegisterListing(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ItemName) == "" {
		writeError(w, http.StatusBadRequest, "itemName is required")
		return
	}

	price := decimal.Zero
	if req.Price != "" {
		var err error
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "price must be a decimal string")
			return
		}
	}

	listing, err := h.listings.Register(r.Context(), service.RegisterParams{
		OwnerKey: owner,
		ItemName: req.ItemName,
		Rate:     req.Rate,
		Code:     req.Code,
		Price:    price,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "code is not a valid listing code")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "a listing with this code already exists")
		default:
			h.logger.ErrorContext(r.Context(), "handler: register listing failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to register listing")
		}
		return
	}

	writeJSON(w, http.StatusCreated, listing)
}

// GetListing returns a single tracked listing by code.
// GET /api/listings/{code}
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	listing, err := h.listings.Get(r.Context(), owner, pathParam(r, "code"))
	if err != nil {
		writeListingError(w, r, h.logger, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// UpdateListing applies the caller's edits to a tracked listing.
// PUT /api/listings/{code}
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	params := service.UpdateParams{
		ItemName: req.ItemName,
		Rate:     req.Rate,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "price must be a decimal string")
			return
		}
		params.Price = &price
	}

	listing, err := h.listings.Update(r.Context(), owner, pathParam(r, "code"), params)
	if err != nil {
		writeListingError(w, r, h.logger, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// DeleteListing removes the caller's tracked listing.
// DELETE /api/listings/{code}
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.listings.Delete(r.Context(), owner, pathParam(r, "code")); err != nil {
		writeListingError(w, r, h.logger, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeListingError maps service errors for single-listing operations onto
// HTTP statuses.
func writeListingError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "listing not found")
	case errors.Is(err, domain.ErrNotOwner):
		// Another owner's code is indistinguishable from a missing one.
		writeError(w, http.StatusNotFound, "listing not found")
	default:
		logger.ErrorContext(r.Context(), "handler: "+op+" listing failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+op+" listing")
	}
}
