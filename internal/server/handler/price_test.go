package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

type stubPriceService struct {
	rec  domain.PriceRecommendation
	err  error
	hist []domain.PriceLogEntry
}

func (s *stubPriceService) Recommend(_ context.Context, _ string, _ float64) (domain.PriceRecommendation, error) {
	return s.rec, s.err
}

func (s *stubPriceService) History(_ context.Context, _ string, _ float64, _ domain.ListOpts) ([]domain.PriceLogEntry, error) {
	return s.hist, s.err
}

func priceRequest(t *testing.T, svc PriceService, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewPriceHandler(svc, slog.New(slog.DiscardHandler))
	rr := httptest.NewRecorder()
	h.GetPrice(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestGetPriceOK(t *testing.T) {
	svc := &stubPriceService{rec: domain.PriceRecommendation{
		SuggestedPrice: decimal.RequireFromString("9"),
		Rationale:      "upper 100M/s @ $10, no lower -> -$1",
		Band:           domain.BandOf(90),
		SampleSize:     12,
		ComputedAt:     time.Now().UTC(),
	}}

	rr := priceRequest(t, svc, "/api/price?item=Tralalero+Tralala&rate=90")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp priceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "9.00", resp.SuggestedPrice)
	assert.Equal(t, 12, resp.SampleSize)
	assert.Equal(t, "Tralalero Tralala", resp.Item)
}

func TestGetPriceParamValidation(t *testing.T) {
	svc := &stubPriceService{}

	assert.Equal(t, http.StatusBadRequest, priceRequest(t, svc, "/api/price?rate=90").Code)
	assert.Equal(t, http.StatusBadRequest, priceRequest(t, svc, "/api/price?item=x").Code)
	assert.Equal(t, http.StatusBadRequest, priceRequest(t, svc, "/api/price?item=x&rate=abc").Code)
	assert.Equal(t, http.StatusBadRequest, priceRequest(t, svc, "/api/price?item=x&rate=-5").Code)
}

func TestGetPriceHistory(t *testing.T) {
	svc := &stubPriceService{hist: []domain.PriceLogEntry{{
		SuggestedPrice: decimal.RequireFromString("8.5"),
		Rationale:      "undercut lower 80M/s @ $9.50",
		Band:           domain.BandOf(90),
		ComputedAt:     time.Now().UTC(),
	}}}

	h := NewPriceHandler(svc, slog.New(slog.DiscardHandler))
	rr := httptest.NewRecorder()
	h.GetPriceHistory(rr, httptest.NewRequest(http.MethodGet, "/api/price/history?item=x&rate=90", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		History []priceHistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, "8.50", resp.History[0].SuggestedPrice)
}

func TestGetPriceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrAmbiguousIdentity, http.StatusNotFound},
		{domain.ErrInsufficientData, http.StatusUnprocessableEntity},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := priceRequest(t, &stubPriceService{err: tc.err}, "/api/price?item=x&rate=90")
		assert.Equal(t, tc.code, rr.Code, "error %v", tc.err)
	}
}
