package eldorado

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

func TestSearchOffersDecodesNestedShape(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"results": [
				{
					"offer": {
						"id": "off-1",
						"offerTitle": "Tralalero 150M/s #GS12AB34",
						"pricePerUnitInUSD": {"amount": 9.5, "currencyCode": "USD"},
						"mainOfferImage": {"originalSizeImage": "img1.png"}
					},
					"user": {"id": "u1", "username": "seller1"}
				}
			],
			"recordCount": 412,
			"totalPages": 18
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	page, err := c.SearchOffers(context.Background(), SearchParams{
		Query:       "tralalero",
		BandAttrID:  "0-4",
		PageIndex:   2,
		PageSize:    24,
		SortByPrice: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "259", gotQuery["gameId"])
	assert.Equal(t, "CustomItem", gotQuery["category"])
	assert.Equal(t, "Price", gotQuery["offerSortingCriterion"])
	assert.Equal(t, "true", gotQuery["isAscending"])
	assert.Equal(t, "0-4", gotQuery["offerAttributeIdsCsv"])
	assert.Equal(t, "tralalero", gotQuery["searchQuery"])
	assert.Equal(t, "2", gotQuery["pageIndex"])

	require.Len(t, page.Results, 1)
	r := page.Results[0]
	assert.Equal(t, "off-1", r.ExternalID())
	assert.Equal(t, "Tralalero 150M/s #GS12AB34", r.Title())
	assert.Equal(t, "9.5", r.Price().String())
	assert.Equal(t, "seller1", r.SellerName())
	assert.Equal(t, imageBase+"img1.png", r.ImageURL())
	assert.Equal(t, 412, page.RecordCount)
	assert.Equal(t, 18, page.TotalPages)
}

func TestSearchOffersDecodesFlatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"flexibleOffers": [
				{"id": "flat-1", "offerTitle": "Odin 2B/s", "offerDescription": "desc [AB23CD45]"}
			],
			"totalCount": 1
		}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL).SearchOffers(context.Background(), SearchParams{PageIndex: 1})
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, "flat-1", page.Results[0].ExternalID())
	assert.Equal(t, "Odin 2B/s", page.Results[0].Title())
	assert.Equal(t, "desc [AB23CD45]", page.Results[0].Description())
	assert.True(t, page.Results[0].Price().IsZero())
	assert.Equal(t, 1, page.RecordCount)
}

func TestSearchOffersRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SearchOffers(context.Background(), SearchParams{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestCheckSellerEligibilityInvalidKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key bad-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CheckSellerEligibility(context.Background(), "bad-key")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}
