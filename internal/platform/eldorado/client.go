package eldorado

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

const (
	// gameID is the marketplace's identifier for the game whose items
	// this panel trades.
	gameID = "259"

	defaultPageSize = 100
	requestTimeout  = 15 * time.Second
)

// Client is the REST client for the Eldorado marketplace API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a marketplace client against the given API root,
// e.g. "https://www.eldorado.gg".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// SearchParams selects one page of marketplace offers.
type SearchParams struct {
	// Query is the free-text search term; empty scans the whole category.
	Query string
	// BandAttrID filters results to one M/s range bucket when non-empty.
	BandAttrID string
	// PageIndex is 1-based.
	PageIndex int
	PageSize  int
	// SortByPrice requests ascending price order; the default sorts by
	// creation date descending, which reconciliation prefers.
	SortByPrice bool
}

// SearchOffers fetches one page of offers. A 429 response surfaces as
// ErrRateLimited so callers can back off rather than treat the page as
// empty.
func (c *Client) SearchOffers(ctx context.Context, p SearchParams) (SearchPage, error) {
	if p.PageIndex < 1 {
		p.PageIndex = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}

	params := url.Values{}
	params.Set("gameId", gameID)
	params.Set("category", "CustomItem")
	params.Set("tradeEnvironmentValue0", "Brainrot")
	params.Set("pageSize", strconv.Itoa(p.PageSize))
	params.Set("pageIndex", strconv.Itoa(p.PageIndex))
	if p.SortByPrice {
		params.Set("offerSortingCriterion", "Price")
		params.Set("isAscending", "true")
	} else {
		params.Set("offerSortingCriterion", "CreationDate")
		params.Set("isAscending", "false")
	}
	if p.BandAttrID != "" {
		params.Set("offerAttributeIdsCsv", p.BandAttrID)
	}
	if p.Query != "" {
		params.Set("searchQuery", p.Query)
	}

	body, err := c.doRequest(ctx, "/api/flexibleOffers?"+params.Encode(), "")
	if err != nil {
		return SearchPage{}, fmt.Errorf("eldorado: search offers page %d: %w", p.PageIndex, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SearchPage{}, fmt.Errorf("eldorado: decode search page %d: %w", p.PageIndex, err)
	}

	page := SearchPage{
		Results:     resp.Results,
		RecordCount: resp.RecordCount,
		TotalPages:  resp.TotalPages,
	}
	if page.Results == nil {
		page.Results = resp.FlexibleOffers
	}
	if page.RecordCount == 0 {
		page.RecordCount = resp.TotalCount
	}
	return page, nil
}

// CheckSellerEligibility probes the seller eligibility endpoint with a
// personal API key. Used to validate keys before storing them; 401/403
// map to ErrInvalidAPIKey and 429 to ErrRateLimited.
func (c *Client) CheckSellerEligibility(ctx context.Context, apiKey string) (SellerEligibility, error) {
	body, err := c.doRequest(ctx, "/api/orders/me/sellerApiEligibility", apiKey)
	if err != nil {
		return SellerEligibility{}, fmt.Errorf("eldorado: seller eligibility: %w", err)
	}

	var out SellerEligibility
	if err := json.Unmarshal(body, &out); err != nil {
		return SellerEligibility{}, fmt.Errorf("eldorado: decode eligibility: %w", err)
	}
	return out, nil
}

// SellerProfile fetches the key owner's profile via their predefined
// offers listing, which is the cheapest authenticated endpoint exposing
// the seller name.
func (c *Client) SellerProfile(ctx context.Context, apiKey string) (UserRef, error) {
	body, err := c.doRequest(ctx, "/api/predefinedOffers/me?page=1&pageSize=1", apiKey)
	if err != nil {
		return UserRef{}, fmt.Errorf("eldorado: seller profile: %w", err)
	}

	var resp struct {
		User *UserRef `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return UserRef{}, fmt.Errorf("eldorado: decode seller profile: %w", err)
	}
	if resp.User == nil {
		return UserRef{}, nil
	}
	return *resp.User, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doRequest(ctx context.Context, path, apiKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	// The public endpoint rejects requests missing this header.
	req.Header.Set("swagger", "Swager request")
	if apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+apiKey)
		req.Header.Set("User-Agent", "FarmerPanel/1.0")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("HTTP %d: %w", statusCode, domain.ErrInvalidAPIKey)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("HTTP %d: %w", statusCode, domain.ErrNotFound)
	default:
		return fmt.Errorf("HTTP %d", statusCode)
	}
}
