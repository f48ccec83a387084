package eldorado

import (
	"strings"

	"github.com/shopspring/decimal"
)

// --------------------------------------------------------------------------
// Eldorado API DTOs
// --------------------------------------------------------------------------
//
// The flexibleOffers endpoint is schema-loose: fields come and go between
// deployments and offers sometimes arrive without a nested wrapper. Every
// field here is optional on the wire; callers must not assume presence.

// SearchResult is one entry of a flexibleOffers page.
type SearchResult struct {
	Offer OfferBody `json:"offer"`
	User  *UserRef  `json:"user"`

	// Flattened duplicates seen on older payloads where the offer body
	// is inlined at the top level instead of nested under "offer".
	ID               string `json:"id"`
	OfferTitle       string `json:"offerTitle"`
	OfferDescription string `json:"offerDescription"`
}

// OfferBody is the offer payload of a search result.
type OfferBody struct {
	ID                   string      `json:"id"`
	OfferTitle           string      `json:"offerTitle"`
	OfferDescription     string      `json:"offerDescription"`
	PricePerUnitInUSD    *Money      `json:"pricePerUnitInUSD"`
	MainOfferImage       *OfferImage `json:"mainOfferImage"`
	OfferAttributeValues []AttrValue `json:"offerAttributeIdValues"`
	Seller               *SellerRef  `json:"seller"`
}

// Money is a currency-tagged amount.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currencyCode"`
}

// OfferImage carries the image names of an offer in several sizes.
type OfferImage struct {
	OriginalSizeImage string `json:"originalSizeImage"`
	LargeImage        string `json:"largeImage"`
	SmallImage        string `json:"smallImage"`
}

// AttrValue is one marketplace attribute attached to an offer, such as
// the M/s range bucket.
type AttrValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UserRef identifies the selling user of a search result.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// SellerRef is the older seller shape nested inside the offer body.
type SellerRef struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// SearchPage is one decoded page of search results.
type SearchPage struct {
	Results     []SearchResult
	RecordCount int
	TotalPages  int
}

// searchResponse tolerates both field spellings the endpoint has used
// for the result array.
type searchResponse struct {
	Results        []SearchResult `json:"results"`
	FlexibleOffers []SearchResult `json:"flexibleOffers"`
	RecordCount    int            `json:"recordCount"`
	TotalCount     int            `json:"totalCount"`
	TotalPages     int            `json:"totalPages"`
}

// Title returns the offer title regardless of which payload shape the
// result arrived in.
func (r SearchResult) Title() string {
	if r.Offer.OfferTitle != "" {
		return r.Offer.OfferTitle
	}
	return r.OfferTitle
}

// Description returns the offer description from either payload shape.
func (r SearchResult) Description() string {
	if r.Offer.OfferDescription != "" {
		return r.Offer.OfferDescription
	}
	return r.OfferDescription
}

// ExternalID returns the marketplace offer id from either payload shape.
func (r SearchResult) ExternalID() string {
	if r.Offer.ID != "" {
		return r.Offer.ID
	}
	return r.ID
}

// Price returns the per-unit USD price, or zero when absent.
func (r SearchResult) Price() decimal.Decimal {
	if r.Offer.PricePerUnitInUSD == nil {
		return decimal.Zero
	}
	return r.Offer.PricePerUnitInUSD.Amount
}

// SellerName returns the selling user's name from whichever field
// carries it.
func (r SearchResult) SellerName() string {
	if r.User != nil && r.User.Username != "" {
		return r.User.Username
	}
	if r.Offer.Seller != nil {
		return r.Offer.Seller.Nickname
	}
	return ""
}

// ImageName returns the best available image name for the offer.
func (r SearchResult) ImageName() string {
	img := r.Offer.MainOfferImage
	if img == nil {
		return ""
	}
	if img.OriginalSizeImage != "" {
		return img.OriginalSizeImage
	}
	return img.LargeImage
}

// imageBase hosts offer images referenced by name in search results.
const imageBase = "https://fileserviceusprod.blob.core.windows.net/offerimages/"

// ImageURL resolves the offer's image name to a full URL, or "" when the
// offer has no image. Names that are already absolute pass through.
func (r SearchResult) ImageURL() string {
	name := r.ImageName()
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "http") {
		return name
	}
	return imageBase + name
}

// SellerEligibility is the response of the seller eligibility probe used
// to validate API keys.
type SellerEligibility struct {
	Eligible bool     `json:"isEligible"`
	User     *UserRef `json:"user"`
}
