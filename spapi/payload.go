package spapi

// Wire shapes for the two Selling Partner endpoints the analyzer uses.
// Optional numeric fields are pointers: the upstream omits feedback
// data for unrated sellers and shipping estimates it cannot make, and
// those omissions must survive decoding.

// Money is a price amount with its currency.
type Money struct {
	CurrencyCode string   `json:"CurrencyCode"`
	Amount       *float64 `json:"Amount"`
}

// SellerFeedback carries a seller's positive-feedback percentage and
// lifetime rating count.
type SellerFeedback struct {
	SellerPositiveFeedbackRating *float64 `json:"SellerPositiveFeedbackRating"`
	FeedbackCount                *int     `json:"FeedbackCount"`
}

// ShippingTime is the upstream delivery estimate for an offer.
type ShippingTime struct {
	MaximumHours     *int   `json:"maximumHours"`
	AvailabilityType string `json:"availabilityType"`
}

// PrimeInformation flags Prime eligibility for an offer.
type PrimeInformation struct {
	IsPrime bool `json:"IsPrime"`
}

// RawOffer is one competing offer as returned by the pricing endpoint.
type RawOffer struct {
	SellerID             string            `json:"SellerId"`
	ListingPrice         *Money            `json:"ListingPrice"`
	Shipping             *Money            `json:"Shipping"`
	IsBuyBoxWinner       bool              `json:"IsBuyBoxWinner"`
	IsFulfilledByAmazon  bool              `json:"IsFulfilledByAmazon"`
	PrimeInformation     *PrimeInformation `json:"PrimeInformation"`
	SellerFeedbackRating *SellerFeedback   `json:"SellerFeedbackRating"`
	ShippingTime         *ShippingTime     `json:"ShippingTime"`
}

// OffersPayload is the body of a getItemOffers response.
type OffersPayload struct {
	ASIN   string     `json:"ASIN"`
	Status string     `json:"status"`
	Offers []RawOffer `json:"Offers"`
}

type offersResponse struct {
	Payload OffersPayload `json:"payload"`
}

// catalogSummary is one marketplace-scoped summary of a catalog item.
type catalogSummary struct {
	MarketplaceID string `json:"marketplaceId"`
	ItemName      string `json:"itemName"`
}

type catalogItemResponse struct {
	ASIN      string           `json:"asin"`
	Summaries []catalogSummary `json:"summaries"`
}

type apiErrorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}
