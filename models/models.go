// Package models defines data structures for Buy Box analysis.
package models

import "time"

// Offer represents one seller's listing state at lookup time.
// Pointer fields distinguish "absent in the source data" from zero;
// an unrated seller is not a zero-rated seller.
type Offer struct {
	SellerID              string   `json:"seller_id"`
	ListingPrice          float64  `json:"listing_price"`
	ShippingPrice         float64  `json:"shipping_price"`
	IsFulfilledByPlatform bool     `json:"is_fulfilled_by_platform"`
	IsPrimeEligible       bool     `json:"is_prime_eligible"`
	SellerFeedbackRating  *float64 `json:"seller_feedback_rating,omitempty"`
	SellerFeedbackCount   *int     `json:"seller_feedback_count,omitempty"`
	IsInStock             bool     `json:"is_in_stock"`
	ShippingHours         *int     `json:"shipping_hours,omitempty"`
	IsFeaturedOffer       bool     `json:"is_featured_offer"`
}

// TotalPrice is the listing price plus shipping, always derived.
func (o *Offer) TotalPrice() float64 {
	return o.ListingPrice + o.ShippingPrice
}

// Factor identifies a contributing reason for a Buy Box win.
type Factor string

const (
	FactorPrice          Factor = "price"
	FactorFulfillment    Factor = "fulfillment"
	FactorPrime          Factor = "prime"
	FactorSellerRating   Factor = "seller_rating"
	FactorFeedbackVolume Factor = "feedback_volume"
	FactorAvailability   Factor = "availability"
	FactorShippingSpeed  Factor = "shipping_speed"
)

// Reason explains one factor that contributed to the winning offer.
type Reason struct {
	Factor  Factor `json:"factor"`
	Message string `json:"message"`
}

// FailureKind classifies why an identifier could not be analyzed.
type FailureKind string

const (
	// FailureTransient marks a retryable upstream fault that
	// escaped without going through the retry loop; after retries
	// it becomes FailureExhausted instead.
	FailureTransient FailureKind = "transient"
	// FailurePermanent marks an invalid identifier or authorization
	// problem that retrying cannot fix.
	FailurePermanent FailureKind = "permanent"
	// FailureExhausted marks a transient fault that survived every
	// retry attempt.
	FailureExhausted FailureKind = "exhausted_retry"
	// FailureCancelled marks an identifier skipped or aborted because
	// the run was cancelled.
	FailureCancelled FailureKind = "cancelled"
)

// Failure carries the classified cause of a per-identifier failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// AnalysisResult is the outcome for a single requested identifier.
// Exactly one is produced per input identifier, success or failure.
type AnalysisResult struct {
	ProductID           string    `json:"product_id"`
	ProductName         string    `json:"product_name,omitempty"`
	WinningOffer        *Offer    `json:"winning_offer,omitempty"`
	TotalOfferCount     int       `json:"total_offer_count"`
	DiscardedOfferCount int       `json:"discarded_offer_count,omitempty"`
	Reasons             []Reason  `json:"reasons"`
	Failure             *Failure  `json:"failure,omitempty"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// Succeeded reports whether the identifier was analyzed without failure.
func (r *AnalysisResult) Succeeded() bool {
	return r.Failure == nil
}

// RunSummary holds the overall outcome of one batch run.
type RunSummary struct {
	RunID        string
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	SuccessCount int
	FailureCount int
	FailuresBy   map[FailureKind]int
}
