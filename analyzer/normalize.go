// Package analyzer turns raw competing-offer payloads into normalized
// offers and determines the featured ("Buy Box") winner with an
// ordered explanation of the win.
package analyzer

import (
	"log/slog"

	"github.com/ecomlab/go-buybox/models"
	"github.com/ecomlab/go-buybox/spapi"
)

// availabilityInStock is the upstream marker for immediately
// shippable offers.
const availabilityInStock = "NOW"

// Normalize converts raw payload entries into immutable Offer records.
// Entries with a missing or negative listing price are discarded and
// counted; a missing shipping amount means free shipping and is kept.
// Feedback rating and count stay nil when the source omits them; an
// unrated seller is not a zero-rated one.
func Normalize(raw []spapi.RawOffer) ([]models.Offer, int) {
	offers := make([]models.Offer, 0, len(raw))
	discarded := 0

	for _, entry := range raw {
		if entry.ListingPrice == nil || entry.ListingPrice.Amount == nil || *entry.ListingPrice.Amount < 0 {
			discarded++
			slog.Debug("discarding offer with missing or malformed price",
				slog.String("seller_id", entry.SellerID),
			)
			continue
		}

		offer := models.Offer{
			SellerID:              entry.SellerID,
			ListingPrice:          *entry.ListingPrice.Amount,
			IsFulfilledByPlatform: entry.IsFulfilledByAmazon,
			IsFeaturedOffer:       entry.IsBuyBoxWinner,
		}

		if entry.Shipping != nil && entry.Shipping.Amount != nil && *entry.Shipping.Amount >= 0 {
			offer.ShippingPrice = *entry.Shipping.Amount
		}
		if entry.PrimeInformation != nil {
			offer.IsPrimeEligible = entry.PrimeInformation.IsPrime
		}
		if entry.SellerFeedbackRating != nil {
			offer.SellerFeedbackRating = entry.SellerFeedbackRating.SellerPositiveFeedbackRating
			offer.SellerFeedbackCount = entry.SellerFeedbackRating.FeedbackCount
		}
		if entry.ShippingTime != nil {
			offer.IsInStock = entry.ShippingTime.AvailabilityType == availabilityInStock
			offer.ShippingHours = entry.ShippingTime.MaximumHours
		}

		offers = append(offers, offer)
	}

	return offers, discarded
}
