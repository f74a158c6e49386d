package analyzer

import (
	"fmt"

	"github.com/ecomlab/go-buybox/models"
)

// Thresholds for reason derivation.
const (
	priceCompetitiveMargin = 1.02
	ratingExcellent        = 95.0
	ratingGood             = 90.0
	feedbackHigh           = 10000
	feedbackStrong         = 1000
	fastShippingHours      = 48
)

// Determine selects the winning offer and derives its ordered reasons.
// An offer explicitly flagged as featured by the source wins when that
// flag is unambiguous (exactly one); otherwise the lowest total price
// wins, with a deterministic tie-break. An empty offer set yields no
// winner and no reasons.
func Determine(offers []models.Offer) (*models.Offer, []models.Reason) {
	winner := selectWinner(offers)
	if winner == nil {
		return nil, nil
	}
	return winner, deriveReasons(winner, offers)
}

func selectWinner(offers []models.Offer) *models.Offer {
	if len(offers) == 0 {
		return nil
	}

	// Authoritative signal first: a single featured flag decides.
	// Multiple flagged offers are contradictory source data, so the
	// price rule takes over.
	var featured *models.Offer
	featuredCount := 0
	for i := range offers {
		if offers[i].IsFeaturedOffer {
			featured = &offers[i]
			featuredCount++
		}
	}
	if featuredCount == 1 {
		return featured
	}

	best := &offers[0]
	for i := 1; i < len(offers); i++ {
		if betterOffer(&offers[i], best) {
			best = &offers[i]
		}
	}
	return best
}

// betterOffer reports whether candidate beats current under the price
// rule: lower total price, then in-stock over out-of-stock, then
// platform-fulfilled over not, then smallest seller ID.
func betterOffer(candidate, current *models.Offer) bool {
	if candidate.TotalPrice() != current.TotalPrice() {
		return candidate.TotalPrice() < current.TotalPrice()
	}
	if candidate.IsInStock != current.IsInStock {
		return candidate.IsInStock
	}
	if candidate.IsFulfilledByPlatform != current.IsFulfilledByPlatform {
		return candidate.IsFulfilledByPlatform
	}
	return candidate.SellerID < current.SellerID
}

// deriveReasons evaluates each factor independently against the full
// offer set and reports every qualifying one, in fixed order.
func deriveReasons(winner *models.Offer, offers []models.Offer) []models.Reason {
	reasons := make([]models.Reason, 0, 7)

	minTotal := offers[0].TotalPrice()
	for _, o := range offers[1:] {
		if t := o.TotalPrice(); t < minTotal {
			minTotal = t
		}
	}

	switch {
	case winner.TotalPrice() == minTotal:
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorPrice,
			Message: fmt.Sprintf("Lowest total price ($%.2f)", winner.TotalPrice()),
		})
	case winner.TotalPrice() <= minTotal*priceCompetitiveMargin:
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorPrice,
			Message: fmt.Sprintf("Competitive price within 2%% of lowest ($%.2f)", winner.TotalPrice()),
		})
	}

	if winner.IsFulfilledByPlatform {
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorFulfillment,
			Message: "Fulfilled by the platform (FBA)",
		})
	}
	if winner.IsPrimeEligible {
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorPrime,
			Message: "Prime eligible",
		})
	}

	if rating := winner.SellerFeedbackRating; rating != nil {
		switch {
		case *rating >= ratingExcellent:
			reasons = append(reasons, models.Reason{
				Factor:  models.FactorSellerRating,
				Message: fmt.Sprintf("Excellent seller rating (%.0f%%)", *rating),
			})
		case *rating >= ratingGood:
			reasons = append(reasons, models.Reason{
				Factor:  models.FactorSellerRating,
				Message: fmt.Sprintf("Good seller rating (%.0f%%)", *rating),
			})
		}
	}

	if count := winner.SellerFeedbackCount; count != nil {
		switch {
		case *count >= feedbackHigh:
			reasons = append(reasons, models.Reason{
				Factor:  models.FactorFeedbackVolume,
				Message: fmt.Sprintf("High feedback volume (%d ratings)", *count),
			})
		case *count >= feedbackStrong:
			reasons = append(reasons, models.Reason{
				Factor:  models.FactorFeedbackVolume,
				Message: fmt.Sprintf("Strong feedback volume (%d ratings)", *count),
			})
		}
	}

	if winner.IsInStock {
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorAvailability,
			Message: "In stock and ready to ship",
		})
	}

	if hours := winner.ShippingHours; hours != nil && *hours <= fastShippingHours {
		reasons = append(reasons, models.Reason{
			Factor:  models.FactorShippingSpeed,
			Message: fmt.Sprintf("Fast shipping (%dh max)", *hours),
		})
	}

	return reasons
}
