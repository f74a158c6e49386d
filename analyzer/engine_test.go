package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecomlab/go-buybox/models"
)

func offer(sellerID string, total float64, mutate ...func(*models.Offer)) models.Offer {
	o := models.Offer{
		SellerID:     sellerID,
		ListingPrice: total,
		IsInStock:    true,
	}
	for _, fn := range mutate {
		fn(&o)
	}
	return o
}

func factors(reasons []models.Reason) []models.Factor {
	out := make([]models.Factor, len(reasons))
	for i, r := range reasons {
		out[i] = r.Factor
	}
	return out
}

func TestDetermineEmptySet(t *testing.T) {
	winner, reasons := Determine(nil)
	require.Nil(t, winner)
	require.Empty(t, reasons)
}

func TestDetermineFeaturedFlagIsAuthoritative(t *testing.T) {
	offers := []models.Offer{
		offer("CHEAP", 10.00),
		offer("FLAGGED", 15.00, func(o *models.Offer) { o.IsFeaturedOffer = true }),
	}

	winner, _ := Determine(offers)
	require.NotNil(t, winner)
	assert.Equal(t, "FLAGGED", winner.SellerID, "featured flag wins regardless of price")
}

func TestDetermineMultipleFeaturedFallsBackToPrice(t *testing.T) {
	offers := []models.Offer{
		offer("A", 12.00, func(o *models.Offer) { o.IsFeaturedOffer = true }),
		offer("B", 11.00, func(o *models.Offer) { o.IsFeaturedOffer = true }),
		offer("C", 10.00),
	}

	winner, _ := Determine(offers)
	require.NotNil(t, winner)
	assert.Equal(t, "C", winner.SellerID, "contradictory flags defer to the price rule")
}

func TestDetermineLowestTotalPriceWins(t *testing.T) {
	offers := []models.Offer{
		offer("B", 20.30),
		offer("A", 19.00, func(o *models.Offer) { o.ShippingPrice = 1.00 }),
	}

	winner, _ := Determine(offers)
	require.NotNil(t, winner)
	assert.Equal(t, "A", winner.SellerID)
	assert.InDelta(t, 20.00, winner.TotalPrice(), 0.001)
}

func TestDetermineTieBreaks(t *testing.T) {
	tests := []struct {
		name   string
		offers []models.Offer
		want   string
	}{
		{
			name: "in stock beats out of stock",
			offers: []models.Offer{
				offer("A", 10, func(o *models.Offer) { o.IsInStock = false }),
				offer("B", 10),
			},
			want: "B",
		},
		{
			name: "platform fulfilled beats merchant",
			offers: []models.Offer{
				offer("A", 10),
				offer("B", 10, func(o *models.Offer) { o.IsFulfilledByPlatform = true }),
			},
			want: "B",
		},
		{
			name: "smallest seller id is final",
			offers: []models.Offer{
				offer("ZSELLER", 10),
				offer("ASELLER", 10),
				offer("MSELLER", 10),
			},
			want: "ASELLER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Determinism: same input, same winner, every time.
			for i := 0; i < 5; i++ {
				winner, _ := Determine(tt.offers)
				require.NotNil(t, winner)
				assert.Equal(t, tt.want, winner.SellerID)
			}
		})
	}
}

func TestDetermineFullReasonList(t *testing.T) {
	rating96, rating80 := 96.0, 80.0
	feedback15000, feedback50 := 15000, 50
	hours24, hours96 := 24, 96

	offers := []models.Offer{
		{
			SellerID:              "A",
			ListingPrice:          20.00,
			IsFulfilledByPlatform: true,
			IsPrimeEligible:       true,
			SellerFeedbackRating:  &rating96,
			SellerFeedbackCount:   &feedback15000,
			IsInStock:             true,
			ShippingHours:         &hours24,
		},
		{
			SellerID:             "B",
			ListingPrice:         20.30,
			SellerFeedbackRating: &rating80,
			SellerFeedbackCount:  &feedback50,
			IsInStock:            true,
			ShippingHours:        &hours96,
		},
	}

	winner, reasons := Determine(offers)
	require.NotNil(t, winner)
	assert.Equal(t, "A", winner.SellerID)
	assert.Equal(t, []models.Factor{
		models.FactorPrice,
		models.FactorFulfillment,
		models.FactorPrime,
		models.FactorSellerRating,
		models.FactorFeedbackVolume,
		models.FactorAvailability,
		models.FactorShippingSpeed,
	}, factors(reasons))
	assert.Equal(t, "Lowest total price ($20.00)", reasons[0].Message)
	assert.Equal(t, "Excellent seller rating (96%)", reasons[3].Message)
	assert.Equal(t, "High feedback volume (15000 ratings)", reasons[4].Message)
}

func TestDeterminePriceReasonWithinTwoPercent(t *testing.T) {
	offers := []models.Offer{
		offer("CHEAP", 100.00),
		offer("FEATURED", 101.50, func(o *models.Offer) { o.IsFeaturedOffer = true }),
	}

	winner, reasons := Determine(offers)
	require.Equal(t, "FEATURED", winner.SellerID)
	require.NotEmpty(t, reasons)
	assert.Equal(t, models.FactorPrice, reasons[0].Factor)
	assert.Contains(t, reasons[0].Message, "within 2%")
}

func TestDetermineNoPriceReasonBeyondTwoPercent(t *testing.T) {
	offers := []models.Offer{
		offer("CHEAP", 100.00),
		offer("FEATURED", 102.50, func(o *models.Offer) { o.IsFeaturedOffer = true }),
	}

	winner, reasons := Determine(offers)
	require.Equal(t, "FEATURED", winner.SellerID)
	for _, reason := range reasons {
		assert.NotEqual(t, models.FactorPrice, reason.Factor,
			"price reason must not appear beyond 2%% of minimum")
	}
}

func TestDetermineReasonTiers(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Offer)
		factor  models.Factor
		message string
		absent  bool
	}{
		{
			name:    "good rating",
			mutate:  func(o *models.Offer) { r := 92.0; o.SellerFeedbackRating = &r },
			factor:  models.FactorSellerRating,
			message: "Good seller rating (92%)",
		},
		{
			name:   "rating below 90 contributes nothing",
			mutate: func(o *models.Offer) { r := 89.9; o.SellerFeedbackRating = &r },
			factor: models.FactorSellerRating,
			absent: true,
		},
		{
			name:   "absent rating contributes nothing",
			mutate: func(o *models.Offer) {},
			factor: models.FactorSellerRating,
			absent: true,
		},
		{
			name:    "strong feedback",
			mutate:  func(o *models.Offer) { c := 1000; o.SellerFeedbackCount = &c },
			factor:  models.FactorFeedbackVolume,
			message: "Strong feedback volume (1000 ratings)",
		},
		{
			name:   "feedback below 1000 contributes nothing",
			mutate: func(o *models.Offer) { c := 999; o.SellerFeedbackCount = &c },
			factor: models.FactorFeedbackVolume,
			absent: true,
		},
		{
			name:   "slow shipping contributes nothing",
			mutate: func(o *models.Offer) { h := 49; o.ShippingHours = &h },
			factor: models.FactorShippingSpeed,
			absent: true,
		},
		{
			name:    "boundary shipping counts",
			mutate:  func(o *models.Offer) { h := 48; o.ShippingHours = &h },
			factor:  models.FactorShippingSpeed,
			message: "Fast shipping (48h max)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			single := offer("ONLY", 10, tt.mutate)
			_, reasons := Determine([]models.Offer{single})

			var found *models.Reason
			for i := range reasons {
				if reasons[i].Factor == tt.factor {
					found = &reasons[i]
				}
			}
			if tt.absent {
				assert.Nil(t, found)
				return
			}
			require.NotNil(t, found)
			assert.Equal(t, tt.message, found.Message)
		})
	}
}

func TestDetermineOutOfStockTieScenario(t *testing.T) {
	offers := []models.Offer{
		offer("INSTOCK", 15.00),
		offer("GONE", 15.00, func(o *models.Offer) { o.IsInStock = false }),
	}

	winner, _ := Determine(offers)
	require.NotNil(t, winner)
	assert.Equal(t, "INSTOCK", winner.SellerID)
}
