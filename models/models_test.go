package models

import "testing"

func TestOfferTotalPriceIsDerived(t *testing.T) {
	offer := Offer{ListingPrice: 19.99, ShippingPrice: 4.99}
	if got := offer.TotalPrice(); got != 24.98 {
		t.Fatalf("total price = %.2f, want 24.98", got)
	}

	// Recomputing must always match the parts.
	offer.ShippingPrice = 0
	if got := offer.TotalPrice(); got != offer.ListingPrice {
		t.Fatalf("total price = %.2f, want listing price %.2f", got, offer.ListingPrice)
	}
}

func TestAnalysisResultSucceeded(t *testing.T) {
	ok := AnalysisResult{ProductID: "B01"}
	if !ok.Succeeded() {
		t.Fatalf("result without failure should be successful")
	}

	failed := AnalysisResult{
		ProductID: "B02",
		Failure:   &Failure{Kind: FailurePermanent, Message: "not found"},
	}
	if failed.Succeeded() {
		t.Fatalf("result with failure should not be successful")
	}
	if failed.Failure.Error() != "permanent: not found" {
		t.Fatalf("failure error = %q", failed.Failure.Error())
	}
}
