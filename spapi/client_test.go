package spapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/ecomlab/go-buybox/config"
	"github.com/ecomlab/go-buybox/ratelimit"
)

const testEndpoint = "https://sellingpartnerapi-na.amazon.com"

func testClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond

	limiter, err := ratelimit.NewLimiter(map[ratelimit.Category]ratelimit.BucketConfig{
		ratelimit.CategoryCatalog: {RatePerSecond: 1000, Burst: 10},
		ratelimit.CategoryPricing: {RatePerSecond: 1000, Burst: 10},
	})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	client, err := NewClient(cfg, StaticCredentials("test-token"), limiter)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.WithTransport(transport)
	return client, transport
}

func offersURL(asin string) string {
	return fmt.Sprintf("%s/products/pricing/v0/items/%s/offers", testEndpoint, asin)
}

func catalogURL(asin string) string {
	return fmt.Sprintf("%s/catalog/2022-04-01/items/%s", testEndpoint, asin)
}

const offersBody = `{
	"payload": {
		"ASIN": "B000TEST01",
		"status": "Success",
		"Offers": [
			{
				"SellerId": "A1SELLER",
				"ListingPrice": {"CurrencyCode": "USD", "Amount": 19.99},
				"Shipping": {"CurrencyCode": "USD", "Amount": 0},
				"IsBuyBoxWinner": true,
				"IsFulfilledByAmazon": true,
				"PrimeInformation": {"IsPrime": true},
				"SellerFeedbackRating": {"SellerPositiveFeedbackRating": 97, "FeedbackCount": 12000},
				"ShippingTime": {"maximumHours": 24, "availabilityType": "NOW"}
			}
		]
	}
}`

func TestFetchOffersSuccess(t *testing.T) {
	client, transport := testClient(t)
	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		httpmock.NewStringResponder(http.StatusOK, offersBody))

	payload, err := client.FetchOffers(context.Background(), "B000TEST01")
	if err != nil {
		t.Fatalf("fetch offers: %v", err)
	}
	if len(payload.Offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(payload.Offers))
	}
	if payload.Offers[0].SellerID != "A1SELLER" {
		t.Fatalf("seller = %q", payload.Offers[0].SellerID)
	}
	if !payload.Offers[0].IsBuyBoxWinner {
		t.Fatalf("buy box flag not decoded")
	}
}

func TestFetchOffersRetriesTransientThenSucceeds(t *testing.T) {
	client, transport := testClient(t)

	calls := 0
	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, `{}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, offersBody), nil
		})

	payload, err := client.FetchOffers(context.Background(), "B000TEST01")
	if err != nil {
		t.Fatalf("expected success on attempt 3, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(payload.Offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(payload.Offers))
	}
}

func TestFetchOffersRateLimitedThenSucceeds(t *testing.T) {
	client, transport := testClient(t)

	calls := 0
	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests,
					`{"errors":[{"code":"QuotaExceeded","message":"slow down"}]}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, offersBody), nil
		})

	if _, err := client.FetchOffers(context.Background(), "B000TEST01"); err != nil {
		t.Fatalf("expected retry after 429, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestFetchOffersPermanentFailureNoRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(err error) bool {
				var notFound ErrNotFound
				return errors.As(err, &notFound)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check: func(err error) bool {
				var invalid ErrInvalidInput
				return errors.As(err, &invalid)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(err error) bool {
				var unauthorized ErrUnauthorized
				return errors.As(err, &unauthorized)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := testClient(t)
			calls := 0
			transport.RegisterResponder("GET", offersURL("B000TEST01"),
				func(req *http.Request) (*http.Response, error) {
					calls++
					return httpmock.NewStringResponse(tt.status, `{}`), nil
				})

			_, err := client.FetchOffers(context.Background(), "B000TEST01")
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if !tt.check(err) {
				t.Fatalf("wrong error type: %v", err)
			}
			if calls != 1 {
				t.Fatalf("calls = %d, want 1 (no retry on permanent failure)", calls)
			}
		})
	}
}

func TestFetchOffersExhaustsRetries(t *testing.T) {
	client, transport := testClient(t)

	calls := 0
	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusServiceUnavailable, `{}`), nil
		})

	_, err := client.FetchOffers(context.Background(), "B000TEST01")
	var exhausted ErrExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", exhausted.Attempts)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}

	var server ErrServer
	if !errors.As(err, &server) {
		t.Fatalf("exhausted error should wrap the last transient failure")
	}
}

func TestFetchOffersSendsToken(t *testing.T) {
	client, transport := testClient(t)

	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("x-amz-access-token"); got != "test-token" {
				t.Fatalf("access token header = %q", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, offersBody), nil
		})

	if _, err := client.FetchOffers(context.Background(), "B000TEST01"); err != nil {
		t.Fatalf("fetch offers: %v", err)
	}
}

func TestFetchProductName(t *testing.T) {
	client, transport := testClient(t)
	transport.RegisterResponder("GET", catalogURL("B000TEST01"),
		httpmock.NewStringResponder(http.StatusOK, `{
			"asin": "B000TEST01",
			"summaries": [
				{"marketplaceId": "OTHER", "itemName": "Wrong Name"},
				{"marketplaceId": "ATVPDKIKX0DER", "itemName": "Widget Deluxe"}
			]
		}`))

	name, err := client.FetchProductName(context.Background(), "B000TEST01")
	if err != nil {
		t.Fatalf("fetch name: %v", err)
	}
	if name != "Widget Deluxe" {
		t.Fatalf("name = %q, want marketplace-matched summary", name)
	}
}

func TestFetchProductNameFallsBackToFirstSummary(t *testing.T) {
	client, transport := testClient(t)
	transport.RegisterResponder("GET", catalogURL("B000TEST01"),
		httpmock.NewStringResponder(http.StatusOK, `{
			"asin": "B000TEST01",
			"summaries": [{"marketplaceId": "OTHER", "itemName": "Imported Widget"}]
		}`))

	name, err := client.FetchProductName(context.Background(), "B000TEST01")
	if err != nil {
		t.Fatalf("fetch name: %v", err)
	}
	if name != "Imported Widget" {
		t.Fatalf("name = %q, want first-summary fallback", name)
	}
}

func TestFetchProductNameNotFoundIsEmpty(t *testing.T) {
	client, transport := testClient(t)
	transport.RegisterResponder("GET", catalogURL("B000GONE"),
		httpmock.NewStringResponder(http.StatusNotFound, `{}`))

	name, err := client.FetchProductName(context.Background(), "B000GONE")
	if err != nil {
		t.Fatalf("not-found catalog lookup should not fail: %v", err)
	}
	if name != "" {
		t.Fatalf("name = %q, want empty", name)
	}
}

func TestFetchProductNameUsesCache(t *testing.T) {
	client, transport := testClient(t)

	calls := 0
	transport.RegisterResponder("GET", catalogURL("B000TEST01"),
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(http.StatusOK, `{
				"asin": "B000TEST01",
				"summaries": [{"marketplaceId": "ATVPDKIKX0DER", "itemName": "Widget"}]
			}`), nil
		})

	for i := 0; i < 3; i++ {
		if _, err := client.FetchProductName(context.Background(), "B000TEST01"); err != nil {
			t.Fatalf("fetch name %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (cache must absorb repeats)", calls)
	}
}

func TestVerify(t *testing.T) {
	client, _ := testClient(t)
	if err := client.Verify(context.Background()); err != nil {
		t.Fatalf("verify with valid token: %v", err)
	}

	cfg := config.DefaultConfig()
	limiter, err := ratelimit.NewLimiter(map[ratelimit.Category]ratelimit.BucketConfig{
		ratelimit.CategoryCatalog: {RatePerSecond: 1, Burst: 1},
		ratelimit.CategoryPricing: {RatePerSecond: 1, Burst: 1},
	})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	badClient, err := NewClient(cfg, StaticCredentials(""), limiter)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = badClient.Verify(context.Background())
	var unauthorized ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFetchOffersCancelledContext(t *testing.T) {
	client, transport := testClient(t)
	transport.RegisterResponder("GET", offersURL("B000TEST01"),
		httpmock.NewStringResponder(http.StatusOK, offersBody))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchOffers(ctx, "B000TEST01")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
