package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sjsage522/couponworker/internal/coupon"
	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staticListing = `<html><body>
<div class="_6tavkoa"><div><h3>Save 20% OFF flights</h3></div><span>Expiry: 5/12/2025</span><div role="button">SEE PROMO CODE</div></div>
<div class="_6tavkoa"><h4>Get a free gift card on bookings</h4><span>GIFTCARD</span></div>
<div class="_6tavkoa"><h3>Save 20% OFF flights</h3><span>Expiry: 5/12/2025</span></div>
<div class="_6tavkoa"><h3>Deals</h3><span>50% OFF Expiry: 1/1/2026</span></div>
</body></html>`

// Headings are flattened away: only the trigger phrase separates the cards
const flatListing = `<html><body><p>Traveloka promo codes</p>
<p>SEE PROMO CODE</p><p>20% OFF</p><p>Save 20% OFF flights to Tokyo this month</p><p>Expiry: 5/12/2025</p>
<p>SEE PROMO CODE</p><p>Verified</p><p>Claim a GIFT CARD when you book a stay</p>
</body></html>`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func staticConfig(url string, strategy coupon.Strategy) CrawlerConfig {
	return CrawlerConfig{
		URL:       url,
		CacheKey:  "traveloka_rate_limited",
		BlockTime: time.Minute,
		Provider:  "Traveloka",
		Selectors: DefaultSelectors,
		Segmenter: strategy,
		MaxAscent: coupon.DefaultMaxAscent,
	}
}

func TestStaticCrawlerStructural(t *testing.T) {
	server := serve(t, staticListing)
	c := NewStaticCrawler(staticConfig(server.URL, coupon.StrategyStructural), NewMockCacheService(), &MockLogger{})

	result, err := c.FetchDeals(context.Background())
	require.NoError(t, err)

	coupons := result.Coupons()
	require.Len(t, coupons, 1, "duplicate cards collapse")
	assert.Equal(t, "Save 20% OFF flights", coupons[0].Description)
	assert.Equal(t, "20%OFF", coupons[0].Code)
	assert.Equal(t, "5/12/2025", coupons[0].ExpiryDate)
	assert.Empty(t, coupons[0].Discount)

	offers := result.Offers()
	require.Len(t, offers, 1)
	assert.Equal(t, "GIFTCARD", offers[0].Discount)
	assert.Equal(t, server.URL, result.Source)
}

func TestStaticCrawlerFallsBackToPlainText(t *testing.T) {
	server := serve(t, flatListing)
	c := NewStaticCrawler(staticConfig(server.URL, coupon.StrategyStructural), nil, &MockLogger{})
	require.NotNil(t, c.Fallback)

	result, err := c.FetchDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Coupons(), 1)
	assert.Equal(t, "Save 20% OFF flights to Tokyo this month", result.Coupons()[0].Description)
	require.Len(t, result.Offers(), 1)
	assert.Equal(t, "GIFTCARD", result.Offers()[0].Discount)
}

func TestStaticCrawlerFragments(t *testing.T) {
	server := serve(t, `<ul><li>Save 20% OFF flights</li><li>Verified</li><li>Expiry: 5/12/2025</li></ul>`)
	c := NewStaticCrawler(staticConfig(server.URL, coupon.StrategyFragments), nil, nil)
	assert.Nil(t, c.Fallback)

	result, err := c.FetchDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Coupons(), 1)
	assert.Equal(t, "20%OFF", result.Coupons()[0].Code)
}

func TestStaticCrawlerNoData(t *testing.T) {
	server := serve(t, `<html><body><h3>Nothing on offer today</h3></body></html>`)
	c := NewStaticCrawler(staticConfig(server.URL, coupon.StrategyStructural), nil, nil)

	result, err := c.FetchDeals(context.Background())
	require.Error(t, err)
	assert.True(t, crawlerrors.Is(err, crawlerrors.ErrorTypeNoData))
	assert.True(t, result.Empty())
}

func TestStaticCrawlerFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()
	c := NewStaticCrawler(staticConfig(server.URL, coupon.StrategyStructural), nil, nil)

	_, err := c.FetchDeals(context.Background())
	var ce *crawlerrors.CrawlerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, crawlerrors.ErrorTypeNetwork, ce.Type)
	assert.Equal(t, crawlerrors.FetchHTTPStatus, ce.Kind)
	assert.Equal(t, http.StatusForbidden, ce.StatusCode)
}
