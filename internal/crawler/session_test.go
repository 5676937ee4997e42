package crawler

import (
	"strings"
	"testing"
	"time"

	"sjsage522/couponworker/config"
	"sjsage522/couponworker/internal"
	"sjsage522/couponworker/internal/coupon"
	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetMatches(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<body>
<div role="button">See Promo Code</div>
<div role="button" title="Get deal">GET DEAL</div>
<button>Load more deals</button>
<a href="#">LOAD MORE</a>
</body>`))
	require.NoError(t, err)

	assert.Equal(t, 1, DefaultSelectors.PromoButton.Matches(doc.Selection).Length())
	assert.Equal(t, 1, DefaultSelectors.DealButton.Matches(doc.Selection).Length())
	assert.Equal(t, 2, DefaultSelectors.LoadMore.Matches(doc.Selection).Length())
	assert.Equal(t, 2, Target{CSS: "[role='button']"}.Matches(doc.Selection).Length())
}

func TestTargetScriptQuotesInput(t *testing.T) {
	script := Target{CSS: `a[title="x"]`, Text: "Don't"}.script()
	assert.Contains(t, script, `document.querySelectorAll("a[title=\"x\"]")`)
	assert.Contains(t, script, `.includes("don't")`)
}

func TestCreateCrawler(t *testing.T) {
	cfg := &config.Config{
		SourceURL:      "https://www.cuponation.com.sg/traveloka-promo-code",
		Provider:       "Traveloka",
		Mode:           config.ModeStatic,
		Segmenter:      config.SegmenterPlainText,
		CardClass:      "_custom",
		MaxAscent:      4,
		RateLimitBlock: 500 * time.Second,
		SettleTimeout:  time.Second,
		PollInterval:   time.Millisecond,
	}

	c, err := CreateCrawler(cfg, internal.Dependencies{Cache: NewMockCacheService()})
	require.NoError(t, err)
	static, ok := c.(*StaticCrawler)
	require.True(t, ok)
	assert.Equal(t, coupon.StrategyPlainText, static.Segmenter.Name())
	assert.Nil(t, static.Fallback)
	assert.Equal(t, "traveloka_rate_limited", static.CacheKey)
	assert.Equal(t, "Traveloka", c.GetProvider())

	cfg.Mode = config.ModeInteractive
	c, err = CreateCrawler(cfg, internal.Dependencies{})
	require.NoError(t, err)
	interactive, ok := c.(*InteractiveCrawler)
	require.True(t, ok)
	assert.Equal(t, "_custom", interactive.Selectors.CardClass)
	assert.Equal(t, 4, interactive.MaxAscent)
	assert.Equal(t, 5, interactive.ScrollRounds)

	cfg.Mode = "bogus"
	_, err = CreateCrawler(cfg, internal.Dependencies{})
	assert.True(t, crawlerrors.Is(err, crawlerrors.ErrorTypeConfiguration))
}
