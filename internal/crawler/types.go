package crawler

import (
	"context"
	"time"

	"sjsage522/couponworker/internal/coupon"
)

// Crawler interface defines the contract for all page source providers
type Crawler interface {
	// FetchDeals acquires the source page and returns its deduplicated records
	FetchDeals(ctx context.Context) (coupon.ResultSet, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetProvider returns the provider name for the crawler
	GetProvider() string
}

// Target describes a set of live elements: those matching CSS whose text
// contains Text, compared case-insensitively. An empty Text matches every
// element selected by CSS.
type Target struct {
	CSS  string
	Text string
}

// Selectors contains the page structure the crawlers rely on
type Selectors struct {
	// Headings carrying deal titles
	Title string
	// CardClass is the generated class marking one deal card
	CardClass string
	// Expiry is the span holding a card's expiry line
	Expiry string
	// RevealedCode holds the issued code inside a reveal panel
	RevealedCode string

	PromoButton   Target
	DealButton    Target
	CopyButton    Target
	LoadMore      Target
	AcceptCookies Target
}

// DefaultSelectors are the selectors of the cuponation listing
var DefaultSelectors = Selectors{
	Title:        coupon.DefaultAnchors,
	CardClass:    "_6tavkoa",
	Expiry:       "span[class*='az57m4c']",
	RevealedCode: "h4",

	PromoButton:   Target{CSS: "[role='button']", Text: "see promo code"},
	DealButton:    Target{CSS: "[role='button'][title*='Get deal']"},
	CopyButton:    Target{CSS: "button", Text: "copy"},
	LoadMore:      Target{CSS: "button, a", Text: "load more"},
	AcceptCookies: Target{CSS: "button, a", Text: "accept"},
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	URL       string
	CacheKey  string
	BlockTime time.Duration
	Provider  string
	Selectors Selectors

	// Static fetch
	Segmenter     coupon.Strategy
	MaxAscent     int
	FetchTimeout  time.Duration
	FetchDelayMin time.Duration
	FetchDelayMax time.Duration

	// Interactive session
	SettleTimeout time.Duration
	PollInterval  time.Duration
	ScrollRounds  int
}
