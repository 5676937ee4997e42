package crawler

import (
	"strings"

	"sjsage522/couponworker/config"
	"sjsage522/couponworker/internal"
	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"
)

// NewCrawlerConfig maps the application configuration onto a crawler configuration
func NewCrawlerConfig(cfg *config.Config) CrawlerConfig {
	selectors := DefaultSelectors
	if cfg.CardClass != "" {
		selectors.CardClass = cfg.CardClass
	}
	return CrawlerConfig{
		URL:           cfg.SourceURL,
		CacheKey:      strings.ToLower(cfg.Provider) + "_rate_limited",
		BlockTime:     cfg.RateLimitBlock,
		Provider:      cfg.Provider,
		Selectors:     selectors,
		Segmenter:     coupon.Strategy(cfg.Segmenter),
		MaxAscent:     cfg.MaxAscent,
		FetchTimeout:  cfg.FetchTimeout,
		FetchDelayMin: cfg.FetchDelayMin,
		FetchDelayMax: cfg.FetchDelayMax,
		SettleTimeout: cfg.SettleTimeout,
		PollInterval:  cfg.PollInterval,
		ScrollRounds:  5,
	}
}

// CreateCrawler creates the crawler for the configured mode
func CreateCrawler(cfg *config.Config, deps internal.Dependencies) (Crawler, error) {
	crawlerConfig := NewCrawlerConfig(cfg)

	var c Crawler
	switch cfg.Mode {
	case config.ModeStatic:
		c = NewStaticCrawler(crawlerConfig, deps.Cache, deps.ErrorLog)
	case config.ModeInteractive:
		factory := NewChromeSessionFactory(ChromeOptions{
			Headless: cfg.ChromeHeadless,
			ExecPath: cfg.ChromePath,
		})
		c = NewInteractiveCrawler(crawlerConfig, factory, deps.ErrorLog)
	default:
		return nil, crawlerrors.NewConfiguration("unknown crawl mode "+cfg.Mode, nil)
	}

	logger.ForCrawler(c.GetProvider()).Info().
		Str("crawler", c.GetName()).
		Str("url", crawlerConfig.URL).
		Str("segmenter", string(crawlerConfig.Segmenter)).
		Msg("Created crawler")
	return c, nil
}
