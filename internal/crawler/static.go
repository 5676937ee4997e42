package crawler

import (
	"context"

	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"
	"sjsage522/couponworker/services/cache"
)

// StaticCrawler fetches the listing over HTTP and segments the returned HTML
type StaticCrawler struct {
	BaseCrawler
	Segmenter coupon.Segmenter
	// Fallback is tried when the primary segmenter yields no records
	Fallback coupon.Segmenter
}

// NewStaticCrawler creates a crawler for a plain HTTP fetch
func NewStaticCrawler(config CrawlerConfig, cacheSvc cache.CacheService, errorLog helpers.LoggerInterface) *StaticCrawler {
	c := &StaticCrawler{
		BaseCrawler: newBaseCrawler(config, cacheSvc, errorLog),
		Segmenter:   coupon.NewSegmenter(config.Segmenter, config.Selectors.CardClass, config.MaxAscent),
	}
	if c.Segmenter.Name() == coupon.StrategyStructural {
		c.Fallback = coupon.NewPlainTextSegmenter(coupon.DefaultTrigger)
	}
	return c
}

// GetName returns the crawler's name
func (c *StaticCrawler) GetName() string {
	return "StaticCrawler"
}

// FetchDeals fetches the page and extracts its coupons and offers
func (c *StaticCrawler) FetchDeals(ctx context.Context) (coupon.ResultSet, error) {
	log := logger.ForCrawler(c.Provider)

	utf8Body, err := c.fetchWithCache(ctx)
	if err != nil {
		return coupon.ResultSet{}, err
	}

	doc, err := c.createDocument(utf8Body)
	if err != nil {
		return coupon.ResultSet{}, err
	}
	page := coupon.NewPageFromDocument(doc)

	result := c.extract(page, c.Segmenter)
	if result.Empty() && c.Fallback != nil {
		log.Info().
			Str("segmenter", string(c.Segmenter.Name())).
			Str("fallback", string(c.Fallback.Name())).
			Msg("No records from primary segmenter, trying fallback")
		result = c.extract(page, c.Fallback)
	}

	if result.Empty() {
		return result, crawlerrors.NewNoData(c.Provider)
	}
	return result, nil
}

func (c *StaticCrawler) extract(page *coupon.Page, seg coupon.Segmenter) coupon.ResultSet {
	col := coupon.NewCollector(c.URL)
	blocks := c.processBlocks(col, seg.Segment(page))
	result := col.Result()

	logger.ForCrawler(c.Provider).Debug().
		Str("segmenter", string(seg.Name())).
		Int("blocks", blocks).
		Int("coupons", len(result.Coupons())).
		Int("offers", len(result.Offers())).
		Int("dropped", col.Dropped()).
		Msg("Segmented page")
	return result
}
