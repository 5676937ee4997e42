package crawler

import (
	"context"
	"errors"
	"io"
	"iter"
	"reflect"

	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"
	"sjsage522/couponworker/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	URL      string
	CacheKey string
	Provider string
	Blocker  *cache.Blocker
	ErrorLog helpers.LoggerInterface
	Fetch    helpers.FetchOptions
}

func newBaseCrawler(config CrawlerConfig, cacheSvc cache.CacheService, errorLog helpers.LoggerInterface) BaseCrawler {
	return BaseCrawler{
		URL:      config.URL,
		CacheKey: config.CacheKey,
		Provider: config.Provider,
		Blocker:  cache.NewBlocker(cacheSvc, config.BlockTime),
		ErrorLog: errorLog,
		Fetch: helpers.FetchOptions{
			Timeout:  config.FetchTimeout,
			DelayMin: config.FetchDelayMin,
			DelayMax: config.FetchDelayMax,
			Provider: config.Provider,
		},
	}
}

// fetchWithCache fetches the source page unless the provider is blocked, and
// blocks it after a rate-limit response.
func (c *BaseCrawler) fetchWithCache(ctx context.Context) (io.Reader, error) {
	if c.Blocker.Blocked(c.CacheKey) {
		return nil, crawlerrors.NewRateLimit(c.Provider, c.Blocker.Duration)
	}

	utf8Body, err := helpers.FetchWithRandomHeaders(ctx, c.URL, c.Fetch)
	if err != nil {
		if crawlerrors.Is(err, crawlerrors.ErrorTypeRateLimit) {
			if blockErr := c.Blocker.Block(c.CacheKey); blockErr != nil {
				logger.ForCache().Warn().Err(blockErr).Str("key", c.CacheKey).Msg("Failed to set rate limit block")
			}
		}
		return nil, err
	}
	return utf8Body, nil
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, crawlerrors.NewParsing(c.Provider, "failed to parse HTML", err)
	}
	return doc, nil
}

// processBlocks runs blocks through the collector one at a time. A failing
// block is noted and skipped.
func (c *BaseCrawler) processBlocks(col *coupon.Collector, blocks iter.Seq[coupon.RawItemBlock]) int {
	log := logger.ForCrawler(c.Provider)
	return col.Collect(blocks, func(block coupon.RawItemBlock, err error) {
		if errors.Is(err, coupon.ErrNoDescription) {
			log.Debug().Str("block", block.Label()).Msg("Skipping block without description")
			return
		}
		c.logItemError(block.Label(), err)
	})
}

func (c *BaseCrawler) logItemError(item string, err error) {
	err = crawlerrors.NewExtraction(c.Provider, item, err)
	if c.ErrorLog != nil {
		c.ErrorLog.LogError(item, err)
		return
	}
	logger.ForCrawler(c.Provider).Warn().Err(err).Msg("Item skipped")
}

// GetName returns the crawler's type name for logging
func (c *BaseCrawler) GetName() string {
	// Overridden by concrete crawlers
	return reflect.TypeOf(c).Elem().Name()
}

// GetProvider returns the provider name
func (c *BaseCrawler) GetProvider() string {
	return c.Provider
}
