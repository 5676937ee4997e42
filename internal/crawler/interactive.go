package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/internal/coupon"
	"sjsage522/couponworker/logger"
	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

const (
	offerTitleLimit  = 200
	couponTitleLimit = 140
	minCodeLength    = 2
)

var (
	errListingShrank = errors.New("listing has fewer promo buttons than before")
	errNoCode        = errors.New("no code revealed")
)

// InteractiveCrawler drives a rendered session: it reads offers from the
// listing and clicks every promo button to read the issued code.
type InteractiveCrawler struct {
	BaseCrawler
	Selectors     Selectors
	NewSession    SessionFactory
	MaxAscent     int
	SettleTimeout time.Duration
	PollInterval  time.Duration
	ScrollRounds  int
}

// NewInteractiveCrawler creates a crawler backed by sessions from factory
func NewInteractiveCrawler(config CrawlerConfig, factory SessionFactory, errorLog helpers.LoggerInterface) *InteractiveCrawler {
	rounds := config.ScrollRounds
	if rounds <= 0 {
		rounds = 5
	}
	return &InteractiveCrawler{
		BaseCrawler:   newBaseCrawler(config, nil, errorLog),
		Selectors:     config.Selectors,
		NewSession:    factory,
		MaxAscent:     config.MaxAscent,
		SettleTimeout: config.SettleTimeout,
		PollInterval:  config.PollInterval,
		ScrollRounds:  rounds,
	}
}

// GetName returns the crawler's name
func (c *InteractiveCrawler) GetName() string {
	return "InteractiveCrawler"
}

// FetchDeals runs one session over the listing. The session is closed on
// every return path.
func (c *InteractiveCrawler) FetchDeals(ctx context.Context) (coupon.ResultSet, error) {
	log := logger.ForCrawler(c.Provider)

	session, err := c.NewSession(ctx)
	if err != nil {
		return coupon.ResultSet{}, crawlerrors.NewSession(c.Provider, "failed to start session", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	if err := c.openListing(ctx, session); err != nil {
		return coupon.ResultSet{}, crawlerrors.NewFetch(crawlerrors.FetchOther, c.Provider, "failed to open listing", err)
	}
	c.acceptCookies(ctx, session)

	col := coupon.NewCollector(c.URL)
	offers := c.collectOffers(ctx, session, col)
	log.Info().Int("offers", offers).Msg("Collected GET DEAL offers")

	c.loadAll(ctx, session)
	processed := c.collectCoupons(ctx, session, col)
	log.Info().Int("promo_buttons", processed).Msg("Processed promo buttons")

	result := col.Result()
	if result.Empty() {
		return result, crawlerrors.NewNoData(c.Provider)
	}
	return result, nil
}

// openListing navigates to the listing and waits until deal buttons render.
// A listing that never shows any is not an error here.
func (c *InteractiveCrawler) openListing(ctx context.Context, s Session) error {
	if err := s.Open(ctx, c.URL); err != nil {
		return err
	}
	err := helpers.WaitFor(ctx, c.PollInterval, c.SettleTimeout, func(ctx context.Context) (bool, error) {
		promos, err := s.Count(ctx, c.Selectors.PromoButton)
		if err != nil {
			return false, err
		}
		deals, err := s.Count(ctx, c.Selectors.DealButton)
		return promos+deals > 0, err
	})
	if errors.Is(err, helpers.ErrWaitTimeout) {
		logger.ForCrawler(c.Provider).Warn().Dur("timeout", c.SettleTimeout).Msg("No deal buttons rendered")
		return nil
	}
	return err
}

func (c *InteractiveCrawler) acceptCookies(ctx context.Context, s Session) {
	n, err := s.Count(ctx, c.Selectors.AcceptCookies)
	if err != nil || n == 0 {
		return
	}
	if err := s.Click(ctx, c.Selectors.AcceptCookies, 0); err != nil {
		logger.ForCrawler(c.Provider).Debug().Err(err).Msg("Cookie banner click failed")
	}
}

// document parses the current context's markup
func (c *InteractiveCrawler) document(ctx context.Context, s Session) (*goquery.Document, error) {
	html, err := s.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crawlerrors.NewParsing(c.Provider, "failed to parse rendered page", err)
	}
	return doc, nil
}

// card returns the deal card around a button, or the button itself when no
// card is found within MaxAscent levels.
func (c *InteractiveCrawler) card(btn *goquery.Selection) *goquery.Selection {
	if card, ok := coupon.FindCard(btn, c.MaxAscent, coupon.ClassPredicate(c.Selectors.CardClass)); ok {
		return card
	}
	return btn
}

// cardTitle returns the first heading of scope when it reads like a deal title
func (c *InteractiveCrawler) cardTitle(scope *goquery.Selection, limit int) string {
	heading := scope.Find(c.Selectors.Title).First()
	if heading.Length() == 0 {
		return ""
	}
	title := coupon.CleanText(heading.Text())
	if len([]rune(title)) <= coupon.MinTitleLength || strings.Contains(strings.ToUpper(title), "CODE") {
		return ""
	}
	return helpers.Truncate(title, limit)
}

func (c *InteractiveCrawler) cardExpiry(scope *goquery.Selection) string {
	expiry := scope.Find(c.Selectors.Expiry)
	if expiry.Length() == 0 {
		expiry = scope.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), "Expiry")
		})
	}
	if expiry.Length() == 0 {
		return coupon.NA
	}
	return coupon.ExtractDate(expiry.First().Text())
}

// collectOffers reads title-only offers from the GET DEAL cards without clicking
func (c *InteractiveCrawler) collectOffers(ctx context.Context, s Session, col *coupon.Collector) int {
	doc, err := c.document(ctx, s)
	if err != nil {
		c.logItemError("offers", err)
		return 0
	}

	added := 0
	for i, btn := range c.Selectors.DealButton.Matches(doc.Selection).EachIter() {
		title := c.cardTitle(c.card(btn), offerTitleLimit)
		if title == "" {
			continue
		}
		kind, err := col.Add(coupon.Fields{Description: title, OfferOnly: true})
		if err != nil {
			c.logItemError(fmt.Sprintf("offer #%d", i+1), err)
			continue
		}
		if kind == coupon.KindOffer {
			added++
		}
	}
	return added
}

// loadAll scrolls and presses "Load More" until the page stops growing
func (c *InteractiveCrawler) loadAll(ctx context.Context, s Session) {
	log := logger.ForCrawler(c.Provider)
	last, err := s.Height(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Cannot read page height, skipping load more")
		return
	}

	for round := range c.ScrollRounds {
		if _, err := s.ScrollToBottom(ctx); err != nil {
			log.Debug().Err(err).Msg("Scroll failed")
			return
		}
		if n, err := s.Count(ctx, c.Selectors.LoadMore); err == nil && n > 0 {
			if err := s.Click(ctx, c.Selectors.LoadMore, 0); err != nil {
				log.Debug().Err(err).Msg("Load more click failed")
			}
		}

		height, err := helpers.WaitStable(ctx, c.PollInterval, c.SettleTimeout, s.Height)
		if err != nil && !errors.Is(err, helpers.ErrWaitTimeout) {
			log.Debug().Err(err).Msg("Page height unavailable")
			return
		}
		log.Debug().Int("round", round+1).Int64("height", height).Msg("Loaded more deals")
		if height == last {
			return
		}
		last = height
	}
}

// collectCoupons reveals the code behind every promo button, one at a time.
// A failing item is noted, the listing restored, and the loop continues.
func (c *InteractiveCrawler) collectCoupons(ctx context.Context, s Session, col *coupon.Collector) int {
	total, err := s.Count(ctx, c.Selectors.PromoButton)
	if err != nil {
		c.logItemError("coupons", err)
		return 0
	}
	listingText, err := s.VisibleText(ctx)
	if err != nil {
		logger.ForCrawler(c.Provider).Debug().Err(err).Msg("No listing text for fallback")
	}

	processed := 0
	for i := range total {
		if ctx.Err() != nil {
			break
		}
		item := fmt.Sprintf("coupon #%d", i+1)
		section := coupon.CardText(listingText, coupon.DefaultTrigger, i)
		fields, err := c.couponAt(ctx, s, i, section)
		if errors.Is(err, errListingShrank) {
			logger.ForCrawler(c.Provider).Warn().Int("index", i).Msg(err.Error())
			break
		}
		processed++
		if err == nil {
			var kind coupon.Kind
			kind, err = col.Add(fields)
			if err == nil && kind == coupon.KindOffer && c.ErrorLog != nil {
				c.ErrorLog.LogInfo("%s: code %s revealed on a card without expiry, kept as offer %q", item, fields.Code, fields.Description)
			}
		}
		if err != nil {
			c.logItemError(item, err)
		}
		c.restore(ctx, s)
	}
	return processed
}

// couponAt reads the i-th promo card and reveals its code
func (c *InteractiveCrawler) couponAt(ctx context.Context, s Session, i int, section string) (coupon.Fields, error) {
	doc, err := c.document(ctx, s)
	if err != nil {
		return coupon.Fields{}, err
	}
	buttons := c.Selectors.PromoButton.Matches(doc.Selection)
	if i >= buttons.Length() {
		return coupon.Fields{}, errListingShrank
	}

	card := c.card(buttons.Eq(i))
	title := c.cardTitle(card, couponTitleLimit)
	expiry := c.cardExpiry(card)
	if title == "" || expiry == coupon.NA {
		lines := helpers.NonEmptyLines(section)
		if expiry == coupon.NA {
			expiry = coupon.ExtractDate(section)
		}
		if title == "" {
			title = helpers.Truncate(coupon.ExtractDescriptionLine(lines, "SEE PROMO"), couponTitleLimit)
		}
	}
	descriptor := coupon.ExtractCode(title, coupon.SelectionText(card))

	code, err := c.revealCode(ctx, s, i)
	if err != nil {
		return coupon.Fields{}, err
	}
	if title == "" {
		title = code
	}

	logger.ForCrawler(c.Provider).Debug().
		Int("index", i).
		Str("title", helpers.Truncate(title, 40)).
		Str("code", code).
		Str("expiry", expiry).
		Msg("Revealed coupon")

	return coupon.Fields{
		Description: title,
		Code:        code,
		Discount:    descriptor,
		ExpiryDate:  expiry,
		Revealed:    true,
	}, nil
}

// revealCode clicks the i-th promo button and reads the issued code from the
// copy action, or from a code-like heading in the revealed panel. Headings and
// copy buttons already on the listing before the click never count as revealed.
func (c *InteractiveCrawler) revealCode(ctx context.Context, s Session, i int) (string, error) {
	if err := s.ResetClipboard(ctx); err != nil {
		return "", err
	}
	listingCodes, err := c.headingCodes(ctx, s)
	if err != nil {
		return "", err
	}
	listingCopies, err := s.Count(ctx, c.Selectors.CopyButton)
	if err != nil {
		return "", err
	}
	if err := s.Click(ctx, c.Selectors.PromoButton, i); err != nil {
		return "", err
	}

	switched := false
	copyReady := func(ctx context.Context) (bool, error) {
		n, err := s.Count(ctx, c.Selectors.CopyButton)
		if err != nil {
			return false, err
		}
		return n > listingCopies || (switched && n > 0), nil
	}

	err = helpers.WaitFor(ctx, c.PollInterval, c.SettleTimeout, func(ctx context.Context) (bool, error) {
		ok, err := s.SwitchToNewest(ctx)
		if err != nil {
			return false, err
		}
		switched = switched || ok
		if ready, err := copyReady(ctx); err != nil || ready {
			return ready, err
		}
		code, err := c.panelCode(ctx, s, listingCodes)
		return code != "", err
	})
	if err != nil && !errors.Is(err, helpers.ErrWaitTimeout) {
		return "", err
	}

	var code string
	if ready, err := copyReady(ctx); err == nil && ready {
		code = c.copiedCode(ctx, s)
	}
	if len(code) < minCodeLength {
		if code, err = c.panelCode(ctx, s, listingCodes); err != nil {
			return "", err
		}
	}
	if len(code) < minCodeLength {
		return "", errNoCode
	}
	return code, nil
}

func (c *InteractiveCrawler) copiedCode(ctx context.Context, s Session) string {
	if err := s.ResetClipboard(ctx); err != nil {
		return ""
	}
	if err := s.Click(ctx, c.Selectors.CopyButton, 0); err != nil {
		return ""
	}
	var code string
	_ = helpers.WaitFor(ctx, c.PollInterval, c.SettleTimeout, func(ctx context.Context) (bool, error) {
		text, err := s.ReadClipboard(ctx)
		code = strings.TrimSpace(text)
		return code != "", err
	})
	return code
}

// headingCodes collects the code-like headings of the current context
func (c *InteractiveCrawler) headingCodes(ctx context.Context, s Session) (map[string]bool, error) {
	doc, err := c.document(ctx, s)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]bool)
	for _, h := range doc.Find(c.Selectors.RevealedCode).EachIter() {
		if text := strings.TrimSpace(h.Text()); coupon.ValidRevealedCode(text) {
			codes[text] = true
		}
	}
	return codes, nil
}

// panelCode returns the first code-like heading of the current context that
// is not in seen
func (c *InteractiveCrawler) panelCode(ctx context.Context, s Session, seen map[string]bool) (string, error) {
	doc, err := c.document(ctx, s)
	if err != nil {
		return "", err
	}
	for _, h := range doc.Find(c.Selectors.RevealedCode).EachIter() {
		if text := strings.TrimSpace(h.Text()); coupon.ValidRevealedCode(text) && !seen[text] {
			return text, nil
		}
	}
	return "", nil
}

// restore closes stray tabs and reloads the listing so the next item starts clean
func (c *InteractiveCrawler) restore(ctx context.Context, s Session) {
	log := logger.ForCrawler(c.Provider)
	if err := s.CloseSecondary(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to close secondary tabs")
	}
	if err := c.openListing(ctx, s); err != nil {
		log.Warn().Err(err).Msg("Failed to reload listing")
	}
}
