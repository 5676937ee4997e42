// Package coupon turns page content into typed coupon and offer records:
// segmentation into item blocks, field extraction, classification and
// deduplication.
package coupon

import (
	"strconv"
	"time"
)

// NA marks a field that could not be resolved from the page
const NA = "N/A"

// Strategy names the segmentation strategy that produced a block
type Strategy string

const (
	StrategyStructural Strategy = "structural"
	StrategyPlainText  Strategy = "plaintext"
	StrategyFragments  Strategy = "fragments"
)

// RawItemBlock is the content believed to belong to one card
type RawItemBlock struct {
	Index       int
	Strategy    Strategy
	PrimaryText string
	SearchText  string
	// Lines is SearchText split into trimmed non-empty lines
	Lines []string
}

// Label identifies the block in logs and error notes
func (b RawItemBlock) Label() string {
	return string(b.Strategy) + " #" + strconv.Itoa(b.Index+1)
}

// Fields are the values pulled out of one block or card
type Fields struct {
	Description string
	// Code is the redeemable code. For static extraction it is the discount
	// descriptor token; for a revealed card it is the issued code.
	Code string
	// Discount is the descriptor token inferred from surrounding text
	Discount   string
	ExpiryDate string
	// Revealed is set when Code was read from the page after a reveal action
	Revealed bool
	// OfferOnly is set for cards whose trigger is "get deal"
	OfferOnly bool
}

// CouponRecord is a deal with a redeemable code and an expiry date
type CouponRecord struct {
	Type        string    `json:"type"`
	Description string    `json:"description" validate:"required"`
	Code        string    `json:"code" validate:"required,ne=N/A"`
	Discount    string    `json:"discount,omitempty"`
	ExpiryDate  string    `json:"expiry_date" validate:"required,ne=N/A,dmydate"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// OfferRecord is a deal that needs no code
type OfferRecord struct {
	Type        string    `json:"type"`
	Description string    `json:"description" validate:"required"`
	Discount    string    `json:"discount,omitempty" validate:"omitempty,ne=N/A"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

type couponKey struct {
	description, code, expiry string
}

type offerKey struct {
	description, discount string
}

// key is the identity used for deduplication
func (c CouponRecord) key() couponKey {
	return couponKey{c.Description, c.Code, c.ExpiryDate}
}

func (o OfferRecord) key() offerKey {
	return offerKey{o.Description, o.Discount}
}

// ResultSet is the deduplicated outcome of one run
type ResultSet struct {
	Source    string
	ScrapedAt time.Time
	coupons   []CouponRecord
	offers    []OfferRecord
}

// NewResultSet deduplicates coupons and offers and freezes them into a ResultSet
func NewResultSet(source string, scrapedAt time.Time, coupons []CouponRecord, offers []OfferRecord) ResultSet {
	return ResultSet{
		Source:    source,
		ScrapedAt: scrapedAt,
		coupons:   DedupeCoupons(coupons),
		offers:    DedupeOffers(offers),
	}
}

// Coupons returns a copy of the coupon records in first-occurrence order
func (r ResultSet) Coupons() []CouponRecord {
	return append([]CouponRecord(nil), r.coupons...)
}

// Offers returns a copy of the offer records in first-occurrence order
func (r ResultSet) Offers() []OfferRecord {
	return append([]OfferRecord(nil), r.offers...)
}

// Total is the number of records of both kinds
func (r ResultSet) Total() int {
	return len(r.coupons) + len(r.offers)
}

// Empty reports whether the run extracted nothing
func (r ResultSet) Empty() bool {
	return r.Total() == 0
}
