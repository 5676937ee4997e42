package coupon

import (
	"errors"
	"iter"
	"time"
)

// ErrNoDescription is returned for a block in which no description could be found
var ErrNoDescription = errors.New("no description found in block")

// Collector accumulates classified records for one run
type Collector struct {
	Source  string
	Now     func() time.Time
	coupons []CouponRecord
	offers  []OfferRecord
	dropped int
}

// NewCollector returns a collector stamping records with the current time
func NewCollector(source string) *Collector {
	return &Collector{Source: source, Now: time.Now}
}

// Add classifies f and stores the resulting record. A coupon that fails its
// invariants is reclassified rather than kept with placeholder fields.
func (c *Collector) Add(f Fields) (Kind, error) {
	if f.Description == "" || f.Description == NA {
		return KindDropped, ErrNoDescription
	}
	now := c.Now()

	kind := Classify(f)
	if kind == KindCoupon {
		record := CouponRecord{
			Type:        "coupon",
			Description: f.Description,
			Code:        f.Code,
			ExpiryDate:  f.ExpiryDate,
			ScrapedAt:   now,
		}
		if f.Revealed && resolved(f.Discount) {
			record.Discount = f.Discount
		}
		if err := Validate(record); err == nil {
			c.coupons = append(c.coupons, record)
			return KindCoupon, nil
		}
		f.ExpiryDate = NA
		kind = Classify(f)
	}

	if kind == KindOffer {
		record := OfferRecord{
			Type:        "offer",
			Description: f.Description,
			ScrapedAt:   now,
		}
		if resolved(f.Discount) {
			record.Discount = f.Discount
		}
		if err := Validate(record); err != nil {
			return KindDropped, err
		}
		c.offers = append(c.offers, record)
		return KindOffer, nil
	}

	c.dropped++
	return KindDropped, nil
}

// Dropped is the number of blocks that became neither coupon nor offer
func (c *Collector) Dropped() int {
	return c.dropped
}

// Result deduplicates what was collected and returns the frozen ResultSet
func (c *Collector) Result() ResultSet {
	return NewResultSet(c.Source, c.Now(), c.coupons, c.offers)
}

// Collect runs every block through extraction and classification. A block that
// fails is reported through onError and skipped; the rest continue.
func (c *Collector) Collect(blocks iter.Seq[RawItemBlock], onError func(RawItemBlock, error)) int {
	processed := 0
	for block := range blocks {
		processed++
		if _, err := c.Add(Extract(block)); err != nil && onError != nil {
			onError(block, err)
		}
	}
	return processed
}
