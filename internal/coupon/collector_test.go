package coupon

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	crawlerrors "sjsage522/couponworker/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)

func newTestCollector() *Collector {
	c := NewCollector("https://example.com/promo")
	c.Now = func() time.Time { return fixedNow }
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
		want   Kind
	}{
		{"code and expiry", Fields{Code: "20%OFF", Discount: "20%OFF", ExpiryDate: "5/12/2025"}, KindCoupon},
		{"discount without expiry", Fields{Code: "GIFTCARD", Discount: "GIFTCARD", ExpiryDate: NA}, KindOffer},
		{"neither", Fields{Code: NA, Discount: NA, ExpiryDate: "5/12/2025"}, KindDropped},
		{"nothing at all", Fields{Code: NA, Discount: NA, ExpiryDate: NA}, KindDropped},
		{"get deal card", Fields{OfferOnly: true}, KindOffer},
		{"revealed without expiry", Fields{Code: "TVLK10", Discount: NA, ExpiryDate: NA, Revealed: true}, KindOffer},
		{"revealed with expiry", Fields{Code: "TVLK10", Discount: NA, ExpiryDate: "1/1/2026", Revealed: true}, KindCoupon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.fields))
		})
	}
	assert.Equal(t, "coupon", KindCoupon.String())
	assert.Equal(t, "dropped", KindDropped.String())
}

func TestCollectorCouponAndOfferAreExclusive(t *testing.T) {
	c := newTestCollector()
	inputs := []Fields{
		{Description: "Save 20% OFF flights", Code: "20%OFF", Discount: "20%OFF", ExpiryDate: "5/12/2025"},
		{Description: "Get a free gift card on bookings", Code: "GIFTCARD", Discount: "GIFTCARD", ExpiryDate: NA},
		{Description: "Explore the best of Bali", Code: NA, Discount: NA, ExpiryDate: NA},
	}
	for _, f := range inputs {
		_, err := c.Add(f)
		require.NoError(t, err)
	}

	result := c.Result()
	for _, coupon := range result.Coupons() {
		for _, offer := range result.Offers() {
			assert.NotEqual(t, coupon.Description, offer.Description)
		}
		assert.NotEqual(t, NA, coupon.Code)
		assert.NotEqual(t, NA, coupon.ExpiryDate)
	}
	assert.Len(t, result.Coupons(), 1)
	assert.Len(t, result.Offers(), 1)
	assert.Equal(t, 1, c.Dropped())
	assert.Equal(t, 2, result.Total())
	assert.Equal(t, fixedNow, result.Coupons()[0].ScrapedAt)
}

func TestCollectorRejectsMalformedExpiry(t *testing.T) {
	c := newTestCollector()
	kind, err := c.Add(Fields{Description: "Stay 3 nights and save 15% off", Code: "15%OFF", Discount: "15%OFF", ExpiryDate: "soon"})
	require.NoError(t, err)
	assert.Equal(t, KindOffer, kind)
	assert.Empty(t, c.Result().Coupons())
	assert.Equal(t, "15%OFF", c.Result().Offers()[0].Discount)
}

func TestCollectorRevealedCodeKeepsDescriptor(t *testing.T) {
	c := newTestCollector()
	kind, err := c.Add(Fields{Description: "Save 20% OFF flights", Code: "TVLKFLY20", Discount: "20%OFF", ExpiryDate: "5/12/2025", Revealed: true})
	require.NoError(t, err)
	assert.Equal(t, KindCoupon, kind)

	coupon := c.Result().Coupons()[0]
	assert.Equal(t, "TVLKFLY20", coupon.Code)
	assert.Equal(t, "20%OFF", coupon.Discount)
}

func TestCollectorTitleOnlyOffer(t *testing.T) {
	c := newTestCollector()
	kind, err := c.Add(Fields{Description: "Book a hotel and pay later", OfferOnly: true})
	require.NoError(t, err)
	assert.Equal(t, KindOffer, kind)
	assert.Equal(t, "", c.Result().Offers()[0].Discount)
}

func TestCollectorMissingDescription(t *testing.T) {
	c := newTestCollector()
	kind, err := c.Add(Fields{Code: "20%OFF", Discount: "20%OFF", ExpiryDate: "5/12/2025"})
	assert.ErrorIs(t, err, ErrNoDescription)
	assert.Equal(t, KindDropped, kind)
}

func TestDedupeIsIdempotentAndStable(t *testing.T) {
	coupons := []CouponRecord{
		{Description: "A", Code: "10%OFF", ExpiryDate: "1/1/2026"},
		{Description: "B", Code: "20%OFF", ExpiryDate: "1/1/2026"},
		{Description: "A", Code: "10%OFF", ExpiryDate: "1/1/2026", ScrapedAt: fixedNow},
		{Description: "A", Code: "10%OFF", ExpiryDate: "2/1/2026"},
	}
	once := DedupeCoupons(coupons)
	twice := DedupeCoupons(once)

	assert.Equal(t, once, twice)
	require.Len(t, once, 3)
	assert.Equal(t, []string{"A", "B", "A"}, []string{once[0].Description, once[1].Description, once[2].Description})
	assert.True(t, once[0].ScrapedAt.IsZero(), "first occurrence wins")
	assert.Equal(t, "2/1/2026", once[2].ExpiryDate)

	offers := []OfferRecord{
		{Description: "X", Discount: "GIFTCARD"},
		{Description: "X", Discount: "GIFTCARD"},
		{Description: "X"},
	}
	assert.Len(t, DedupeOffers(offers), 2)
	assert.Equal(t, DedupeOffers(offers), DedupeOffers(DedupeOffers(offers)))
}

func TestResultSetIsImmutable(t *testing.T) {
	result := NewResultSet("src", fixedNow, []CouponRecord{{Description: "A", Code: "C", ExpiryDate: "1/1/2026"}}, nil)
	coupons := result.Coupons()
	coupons[0].Description = "changed"
	assert.Equal(t, "A", result.Coupons()[0].Description)
	assert.False(t, result.Empty())
	assert.True(t, NewResultSet("src", fixedNow, nil, nil).Empty())
}

func collect(t *testing.T, src string, seg Segmenter) (ResultSet, []error) {
	t.Helper()
	page := mustPage(t, src)
	c := newTestCollector()
	var errs []error
	c.Collect(seg.Segment(page), func(_ RawItemBlock, err error) { errs = append(errs, err) })
	return c.Result(), errs
}

func TestScenarioCouponFromFragmentWindow(t *testing.T) {
	src := `<div><p>Save 20% OFF flights</p><p>Verified</p><p>Used 120 times</p><p>Expiry: 5/12/2025</p></div>`
	result, errs := collect(t, src, NewFragmentSegmenter())
	assert.Empty(t, errs)

	require.Len(t, result.Coupons(), 1)
	coupon := result.Coupons()[0]
	assert.Equal(t, "Save 20% OFF flights", coupon.Description)
	assert.Equal(t, "20%OFF", coupon.Code)
	assert.Equal(t, "5/12/2025", coupon.ExpiryDate)
	assert.Empty(t, result.Offers())
}

func TestScenarioCouponFromCard(t *testing.T) {
	seg := NewStructuralSegmenter("_6tavkoa", 10)
	seg.StopOnDate = false
	result, _ := collect(t, listingHTML, seg)

	require.Len(t, result.Coupons(), 1)
	assert.Equal(t, "20%OFF", result.Coupons()[0].Code)
	assert.Equal(t, "5/12/2025", result.Coupons()[0].ExpiryDate)

	require.Len(t, result.Offers(), 1)
	assert.Equal(t, "Get a free gift card on bookings", result.Offers()[0].Description)
	assert.Equal(t, "GIFTCARD", result.Offers()[0].Discount)
}

func TestScenarioGiftCardOffer(t *testing.T) {
	src := `<div class="_6tavkoa"><h3>Get a free gift card on bookings</h3><p>GIFTCARD</p></div>`
	result, _ := collect(t, src, NewStructuralSegmenter("_6tavkoa", 10))
	assert.Empty(t, result.Coupons())
	require.Len(t, result.Offers(), 1)
	assert.Equal(t, "GIFTCARD", result.Offers()[0].Discount)
}

func TestScenarioDuplicateCardsCollapse(t *testing.T) {
	card := `<div class="_6tavkoa"><h3>Save 20% OFF flights</h3><span>Expiry: 5/12/2025</span></div>`
	result, _ := collect(t, "<body>"+card+card+"</body>", NewStructuralSegmenter("_6tavkoa", 10))
	assert.Len(t, result.Coupons(), 1)
}

func TestScenarioShortHeadingNeverExtracted(t *testing.T) {
	page := mustPage(t, `<div class="_6tavkoa"><h3>Deals</h3><span>20% OFF Expiry: 5/12/2025</span></div>`)
	blocks := slices.Collect(NewStructuralSegmenter("_6tavkoa", 10).Segment(page))
	assert.Empty(t, blocks)

	c := newTestCollector()
	assert.Equal(t, 0, c.Collect(NewStructuralSegmenter("_6tavkoa", 10).Segment(page), nil))
	assert.True(t, c.Result().Empty())
}

func TestScenarioPlainTextSnapshot(t *testing.T) {
	text := strings.Join([]string{
		"Traveloka promo codes",
		"SEE PROMO CODE",
		"20% OFF",
		"Save 20% OFF flights to Tokyo this month",
		"Expiry: 5/12/2025",
		"SEE PROMO CODE",
		"short",
		"SEE PROMO CODE",
		"Verified",
		"Claim a GIFT CARD when you book a stay",
	}, "\n")
	c := newTestCollector()
	var failed []string
	c.Collect(NewPlainTextSegmenter("").Segment(NewTextPage(text)), func(b RawItemBlock, err error) {
		assert.True(t, errors.Is(err, ErrNoDescription))
		failed = append(failed, b.Label())
	})
	result := c.Result()

	require.Len(t, result.Coupons(), 1)
	assert.Equal(t, "20%OFF", result.Coupons()[0].Code)
	require.Len(t, result.Offers(), 1)
	assert.Equal(t, "GIFTCARD", result.Offers()[0].Discount)
	assert.Equal(t, []string{"plaintext #2"}, failed)
}

func TestValidateReportsValidationError(t *testing.T) {
	err := Validate(CouponRecord{Description: "Save 10% OFF", Code: "10%OFF", ExpiryDate: "2025-12-05"})
	require.Error(t, err)
	assert.True(t, crawlerrors.Is(err, crawlerrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "coupon.CouponRecord")

	assert.NoError(t, Validate(CouponRecord{Description: "Save 10% OFF", Code: "10%OFF", ExpiryDate: "5/12/2025"}))
	assert.Error(t, Validate(OfferRecord{Description: "Hotel deal", Discount: NA}))
}
