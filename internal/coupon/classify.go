package coupon

// Kind is the outcome of classifying one block
type Kind int

const (
	KindDropped Kind = iota
	KindCoupon
	KindOffer
)

func (k Kind) String() string {
	switch k {
	case KindCoupon:
		return "coupon"
	case KindOffer:
		return "offer"
	default:
		return "dropped"
	}
}

func resolved(v string) bool {
	return v != "" && v != NA
}

// Classify decides what a set of extracted fields becomes.
//
// A coupon needs both a code and an expiry. Anything with a descriptor but no
// expiry is an offer, as is a card whose trigger was "get deal" and a revealed
// code whose card shows no expiry. Everything else is dropped.
func Classify(f Fields) Kind {
	switch {
	case f.OfferOnly:
		return KindOffer
	case resolved(f.Code) && resolved(f.ExpiryDate):
		return KindCoupon
	case resolved(f.Discount):
		return KindOffer
	case f.Revealed && resolved(f.Code):
		return KindOffer
	default:
		return KindDropped
	}
}
