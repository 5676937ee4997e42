package coupon

// Dedupe keeps the first item for every key, preserving order
func Dedupe[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	unique := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}

// DedupeCoupons collapses coupons with the same description, code and expiry
func DedupeCoupons(coupons []CouponRecord) []CouponRecord {
	return Dedupe(coupons, CouponRecord.key)
}

// DedupeOffers collapses offers with the same description and discount
func DedupeOffers(offers []OfferRecord) []OfferRecord {
	return Dedupe(offers, OfferRecord.key)
}
