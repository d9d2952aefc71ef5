package discount

// MeetsThreshold is the inclusive cart-value gate.
func MeetsThreshold(aggregate, threshold float64) bool {
	return aggregate >= threshold
}

// SelectTier picks the tier with the greatest threshold not above aggregate.
// Ties keep the tier that appears first in the mapping.
func SelectTier(aggregate float64, tiers []Tier) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, tier := range tiers {
		if !MeetsThreshold(aggregate, tier.Threshold) {
			continue
		}
		if !found || tier.Threshold > best.Threshold {
			best = tier
			found = true
		}
	}
	return best, found
}
