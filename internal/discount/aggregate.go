package discount

// LinePredicate decides whether a cart line contributes to an aggregate.
type LinePredicate func(CartLine) bool

// Aggregate sums unit cost times quantity over the lines accepted by include.
// Each line is visited once.
func Aggregate(lines []CartLine, include LinePredicate) float64 {
	var total float64
	for _, line := range lines {
		if include != nil && !include(line) {
			continue
		}
		total += line.Subtotal()
	}
	return total
}

// IncludeAll accepts every line, variant or not.
func IncludeAll(CartLine) bool { return true }

// ExcludingCollections accepts product variant lines whose product is not an active member
// of any excluded collection. Non-variant lines are never accepted.
func ExcludingCollections(excluded map[string]struct{}) LinePredicate {
	return func(line CartLine) bool {
		variant, ok := line.Variant()
		if !ok {
			return false
		}
		for _, c := range variant.Product.Collections {
			if !c.IsMember {
				continue
			}
			if _, hit := excluded[c.CollectionID]; hit {
				return false
			}
		}
		return true
	}
}
