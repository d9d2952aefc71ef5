package discount

import (
	"fmt"
	"strconv"
)

// CartLineTargets returns one cart-line target for each line whose product is an active
// member of the collection, in cart order.
func CartLineTargets(lines []CartLine, collectionID string) []Target {
	targets := make([]Target, 0)
	for _, line := range lines {
		variant, ok := line.Variant()
		if !ok || !variant.Product.IsMemberOf(collectionID) {
			continue
		}
		targets = append(targets, Target{Kind: TargetCartLine, ID: line.ID})
	}
	return targets
}

// BestVariantDiscount scans lines referencing the tier's collection and keeps the one whose
// schedule carries the strictly highest rate for that collection. Membership flags are not
// consulted here; the collection id alone decides. A malformed schedule aborts the scan.
func BestVariantDiscount(lines []CartLine, tier Tier) (Discount, bool, error) {
	var (
		highest float64
		best    Discount
		found   bool
	)
	for _, line := range lines {
		variant, ok := line.Variant()
		if !ok || !variant.Product.ReferencesCollection(tier.Collection) {
			continue
		}
		if variant.Product.DiscountSchedule == nil {
			continue
		}
		schedule, err := ParseSchedule(*variant.Product.DiscountSchedule)
		if err != nil {
			return Discount{}, false, fmt.Errorf("variant %s: %w", variant.ID, err)
		}
		entry, ok := schedule.Lookup(tier.Collection)
		if !ok || entry.Discount <= highest {
			continue
		}
		highest = entry.Discount
		qty := line.Quantity
		best = Discount{
			Message:    FormatRate(entry.Discount) + "% off",
			Targets:    []Target{{Kind: TargetProductVariant, ID: variant.ID, Quantity: &qty}},
			Percentage: entry.Discount,
		}
		found = true
	}
	return best, found, nil
}

// FormatRate renders a rate in its shortest decimal form (10, 12.5).
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
