package discount

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CollectionDiscount is a per-collection rate taken from a product's discount schedule.
type CollectionDiscount struct {
	CollectionID string  `json:"collection_id"`
	Discount     float64 `json:"discount"`
}

// Schedule is a parsed product discount schedule.
type Schedule struct {
	CollectionDiscounts []CollectionDiscount `json:"collectionDiscounts"`
}

type rawSchedule struct {
	CollectionDiscounts *[]rawCollectionDiscount `json:"collectionDiscounts"`
}

type rawCollectionDiscount struct {
	CollectionID *string  `json:"collection_id"`
	Discount     *float64 `json:"discount"`
}

// ParseSchedule decodes a product discount schedule payload.
func ParseSchedule(raw string) (Schedule, error) {
	var doc rawSchedule
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return Schedule{}, fmt.Errorf("%w: %v", ErrInvalidDiscountSchedule, err)
	}
	if doc.CollectionDiscounts == nil {
		return Schedule{}, fmt.Errorf("%w: missing field collectionDiscounts", ErrInvalidDiscountSchedule)
	}
	out := Schedule{CollectionDiscounts: make([]CollectionDiscount, 0, len(*doc.CollectionDiscounts))}
	for i, entry := range *doc.CollectionDiscounts {
		if entry.CollectionID == nil || entry.Discount == nil {
			return Schedule{}, fmt.Errorf("%w: collectionDiscounts[%d]: collection_id and discount are required", ErrInvalidDiscountSchedule, i)
		}
		out.CollectionDiscounts = append(out.CollectionDiscounts, CollectionDiscount{
			CollectionID: *entry.CollectionID,
			Discount:     *entry.Discount,
		})
	}
	return out, nil
}

// Lookup returns the first entry for the collection.
func (s Schedule) Lookup(collectionID string) (CollectionDiscount, bool) {
	for _, entry := range s.CollectionDiscounts {
		if entry.CollectionID == collectionID {
			return entry, true
		}
	}
	return CollectionDiscount{}, false
}
