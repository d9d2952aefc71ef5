package discount

// Cart is an immutable snapshot of the lines being evaluated.
type Cart struct {
	Lines []CartLine
}

// CartLine represents a quantity of merchandise at a given per-unit cost.
type CartLine struct {
	ID          string
	Quantity    int64
	UnitCost    float64
	Merchandise Merchandise
}

// Subtotal returns unit cost multiplied by quantity.
func (l CartLine) Subtotal() float64 {
	return l.UnitCost * float64(l.Quantity)
}

// Variant returns the product variant behind the line when the merchandise is one.
func (l CartLine) Variant() (ProductVariant, bool) {
	switch m := l.Merchandise.(type) {
	case ProductVariant:
		return m, true
	case *ProductVariant:
		if m == nil {
			return ProductVariant{}, false
		}
		return *m, true
	default:
		return ProductVariant{}, false
	}
}

// Merchandise is the sealed union of things a cart line can reference.
// Only ProductVariant carries data relevant to discounting.
type Merchandise interface {
	merchandise()
}

// ProductVariant is a purchasable variant of a product.
type ProductVariant struct {
	ID      string
	Product Product
}

func (ProductVariant) merchandise() {}

// OtherMerchandise stands for any non-variant merchandise (custom products, gift cards...).
type OtherMerchandise struct {
	TypeName string
}

func (OtherMerchandise) merchandise() {}

// Product holds collection memberships and the optional raw discount schedule payload.
type Product struct {
	Collections []CollectionMembership
	// DiscountSchedule is the raw per-product payload, parsed on demand. Nil means absent.
	DiscountSchedule *string
}

// CollectionMembership records whether a product belongs to a collection.
type CollectionMembership struct {
	CollectionID string
	IsMember     bool
}

// IsMemberOf reports whether the product has an isMember=true record for the collection.
func (p Product) IsMemberOf(collectionID string) bool {
	for _, c := range p.Collections {
		if c.IsMember && c.CollectionID == collectionID {
			return true
		}
	}
	return false
}

// ReferencesCollection reports whether any membership record names the collection,
// regardless of its membership flag.
func (p Product) ReferencesCollection(collectionID string) bool {
	for _, c := range p.Collections {
		if c.CollectionID == collectionID {
			return true
		}
	}
	return false
}

// ApplicationStrategy tells the platform how to apply the returned discounts.
type ApplicationStrategy string

// StrategyFirst applies the first (and only) discount of a verdict.
const StrategyFirst ApplicationStrategy = "FIRST"

// TargetKind distinguishes cart-line targets from product-variant targets.
type TargetKind string

const (
	TargetCartLine       TargetKind = "cartLine"
	TargetProductVariant TargetKind = "productVariant"
)

// Target is the entity a discount applies to.
type Target struct {
	Kind TargetKind
	ID   string
	// Quantity overrides the number of units discounted. Nil applies to the full line.
	Quantity *int64
}

// Discount is a single percentage discount over one or more targets.
type Discount struct {
	Message    string
	Targets    []Target
	Percentage float64
}

// Verdict is the outcome of one evaluation: no discount, or exactly one Discount.
type Verdict struct {
	Discounts []Discount
	Strategy  ApplicationStrategy
}

// NoDiscount returns the empty verdict.
func NoDiscount() Verdict {
	return Verdict{Discounts: []Discount{}, Strategy: StrategyFirst}
}

func withDiscount(d Discount) Verdict {
	return Verdict{Discounts: []Discount{d}, Strategy: StrategyFirst}
}

// Applied reports whether the verdict carries a discount.
func (v Verdict) Applied() bool {
	return len(v.Discounts) > 0
}
