package function

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-discount/internal/discount"
)

// ErrInvalidInput is returned when a function input document cannot be decoded or validated.
var ErrInvalidInput = errors.New("function: invalid input")

const productVariantType = "ProductVariant"

var validate = validator.New()

// Decimal accepts both JSON numbers and numeric strings.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("decimal %q: %w", s, err)
		}
		*d = Decimal(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return err
	}
	*d = Decimal(f)
	return nil
}

// Metafield carries a raw JSON value attached to a platform resource.
type Metafield struct {
	Value string `json:"value"`
}

// Input is the function-run input document.
type Input struct {
	DiscountNode *DiscountNode `json:"discountNode"`
	CartData     CartData      `json:"cart"`
}

// DiscountNode owns the discount configuration metafield.
type DiscountNode struct {
	Metafield *Metafield `json:"metafield"`
}

// CartData is the cart section of the input document.
type CartData struct {
	Lines []Line `json:"lines" validate:"dive"`
}

// Line is a cart line as delivered by the platform.
type Line struct {
	ID          string      `json:"id"`
	Quantity    int64       `json:"quantity" validate:"gte=0"`
	Cost        Cost        `json:"cost"`
	Merchandise Merchandise `json:"merchandise"`
}

// Cost wraps the per-unit amount.
type Cost struct {
	AmountPerQuantity Money `json:"amountPerQuantity"`
}

// Money is an amount with its currency code.
type Money struct {
	Amount       Decimal `json:"amount" validate:"gte=0"`
	CurrencyCode string  `json:"currencyCode,omitempty"`
}

// Merchandise is the polymorphic merchandise object keyed by __typename.
type Merchandise struct {
	TypeName string   `json:"__typename"`
	ID       string   `json:"id"`
	SKU      string   `json:"sku,omitempty"`
	Product  *Product `json:"product"`
}

// Product is the product behind a variant.
type Product struct {
	InCollections []Membership `json:"inCollections"`
	Metafield     *Metafield   `json:"metafield"`
}

// Membership is a collection membership record.
type Membership struct {
	CollectionID string `json:"collectionId"`
	IsMember     bool   `json:"isMember"`
}

// IsVariant reports whether the merchandise is a product variant. Untyped merchandise that
// carries a product is treated as one.
func (m Merchandise) IsVariant() bool {
	if m.TypeName == "" {
		return m.Product != nil
	}
	return m.TypeName == productVariantType
}

// DecodeInput reads and validates a function input document.
func DecodeInput(r io.Reader) (Input, error) {
	var in Input
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Validate checks structural constraints the engine relies on.
func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for i, line := range in.CartData.Lines {
		if line.Merchandise.IsVariant() && strings.TrimSpace(line.Merchandise.ID) == "" {
			return fmt.Errorf("%w: lines[%d]: product variant id is required", ErrInvalidInput, i)
		}
	}
	return nil
}

// ConfigurationValue returns the raw discount configuration, or nil when the metafield is absent.
func (in Input) ConfigurationValue() *string {
	if in.DiscountNode == nil || in.DiscountNode.Metafield == nil {
		return nil
	}
	value := in.DiscountNode.Metafield.Value
	return &value
}

// Cart converts the document into the engine's cart snapshot.
func (in Input) Cart() discount.Cart {
	lines := make([]discount.CartLine, 0, len(in.CartData.Lines))
	for _, l := range in.CartData.Lines {
		lines = append(lines, discount.CartLine{
			ID:          l.ID,
			Quantity:    l.Quantity,
			UnitCost:    float64(l.Cost.AmountPerQuantity.Amount),
			Merchandise: l.Merchandise.toEngine(),
		})
	}
	return discount.Cart{Lines: lines}
}

func (m Merchandise) toEngine() discount.Merchandise {
	if !m.IsVariant() {
		return discount.OtherMerchandise{TypeName: m.TypeName}
	}
	variant := discount.ProductVariant{ID: m.ID}
	if m.Product == nil {
		return variant
	}
	variant.Product.Collections = make([]discount.CollectionMembership, 0, len(m.Product.InCollections))
	for _, c := range m.Product.InCollections {
		variant.Product.Collections = append(variant.Product.Collections, discount.CollectionMembership{
			CollectionID: c.CollectionID,
			IsMember:     c.IsMember,
		})
	}
	if m.Product.Metafield != nil {
		value := m.Product.Metafield.Value
		variant.Product.DiscountSchedule = &value
	}
	return variant
}
