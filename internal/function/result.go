package function

import (
	"encoding/json"
	"io"

	"github.com/noah-isme/backend-discount/internal/discount"
)

// Result is the function-run result document.
type Result struct {
	Discounts                   []Discount `json:"discounts"`
	DiscountApplicationStrategy string     `json:"discountApplicationStrategy"`
}

// Discount is one discount of the result document.
type Discount struct {
	Message *string  `json:"message"`
	Targets []Target `json:"targets"`
	Value   Value    `json:"value"`
}

// Target holds exactly one of its members.
type Target struct {
	CartLine       *TargetRef `json:"cartLine,omitempty"`
	ProductVariant *TargetRef `json:"productVariant,omitempty"`
}

// TargetRef identifies a target and its optional quantity override.
type TargetRef struct {
	ID       string `json:"id"`
	Quantity *int64 `json:"quantity"`
}

// Value holds the discount value; only percentages are produced.
type Value struct {
	Percentage *Percentage `json:"percentage,omitempty"`
}

// Percentage is a percentage discount value.
type Percentage struct {
	Value float64 `json:"value"`
}

// EncodeResult converts an engine verdict into the result document.
func EncodeResult(v discount.Verdict) Result {
	strategy := v.Strategy
	if strategy == "" {
		strategy = discount.StrategyFirst
	}
	out := Result{
		Discounts:                   make([]Discount, 0, len(v.Discounts)),
		DiscountApplicationStrategy: string(strategy),
	}
	for _, d := range v.Discounts {
		message := d.Message
		doc := Discount{
			Message: &message,
			Targets: make([]Target, 0, len(d.Targets)),
			Value:   Value{Percentage: &Percentage{Value: d.Percentage}},
		}
		for _, t := range d.Targets {
			ref := &TargetRef{ID: t.ID}
			if t.Quantity != nil {
				qty := *t.Quantity
				ref.Quantity = &qty
			}
			switch t.Kind {
			case discount.TargetProductVariant:
				doc.Targets = append(doc.Targets, Target{ProductVariant: ref})
			default:
				doc.Targets = append(doc.Targets, Target{CartLine: ref})
			}
		}
		out.Discounts = append(out.Discounts, doc)
	}
	return out
}

// Write encodes the result as JSON.
func (r Result) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// RunFixed evaluates the input with the fixed-rule engine.
func RunFixed(engine *discount.FixedEngine, in Input) (Result, discount.Evaluation) {
	ev := engine.Run(in.Cart())
	return EncodeResult(ev.Verdict), ev
}

// RunTiered evaluates the input with the tiered engine using the discount node configuration.
func RunTiered(in Input) (Result, discount.Evaluation, error) {
	ev, err := discount.RunTieredRaw(in.Cart(), in.ConfigurationValue())
	if err != nil {
		return Result{}, discount.Evaluation{}, err
	}
	return EncodeResult(ev.Verdict), ev, nil
}
