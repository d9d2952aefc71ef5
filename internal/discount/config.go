package discount

import (
	"encoding/json"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FixedRule is the configuration of the fixed-rule engine.
type FixedRule struct {
	TargetCollection string  `json:"target_collection" yaml:"target_collection" validate:"required"`
	Percentage       float64 `json:"percentage" yaml:"percentage" validate:"gt=0,lte=100"`
	Threshold        float64 `json:"threshold" yaml:"threshold" validate:"gte=0"`
	Message          string  `json:"message" yaml:"message" validate:"required"`
}

// DefaultFixedRule mirrors the rule the checkout function shipped with.
func DefaultFixedRule() FixedRule {
	return FixedRule{
		TargetCollection: "gid://shopify/Collection/496241049921",
		Percentage:       15,
		Threshold:        150,
		Message:          "15% discount applied to eligible collection items.",
	}
}

// Validate ensures the rule is usable.
func (r FixedRule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixedRule, err)
	}
	return nil
}

// Tier associates a collection with the minimum cart value unlocking its discount rate.
type Tier struct {
	Collection string  `json:"collection" yaml:"collection"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
}

// TieredConfig is the per-call configuration of the tiered engine.
type TieredConfig struct {
	// CollectionIDs lists collections whose member products are left out of the subtotal.
	CollectionIDs []string `json:"collection_ids" yaml:"collection_ids"`
	// Mapping is evaluated in order; duplicates are legal.
	Mapping []Tier `json:"mapping" yaml:"mapping"`
}

type rawTieredConfig struct {
	CollectionIDs      *[]string  `json:"collection_ids"`
	CamelCollectionIDs *[]string  `json:"collectionIds"`
	Mapping            *[]rawTier `json:"mapping"`
}

type rawTier struct {
	Collection *string  `json:"collection"`
	Threshold  *float64 `json:"threshold"`
}

// ParseTieredConfig decodes a configuration payload. Any structural problem is reported
// as ErrInvalidConfiguration.
func ParseTieredConfig(raw string) (TieredConfig, error) {
	var doc rawTieredConfig
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return TieredConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	ids := doc.CollectionIDs
	if ids == nil {
		ids = doc.CamelCollectionIDs
	}
	if ids == nil {
		return TieredConfig{}, fmt.Errorf("%w: missing field collection_ids", ErrInvalidConfiguration)
	}
	if doc.Mapping == nil {
		return TieredConfig{}, fmt.Errorf("%w: missing field mapping", ErrInvalidConfiguration)
	}
	cfg := TieredConfig{
		CollectionIDs: append([]string{}, (*ids)...),
		Mapping:       make([]Tier, 0, len(*doc.Mapping)),
	}
	for i, t := range *doc.Mapping {
		if t.Collection == nil {
			return TieredConfig{}, fmt.Errorf("%w: mapping[%d]: missing field collection", ErrInvalidConfiguration, i)
		}
		if t.Threshold == nil {
			return TieredConfig{}, fmt.Errorf("%w: mapping[%d]: missing field threshold", ErrInvalidConfiguration, i)
		}
		cfg.Mapping = append(cfg.Mapping, Tier{Collection: *t.Collection, Threshold: *t.Threshold})
	}
	return cfg, nil
}

// Encode renders the configuration in canonical form.
func (c TieredConfig) Encode() (string, error) {
	out := TieredConfig{CollectionIDs: c.CollectionIDs, Mapping: c.Mapping}
	if out.CollectionIDs == nil {
		out.CollectionIDs = []string{}
	}
	if out.Mapping == nil {
		out.Mapping = []Tier{}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c TieredConfig) excluded() map[string]struct{} {
	set := make(map[string]struct{}, len(c.CollectionIDs))
	for _, id := range c.CollectionIDs {
		set[id] = struct{}{}
	}
	return set
}
