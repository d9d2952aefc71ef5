package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-discount/internal/discount"
)

// LoadFixedRuleFile reads a fixed rule from a YAML file. Keys missing from the file keep
// their default values.
func LoadFixedRuleFile(path string) (discount.FixedRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return discount.FixedRule{}, fmt.Errorf("read fixed rule file %s: %w", path, err)
	}
	rule := discount.DefaultFixedRule()
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return discount.FixedRule{}, fmt.Errorf("parse fixed rule file %s: %w", path, err)
	}
	return rule, nil
}
