package match

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type Category struct {
	Name            string   `yaml:"name"`
	QueryKeywords   []string `yaml:"query_keywords"`
	ProductKeywords []string `yaml:"product_keywords"`
	// MaxAccessories rejects a candidate once its accessory count reaches it. 0 disables the check.
	MaxAccessories int      `yaml:"max_accessories"`
	Exclude        []string `yaml:"exclude"`
}

type Rules struct {
	DefaultMaxAccessories int        `yaml:"default_max_accessories"`
	Accessories           []string   `yaml:"accessories"`
	Categories            []Category `yaml:"categories"`
}

func LoadRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse relevance rules: %w", err)
	}
	for i := range r.Categories {
		c := &r.Categories[i]
		c.QueryKeywords = lowerAll(c.QueryKeywords)
		c.ProductKeywords = lowerAll(c.ProductKeywords)
		c.Exclude = lowerAll(c.Exclude)
	}
	r.Accessories = lowerAll(r.Accessories)
	return &r, nil
}

// DefaultRules returns the rule table compiled into the binary.
func DefaultRules() *Rules {
	r, err := LoadRules(defaultRules)
	if err != nil {
		panic(err)
	}
	return r
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
