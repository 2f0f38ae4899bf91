// Package topics holds the static topic pools and draws topics for a room.
package topics

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pools maps a pool key (see Key) to topics in declaration order. A Pools
// value is never mutated after construction.
type Pools map[string][]string

// Key builds the case-insensitive pool key for a channel and category.
func Key(channel, category string) string {
	return strings.ToLower(strings.TrimSpace(channel)) + "_" + strings.ToLower(strings.TrimSpace(category))
}

var defaultPools = Pools{
	"banca_rookie": {
		"Customer Service Excellence", "Banking Regulations", "Digital Banking Fundamentals",
		"Sales Techniques", "Risk Management Basics", "Customer Onboarding Process",
		"Financial Literacy", "Product Knowledge", "Compliance Training", "Communication Skills",
	},
	"banca_vintage": {
		"Advanced Banking Products", "Market Analysis", "Investment Advisory",
		"Regulatory Compliance", "Leadership Skills", "Strategic Planning",
		"Advanced Risk Assessment", "Portfolio Management", "Customer Retention",
		"Digital Transformation",
	},
	"retail_rookie": {
		"Retail Sales Basics", "Customer Interaction", "POS Systems",
		"Inventory Management", "Visual Merchandising", "Cash Handling",
		"Product Presentation", "Store Operations", "Customer Complaints",
		"Team Collaboration",
	},
	"retail_vintage": {
		"Advanced Retail Strategies", "Team Leadership", "Profit Optimization",
		"Customer Analytics", "Store Management", "Supply Chain Basics",
		"Performance Metrics", "Training & Development", "Quality Assurance",
		"Innovation in Retail",
	},
}

// Default returns a copy of the reference deployment's four pools.
func Default() Pools {
	out := make(Pools, len(defaultPools))
	for k, v := range defaultPools {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Lookup returns the pool for channel and category, or nil when the
// combination is unknown.
func (p Pools) Lookup(channel, category string) []string {
	return p[Key(channel, category)]
}

type poolFile struct {
	Pools []struct {
		Channel  string   `yaml:"channel"`
		Category string   `yaml:"category"`
		Topics   []string `yaml:"topics"`
	} `yaml:"pools"`
}

// LoadFile reads pools from YAML:
//
//	pools:
//	  - channel: Banca
//	    category: Rookie
//	    topics: [Sales Techniques, Product Knowledge]
func LoadFile(path string) (Pools, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f poolFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("topic pools %s: %w", path, err)
	}
	out := Pools{}
	for _, p := range f.Pools {
		key := Key(p.Channel, p.Category)
		if p.Channel == "" || p.Category == "" {
			return nil, fmt.Errorf("topic pools %s: pool needs channel and category", path)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("topic pools %s: duplicate pool %s", path, key)
		}
		seen := map[string]struct{}{}
		for _, t := range p.Topics {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				return nil, fmt.Errorf("topic pools %s: duplicate topic %q in %s", path, t, key)
			}
			seen[t] = struct{}{}
			out[key] = append(out[key], t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("topic pools %s: no pools defined", path)
	}
	return out, nil
}
