package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RarityTable maps a composed blood type ("O+") to its population-frequency
// weight in (0,1]. It is a sort key, never a probability: higher weight means
// a more common type. Missing keys weigh 0 and sort last.
//
// The table is deployment configuration; a site may override the defaults
// from a YAML file without touching the allocation algorithm.
type RarityTable map[string]float64

// DefaultRarityTable returns the built-in frequency weights.
func DefaultRarityTable() RarityTable {
	return RarityTable{
		"O+": 0.37, "A+": 0.34, "B+": 0.10, "AB+": 0.04,
		"O-": 0.06, "A-": 0.06, "B-": 0.02, "AB-": 0.01,
	}
}

// Weight returns the frequency weight for a blood type, 0 when unknown.
func (r RarityTable) Weight(t BloodType) float64 {
	return r[t.String()]
}

// LoadRarityTable reads a YAML mapping of composed blood type to weight and
// merges it over the defaults. Unknown type keys are rejected so a typo in
// deployment config fails loudly at startup instead of silently sorting last.
func LoadRarityTable(path string) (RarityTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rarity table: %w", err)
	}
	var overrides map[string]float64
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse rarity table: %w", err)
	}
	table := DefaultRarityTable()
	for key, weight := range overrides {
		if _, err := ParseBloodType(key); err != nil {
			return nil, fmt.Errorf("rarity table key %q: %w", key, err)
		}
		if weight <= 0 || weight > 1 {
			return nil, fmt.Errorf("rarity table weight for %q must be in (0,1], got %v", key, weight)
		}
		table[key] = weight
	}
	return table, nil
}
