package domain

import (
	"fmt"
	"strings"
)

// Condition is a card wear grade. The zero value is not a valid condition.
type Condition string

const (
	ConditionMint             Condition = "mint"
	ConditionNearMint         Condition = "near_mint"
	ConditionLightlyPlayed    Condition = "lightly_played"
	ConditionModeratelyPlayed Condition = "moderately_played"
	ConditionHeavilyPlayed    Condition = "heavily_played"
	ConditionDamaged          Condition = "damaged"
)

// conditionOrder lists conditions from best to worst.
var conditionOrder = []Condition{
	ConditionMint,
	ConditionNearMint,
	ConditionLightlyPlayed,
	ConditionModeratelyPlayed,
	ConditionHeavilyPlayed,
	ConditionDamaged,
}

// conditionAliases maps normalized grading shorthands and marketplace labels to conditions.
var conditionAliases = map[string]Condition{
	// canonical values (identity mappings)
	"mint":              ConditionMint,
	"near_mint":         ConditionNearMint,
	"lightly_played":    ConditionLightlyPlayed,
	"moderately_played": ConditionModeratelyPlayed,
	"heavily_played":    ConditionHeavilyPlayed,
	"damaged":           ConditionDamaged,
	// shorthands
	"m":   ConditionMint,
	"nm":  ConditionNearMint,
	"lp":  ConditionLightlyPlayed,
	"mp":  ConditionModeratelyPlayed,
	"hp":  ConditionHeavilyPlayed,
	"dmg": ConditionDamaged,
	"d":   ConditionDamaged,
	// marketplace labels
	"near mint":         ConditionNearMint,
	"near-mint":         ConditionNearMint,
	"lightly played":    ConditionLightlyPlayed,
	"moderately played": ConditionModeratelyPlayed,
	"heavily played":    ConditionHeavilyPlayed,
	"excellent":         ConditionLightlyPlayed,
	"good":              ConditionModeratelyPlayed,
	"played":            ConditionHeavilyPlayed,
	"poor":              ConditionDamaged,
}

// Conditions returns all conditions ordered from best to worst.
func Conditions() []Condition {
	out := make([]Condition, len(conditionOrder))
	copy(out, conditionOrder)
	return out
}

// ParseCondition maps a raw condition label to a Condition.
func ParseCondition(raw string) (Condition, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := conditionAliases[normalized]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown condition %q", raw)
}

// Valid reports whether c is one of the fixed conditions.
func (c Condition) Valid() bool {
	return c.Rank() >= 0
}

// Rank returns the position of c in the best-to-worst order (mint = 0), or -1 if unknown.
func (c Condition) Rank() int {
	for i, cond := range conditionOrder {
		if cond == c {
			return i
		}
	}
	return -1
}

// BetterThan reports whether c is a strictly better grade than other.
func (c Condition) BetterThan(other Condition) bool {
	return c.Valid() && other.Valid() && c.Rank() < other.Rank()
}

// Label returns a human readable name, e.g. "Near Mint".
func (c Condition) Label() string {
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
