package valuation

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// StaticRules is an in-memory RulesStore. It is read-only after construction.
type StaticRules struct {
	rules []Rule
}

// NewStaticRules creates a store over a copy of rules.
func NewStaticRules(rules []Rule) *StaticRules {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return &StaticRules{rules: out}
}

func (s *StaticRules) GetRule(_ context.Context, game domain.Game, marketPrice decimal.Decimal) (Rule, error) {
	return selectRule(s.rules, game, marketPrice)
}

// Rules returns a copy of the configured rules.
func (s *StaticRules) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// rulesFile is the YAML layout:
//
//	rules:
//	  - game: pokemon
//	    min: "0"
//	    max: "49.99"
//	    cash: "40"
//	    trade: "60"
type rulesFile struct {
	Rules []struct {
		Game       string `yaml:"game"`
		Min        string `yaml:"min"`
		Max        string `yaml:"max"`
		Cash       string `yaml:"cash"`
		Trade      string `yaml:"trade"`
		FixedCash  string `yaml:"fixedCash"`
		FixedTrade string `yaml:"fixedTrade"`
	} `yaml:"rules"`
}

// LoadRulesFile reads and validates a YAML rules file.
func LoadRulesFile(path string) (*StaticRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return NewStaticRules(rules), nil
}

// ParseRules decodes YAML rules. Every rule is validated.
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules yaml: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for i, raw := range f.Rules {
		var r Rule
		var err error
		r.Game = domain.NormalizeGame(raw.Game)
		if r.MinValue, err = parseOptional(raw.Min, "0"); err != nil {
			return nil, fmt.Errorf("rule %d min: %w", i, err)
		}
		if r.CashPercentage, err = parseOptional(raw.Cash, "0"); err != nil {
			return nil, fmt.Errorf("rule %d cash: %w", i, err)
		}
		if r.TradePercentage, err = parseOptional(raw.Trade, "0"); err != nil {
			return nil, fmt.Errorf("rule %d trade: %w", i, err)
		}
		if r.MaxValue, err = parsePtr(raw.Max); err != nil {
			return nil, fmt.Errorf("rule %d max: %w", i, err)
		}
		if r.FixedCashValue, err = parsePtr(raw.FixedCash); err != nil {
			return nil, fmt.Errorf("rule %d fixedCash: %w", i, err)
		}
		if r.FixedTradeValue, err = parsePtr(raw.FixedTrade); err != nil {
			return nil, fmt.Errorf("rule %d fixedTrade: %w", i, err)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseOptional(s, def string) (decimal.Decimal, error) {
	if s == "" {
		s = def
	}
	return decimal.NewFromString(s)
}

func parsePtr(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
