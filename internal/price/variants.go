package price

import (
	"github.com/samber/lo"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// selectVariant picks an embedded variant price for the requested condition and printing.
// Order: exact (condition, printing); same condition, any printing; highest priced variant of
// the printing across conditions. found is false when no priced variant of the printing exists.
func selectVariant(variants []domain.Variant, cond domain.Condition, printing domain.Printing) (v domain.Variant, found bool) {
	priced := lo.Filter(variants, func(v domain.Variant, _ int) bool {
		return v.Price.IsPositive()
	})

	if v, ok := lo.Find(priced, func(v domain.Variant) bool {
		return v.Condition == cond && v.Printing == printing
	}); ok {
		return v, true
	}

	if v, ok := lo.Find(priced, func(v domain.Variant) bool {
		return v.Condition == cond
	}); ok {
		return v, true
	}

	samePrinting := lo.Filter(priced, func(v domain.Variant, _ int) bool {
		return v.Printing == printing
	})
	if len(samePrinting) == 0 {
		return domain.Variant{}, false
	}
	return lo.MaxBy(samePrinting, func(a, b domain.Variant) bool {
		return a.Price.GreaterThan(b.Price)
	}), true
}
