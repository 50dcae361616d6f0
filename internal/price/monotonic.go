package price

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// EnforceMonotonic caps prices so they never increase as condition worsens.
// A condition priced above the nearest better available condition is capped to that price
// and reported as an anomaly. The input table is not modified.
func EnforceMonotonic(table ConditionTable) (ConditionTable, []domain.Anomaly) {
	capped := make(ConditionTable, len(table))
	var anomalies []domain.Anomaly

	var ceiling decimal.Decimal
	haveCeiling := false

	for _, cond := range domain.Conditions() {
		p, ok := table[cond]
		if !ok {
			continue
		}
		if !p.IsPositive() {
			capped[cond] = p
			continue
		}
		if haveCeiling && p.GreaterThan(ceiling) {
			anomalies = append(anomalies, domain.Anomaly{Condition: cond, Raw: p, CappedTo: ceiling})
			p = ceiling
		}
		capped[cond] = p
		ceiling = p
		haveCeiling = true
	}

	return capped, anomalies
}

// SelectCondition picks the condition whose price answers a request for `requested`.
// The exact condition wins; otherwise the cheapest strictly-better condition; otherwise the
// nearest worse condition. ok is false when the table has no usable price at all.
func SelectCondition(requested domain.Condition, table ConditionTable) (cond domain.Condition, price decimal.Decimal, ok bool) {
	if table.has(requested) {
		return requested, table[requested], true
	}

	// Better conditions, nearest first so ties resolve toward the requested grade.
	conditions := domain.Conditions()
	for i := requested.Rank() - 1; i >= 0; i-- {
		c := conditions[i]
		if !table.has(c) {
			continue
		}
		if !ok || table[c].LessThan(price) {
			cond, price, ok = c, table[c], true
		}
	}
	if ok {
		return cond, price, true
	}

	for i := requested.Rank() + 1; i < len(conditions); i++ {
		c := conditions[i]
		if table.has(c) {
			return c, table[c], true
		}
	}

	return "", decimal.Zero, false
}
