// Package arbitrage detects risk-free spreads across prediction market
// outcomes: buying one share of every outcome in a mutually exclusive,
// exhaustive set for less than the $1.00 settlement payout. Binary
// markets and NegRisk buckets flow through the same evaluation, the
// candidate just carries more legs in the bucketed case.
package arbitrage

import (
	"fmt"

	"polyarb/internal/domain"
)

// Candidate is one unit of detection: a single binary market, or every
// market sharing a NegRisk bucket flattened into one outcome set.
type Candidate struct {
	Key       string
	Kind      domain.MarketKind
	Question  string
	Legs      []domain.OutcomePrice
	Midpoints []float64
}

// OutcomeCount returns the number of legs.
func (c Candidate) OutcomeCount() int { return len(c.Legs) }

// Priced reports whether every leg carries a usable ask.
func (c Candidate) Priced() bool {
	for _, leg := range c.Legs {
		if !leg.Priced() {
			return false
		}
	}
	return len(c.Legs) > 0
}

// Asks returns the per-leg ask prices in leg order.
func (c Candidate) Asks() []float64 {
	asks := make([]float64, len(c.Legs))
	for i, leg := range c.Legs {
		asks[i] = leg.BestAsk
	}
	return asks
}

// TokenIDs returns the per-leg token identifiers in leg order.
func (c Candidate) TokenIDs() []string {
	ids := make([]string, len(c.Legs))
	for i, leg := range c.Legs {
		ids[i] = leg.TokenID
	}
	return ids
}

// MidpointTotal sums the embedded midpoint prices across all legs.
// Legs without a midpoint contribute zero, which keeps the candidate
// on the cheap side of any pre-filter threshold.
func (c Candidate) MidpointTotal() float64 {
	var total float64
	for _, m := range c.Midpoints {
		total += m
	}
	return total
}

// GroupMarkets partitions markets into NegRisk buckets keyed by
// Market.BucketKey. Markets without a shared bucket identifier each
// form a singleton group. Group order follows first appearance in the
// input, and member order within a group is preserved.
func GroupMarkets(markets []domain.Market) []domain.NegRiskGroup {
	byKey := make(map[string]int, len(markets))
	groups := make([]domain.NegRiskGroup, 0, len(markets))

	for _, m := range markets {
		key := m.BucketKey()
		idx, ok := byKey[key]
		if !ok {
			byKey[key] = len(groups)
			groups = append(groups, domain.NegRiskGroup{BucketID: key})
			idx = len(groups) - 1
		}
		groups[idx].Markets = append(groups[idx].Markets, m)
	}
	return groups
}

// BuildCandidates turns markets into detection units, merging NegRisk
// bucket members into one candidate whose legs span every member. A
// market with fewer than two outcomes is rejected on its own with an
// error in errs and does not abort the rest of the build.
func BuildCandidates(markets []domain.Market) ([]Candidate, []error) {
	var errs []error

	usable := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if m.OutcomeCount() < 2 {
			errs = append(errs, fmt.Errorf("arbitrage: market %s has %d outcomes: %w", m.ID, m.OutcomeCount(), domain.ErrInvalidInput))
			continue
		}
		usable = append(usable, m)
	}

	groups := GroupMarkets(usable)
	candidates := make([]Candidate, 0, len(groups))
	for _, g := range groups {
		candidates = append(candidates, candidateFromGroup(g))
	}
	return candidates, errs
}

func candidateFromGroup(g domain.NegRiskGroup) Candidate {
	c := Candidate{
		Key:      g.BucketID,
		Question: g.Markets[0].Question,
		Kind:     g.Markets[0].Kind,
	}
	if len(g.Markets) > 1 {
		c.Kind = domain.KindNegRisk
	}

	for _, m := range g.Markets {
		for i, tokenID := range m.TokenIDs {
			leg := domain.OutcomePrice{TokenID: tokenID, MarketID: m.ID}
			if i < len(m.Outcomes) {
				leg.Outcome = m.Outcomes[i]
			}
			c.Legs = append(c.Legs, leg)

			if i < len(m.Midpoints) {
				c.Midpoints = append(c.Midpoints, m.Midpoints[i])
			} else {
				c.Midpoints = append(c.Midpoints, 0)
			}
		}
	}
	return c
}
