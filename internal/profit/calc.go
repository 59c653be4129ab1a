// Package profit implements the information-theoretic profit guarantee
// behind the arbitrage detector: the KL divergence between a target
// allocation and the current ask prices, the Frank-Wolfe optimization
// gap, and the guaranteed lower bound D - g. Every function is pure and
// safe for concurrent use.
package profit

import (
	"fmt"
	"math"

	"polyarb/internal/domain"
)

// Policy defaults: skip edges below five cents per dollar wagered and
// aim to capture 90% of the available divergence.
const (
	DefaultAlpha         = 0.9
	DefaultMinDivergence = 0.05
	DefaultFeeRate       = 0.02
)

// Options control the evaluation policy.
type Options struct {
	// Alpha is the extraction target. The search for a better target
	// allocation stops once gap <= (1-Alpha)*divergence.
	Alpha float64

	// MinDivergence is the smallest divergence worth acting on.
	MinDivergence float64

	// FeeRate is the fee charged on winnings, not on capital.
	FeeRate float64
}

// DefaultOptions returns the standard policy thresholds.
func DefaultOptions() Options {
	return Options{
		Alpha:         DefaultAlpha,
		MinDivergence: DefaultMinDivergence,
		FeeRate:       DefaultFeeRate,
	}
}

// KLDivergence computes D(mu||theta), the divergence from the current
// price vector theta to the target allocation mu:
//
//	D = sum over mu[i] > 0 of mu[i] * ln(mu[i]/theta[i])
//
// theta holds raw ask prices and need not sum to one. A theta[i] <= 0
// with mu[i] > 0 yields +Inf, which signals a degenerate quote rather
// than an error. Entries with mu[i] <= 0 contribute nothing, following
// the convention 0*ln(0/x) = 0.
func KLDivergence(mu, theta []float64) (float64, error) {
	if err := checkPair(mu, theta); err != nil {
		return 0, err
	}

	var d float64
	for i, m := range mu {
		if m <= 0 {
			continue
		}
		if theta[i] <= 0 {
			return math.Inf(1), nil
		}
		d += m * math.Log(m / theta[i])
	}
	return d, nil
}

// FrankWolfeGap computes g(mu) = max over simplex vertices v of
// <grad, mu - v>, where grad[i] = ln(mu[i]/theta[i]) + 1 for priced
// entries and 0 for degenerate ones. The vertices of the outcome
// simplex are the unit vectors, so each candidate reduces to
// <grad, mu> - grad[j]. The gap is clamped at zero.
func FrankWolfeGap(mu, theta []float64) (float64, error) {
	if err := checkPair(mu, theta); err != nil {
		return 0, err
	}

	grad := make([]float64, len(mu))
	for i, m := range mu {
		if m <= 0 || theta[i] <= 0 {
			continue
		}
		grad[i] = math.Log(m/theta[i]) + 1
	}

	var dot float64
	for i, g := range grad {
		dot += g * mu[i]
	}

	gap := math.Inf(-1)
	for _, g := range grad {
		if v := dot - g; v > gap {
			gap = v
		}
	}
	return math.Max(0, gap), nil
}

// GuaranteedProfit is the lower bound on extractable profit,
// max(0, divergence - gap). A negative raw value means the bound
// offers no guarantee, not a loss.
func GuaranteedProfit(divergence, gap float64) float64 {
	return math.Max(0, divergence-gap)
}

// AlphaExtractionMet reports whether at least an alpha fraction of the
// divergence has been captured, that is gap <= (1-alpha)*divergence.
// Zero divergence counts as fully extracted.
func AlphaExtractionMet(divergence, gap, alpha float64) bool {
	if divergence <= 0 {
		return true
	}
	return gap <= (1-alpha)*divergence
}

// ExtractionPct is the captured fraction 1 - gap/divergence, clamped
// to [0, 1].
func ExtractionPct(divergence, gap float64) float64 {
	if divergence <= 0 {
		return 1
	}
	p := 1 - gap/divergence
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ShouldTrade is the combined trading policy for an evaluated pair:
// act only when the divergence clears the minimum threshold and the
// alpha extraction target has not been met yet.
func ShouldTrade(divergence, gap, alpha, minDivergence float64) bool {
	if divergence < minDivergence {
		return false
	}
	return !AlphaExtractionMet(divergence, gap, alpha)
}

// NetProfit applies the fee charged on winnings: gross*(1-feeRate) for
// a positive gross, zero otherwise.
func NetProfit(gross, feeRate float64) float64 {
	if gross <= 0 {
		return 0
	}
	return gross * (1 - feeRate)
}

// UniformTarget returns the uniform allocation over n outcomes.
func UniformTarget(n int) []float64 {
	mu := make([]float64, n)
	for i := range mu {
		mu[i] = 1 / float64(n)
	}
	return mu
}

// Evaluate runs the full pipeline for the given ask vector against the
// uniform target allocation and returns divergence, gap, the
// fee-adjusted lower bound, the extraction fraction and the policy
// flags. A non-finite divergence, caused by a zero ask among the legs,
// degrades to a zero guarantee with ShouldTrade false so degenerate
// quotes never reach the ranking.
func Evaluate(asks []float64, opts Options) (domain.ProfitGuarantee, error) {
	if len(asks) == 0 {
		return domain.ProfitGuarantee{}, fmt.Errorf("profit: evaluate: empty ask vector: %w", domain.ErrInvalidInput)
	}

	mu := UniformTarget(len(asks))

	d, err := KLDivergence(mu, asks)
	if err != nil {
		return domain.ProfitGuarantee{}, err
	}
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return domain.ProfitGuarantee{ExtractionPct: 1, AlphaSatisfied: true}, nil
	}

	g, err := FrankWolfeGap(mu, asks)
	if err != nil {
		return domain.ProfitGuarantee{}, err
	}

	bound := GuaranteedProfit(d, g)
	return domain.ProfitGuarantee{
		KLDivergence:     round6(d),
		FWGap:            round6(g),
		GuaranteedProfit: round6(NetProfit(bound, opts.FeeRate)),
		ExtractionPct:    round4(ExtractionPct(d, g)),
		AlphaSatisfied:   AlphaExtractionMet(d, g, opts.Alpha),
		ShouldTrade:      ShouldTrade(d, g, opts.Alpha, opts.MinDivergence),
	}, nil
}

func checkPair(mu, theta []float64) error {
	if len(mu) != len(theta) {
		return fmt.Errorf("profit: mu has %d entries, theta has %d: %w", len(mu), len(theta), domain.ErrInvalidInput)
	}
	if len(mu) == 0 {
		return fmt.Errorf("profit: empty distribution: %w", domain.ErrInvalidInput)
	}
	return nil
}

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
