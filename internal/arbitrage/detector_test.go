package arbitrage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultDetector() *Detector {
	return NewDetector(DetectorConfig{
		FeeRate:       0.02,
		MinProfit:     0.005,
		Alpha:         0.9,
		MinDivergence: 0.05,
	}, discardLogger())
}

func pricedCandidate(key string, kind domain.MarketKind, asks ...float64) Candidate {
	c := Candidate{Key: key, Kind: kind, Question: "Test market?"}
	for _, ask := range asks {
		c.Legs = append(c.Legs, domain.OutcomePrice{
			TokenID:  key + "-tok",
			Outcome:  "Outcome",
			MarketID: key,
			BestAsk:  ask,
		})
	}
	return c
}

func TestDetect_ClearBinaryArbitrage(t *testing.T) {
	opp, err := defaultDetector().Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.40, 0.40))
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.InDelta(t, 0.80, opp.TotalCost, 1e-9)
	assert.InDelta(t, 0.20, opp.GrossProfit, 1e-9)
	assert.InDelta(t, 0.196, opp.NetProfit, 1e-9)
	assert.InDelta(t, 24.5, opp.ROIPct, 1e-9)
	assert.InDelta(t, 0.223144, opp.Guarantee.KLDivergence, 1e-6)
	assert.Equal(t, domain.KindBinary, opp.Kind)
	assert.Equal(t, 2, opp.OutcomeCount)
	assert.NotEmpty(t, opp.ID)
	assert.False(t, opp.DetectedAt.IsZero())
}

func TestDetect_ExactDollarIsNotArbitrage(t *testing.T) {
	d := defaultDetector()

	opp, err := d.Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.60, 0.40))
	require.NoError(t, err)
	assert.Nil(t, opp)

	opp, err = d.Detect(context.Background(), pricedCandidate("m2", domain.KindBinary, 0.55, 0.50))
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestDetect_TinyEdgeBelowProfitFloor(t *testing.T) {
	// total=0.999, net=0.00098, under the 0.005 floor.
	opp, err := defaultDetector().Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.50, 0.499))
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestDetect_DivergenceGateDropsShallowEdges(t *testing.T) {
	// total=0.96 clears the profit floor (net 0.0392) but D = ln(1/0.96)
	// is under the default 0.05 divergence gate.
	c := pricedCandidate("m1", domain.KindBinary, 0.48, 0.48)

	opp, err := defaultDetector().Detect(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, opp)

	relaxed := NewDetector(DetectorConfig{
		FeeRate:       0.02,
		MinProfit:     0.005,
		Alpha:         0.9,
		MinDivergence: 0.01,
	}, discardLogger())
	opp, err = relaxed.Detect(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.InDelta(t, 0.0392, opp.NetProfit, 1e-9)
}

func TestDetect_CustomFeeRate(t *testing.T) {
	d := NewDetector(DetectorConfig{
		FeeRate:       0.05,
		MinProfit:     0.005,
		Alpha:         0.9,
		MinDivergence: 0.05,
	}, discardLogger())

	opp, err := d.Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.45, 0.45))
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.InDelta(t, 0.10, opp.GrossProfit, 1e-9)
	assert.InDelta(t, 0.095, opp.NetProfit, 1e-9)
}

func TestDetect_CustomThresholds(t *testing.T) {
	d := NewDetector(DetectorConfig{
		FeeRate:       0.02,
		MinProfit:     0.003,
		Alpha:         0.9,
		MinDivergence: 0.001,
	}, discardLogger())

	// gross=0.004, net=0.00392: inside the relaxed floors.
	opp, err := d.Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.498, 0.498))
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.InDelta(t, 0.00392, opp.NetProfit, 1e-9)
}

func TestDetect_NegRiskBucket(t *testing.T) {
	c := pricedCandidate("evt-1", domain.KindNegRisk, 0.30, 0.25, 0.20, 0.18)

	opp, err := defaultDetector().Detect(context.Background(), c)
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.Equal(t, domain.KindNegRisk, opp.Kind)
	assert.Equal(t, 4, opp.OutcomeCount)
	assert.InDelta(t, 0.93, opp.TotalCost, 1e-9)
	assert.InDelta(t, 0.0686, opp.NetProfit, 1e-9)
	assert.InDelta(t, 7.3763, opp.ROIPct, 1e-4)

	// The skewed spread drives the gap past the divergence: the lower
	// bound clamps to zero and the policy flags stay informational,
	// the arithmetic still reports the opportunity.
	assert.Equal(t, 0.0, opp.Guarantee.GuaranteedProfit)
	assert.False(t, opp.Guarantee.AlphaSatisfied)
	assert.True(t, opp.Guarantee.ShouldTrade)
}

func TestDetect_ManyOutcomes(t *testing.T) {
	asks := make([]float64, 10)
	for i := range asks {
		asks[i] = 0.08
	}
	opp, err := defaultDetector().Detect(context.Background(), pricedCandidate("evt-2", domain.KindNegRisk, asks...))
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.InDelta(t, 0.80, opp.TotalCost, 1e-9)
	assert.InDelta(t, 0.20, opp.GrossProfit, 1e-9)
}

func TestDetect_BalancedBookCarriesGuarantee(t *testing.T) {
	opp, err := defaultDetector().Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.45, 0.45))
	require.NoError(t, err)
	require.NotNil(t, opp)

	assert.InDelta(t, 0.098, opp.NetProfit, 1e-9)
	assert.InDelta(t, 0.105361, opp.Guarantee.KLDivergence, 1e-6)
	assert.InDelta(t, 0, opp.Guarantee.FWGap, 1e-9)
	assert.InDelta(t, 0.103253, opp.Guarantee.GuaranteedProfit, 1e-6)
	assert.True(t, opp.Guarantee.AlphaSatisfied)
	assert.False(t, opp.Guarantee.ShouldTrade)
}

func TestDetect_UnpricedLegSkipsCandidate(t *testing.T) {
	c := pricedCandidate("m1", domain.KindBinary, 0.42, 0.42)
	c.Legs[1].BestAsk = 0

	opp, err := defaultDetector().Detect(context.Background(), c)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestDetect_SingleLegIsInvalid(t *testing.T) {
	_, err := defaultDetector().Detect(context.Background(), pricedCandidate("m1", domain.KindBinary, 0.50))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
