package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

func makeMarket(id string, kind domain.MarketKind, negRiskID string, midpoints []float64) domain.Market {
	m := domain.Market{
		ID:        id,
		Question:  "Will " + id + " resolve yes?",
		Slug:      id,
		Kind:      kind,
		Active:    true,
		NegRiskID: negRiskID,
		Midpoints: midpoints,
	}
	for range midpoints {
		m.Outcomes = append(m.Outcomes, "Outcome")
		m.TokenIDs = append(m.TokenIDs, id+"-tok")
	}
	return m
}

func TestGroupMarkets_BucketsByNegRiskID(t *testing.T) {
	m1 := makeMarket("m1", domain.KindNegRisk, "evt-1", []float64{0.30, 0.25})
	m2 := makeMarket("m2", domain.KindNegRisk, "evt-1", []float64{0.20, 0.18})
	m3 := makeMarket("m3", domain.KindBinary, "", []float64{0.48, 0.49})

	groups := GroupMarkets([]domain.Market{m1, m2, m3})
	require.Len(t, groups, 2)

	assert.Equal(t, "evt-1", groups[0].BucketID)
	require.Len(t, groups[0].Markets, 2)
	assert.Equal(t, "m1", groups[0].Markets[0].ID)
	assert.Equal(t, "m2", groups[0].Markets[1].ID)

	assert.Equal(t, "m3", groups[1].BucketID)
	require.Len(t, groups[1].Markets, 1)
}

func TestGroupMarkets_NegRiskWithoutBucketStandsAlone(t *testing.T) {
	m := makeMarket("orphan", domain.KindNegRisk, "", []float64{0.30, 0.30, 0.30})

	groups := GroupMarkets([]domain.Market{m})
	require.Len(t, groups, 1)
	assert.Equal(t, "orphan", groups[0].BucketID)
}

func TestBuildCandidates_MergesBucketLegs(t *testing.T) {
	m1 := makeMarket("m1", domain.KindNegRisk, "evt-1", []float64{0.30, 0.25})
	m2 := makeMarket("m2", domain.KindNegRisk, "evt-1", []float64{0.20, 0.18})
	m3 := makeMarket("m3", domain.KindBinary, "", []float64{0.48, 0.49})

	candidates, errs := BuildCandidates([]domain.Market{m1, m2, m3})
	require.Empty(t, errs)
	require.Len(t, candidates, 2)

	bucket := candidates[0]
	assert.Equal(t, "evt-1", bucket.Key)
	assert.Equal(t, domain.KindNegRisk, bucket.Kind)
	assert.Equal(t, 4, bucket.OutcomeCount())
	assert.InDelta(t, 0.93, bucket.MidpointTotal(), 1e-9)
	assert.Equal(t, "m1", bucket.Legs[0].MarketID)
	assert.Equal(t, "m2", bucket.Legs[2].MarketID)

	single := candidates[1]
	assert.Equal(t, "m3", single.Key)
	assert.Equal(t, domain.KindBinary, single.Kind)
	assert.Equal(t, 2, single.OutcomeCount())
}

func TestBuildCandidates_SingleMarketBucketKeepsAllOutcomes(t *testing.T) {
	m := makeMarket("m1", domain.KindNegRisk, "evt-9", []float64{0.30, 0.30, 0.30})

	candidates, errs := BuildCandidates([]domain.Market{m})
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Equal(t, "evt-9", candidates[0].Key)
	assert.Equal(t, domain.KindNegRisk, candidates[0].Kind)
	assert.Equal(t, 3, candidates[0].OutcomeCount())
}

func TestBuildCandidates_RejectsSingleOutcomeMarkets(t *testing.T) {
	bad := makeMarket("bad", domain.KindBinary, "", []float64{0.50})
	good := makeMarket("good", domain.KindBinary, "", []float64{0.40, 0.40})

	candidates, errs := BuildCandidates([]domain.Market{bad, good})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrInvalidInput)
	require.Len(t, candidates, 1)
	assert.Equal(t, "good", candidates[0].Key)
}

func TestCandidate_PricedAndAsks(t *testing.T) {
	c := Candidate{
		Key:  "m1",
		Kind: domain.KindBinary,
		Legs: []domain.OutcomePrice{
			{TokenID: "a", BestAsk: 0.45},
			{TokenID: "b", BestAsk: 0.45},
		},
	}
	assert.True(t, c.Priced())
	assert.Equal(t, []float64{0.45, 0.45}, c.Asks())
	assert.Equal(t, []string{"a", "b"}, c.TokenIDs())

	c.Legs[1].BestAsk = 0
	assert.False(t, c.Priced())

	assert.False(t, Candidate{}.Priced(), "no legs means nothing priced")
}
