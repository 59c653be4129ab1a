package domain

// MarketKind distinguishes the two structural variants of a market.
type MarketKind string

const (
	// KindBinary is a standalone two-outcome market (Yes/No).
	KindBinary MarketKind = "binary"
	// KindNegRisk is a market belonging to a negative-risk bucket whose
	// outcomes are mutually exclusive across all bucket members.
	KindNegRisk MarketKind = "negrisk"
)

// Market is an immutable snapshot of a Polymarket prediction market, fetched
// once per scan cycle and never mutated after construction.
type Market struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Slug      string     `json:"slug"`
	Kind      MarketKind `json:"kind"`
	Outcomes  []string   `json:"outcomes"`
	TokenIDs  []string   `json:"token_ids"`
	Midpoints []float64  `json:"midpoints"` // Gamma outcomePrices, index-aligned with TokenIDs
	Liquidity float64    `json:"liquidity"`
	Volume    float64    `json:"volume"`
	Active    bool       `json:"active"`
	// NegRiskID groups this market with its bucket siblings. Empty for
	// binary markets; negrisk markets without an explicit bucket fall back
	// to a per-market bucket keyed by the market ID.
	NegRiskID string `json:"neg_risk_id,omitempty"`
}

// OutcomeCount returns the number of outcomes in the market.
func (m Market) OutcomeCount() int {
	return len(m.TokenIDs)
}

// BucketKey returns the identifier under which this market's outcomes are
// summed: the NegRisk bucket ID for grouped markets, the market ID otherwise.
func (m Market) BucketKey() string {
	if m.Kind == KindNegRisk && m.NegRiskID != "" {
		return m.NegRiskID
	}
	return m.ID
}

// NegRiskGroup maps a bucket identifier to the markets sharing it. Mutual
// exclusivity of outcomes across the bucket is asserted by the data source,
// not verified here.
type NegRiskGroup struct {
	BucketID string   `json:"bucket_id"`
	Markets  []Market `json:"markets"`
}

// MarketFilter narrows a market discovery request.
type MarketFilter struct {
	// MaxMarkets caps how many markets are fetched across pages. Zero means
	// the source default.
	MaxMarkets int
}
