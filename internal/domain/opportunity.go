package domain

import "time"

// ProfitGuarantee holds the information-theoretic lower bound computed for a
// set of ask prices: the KL divergence D from the uniform target to the raw
// ask vector, the Frank-Wolfe gap g, and the Proposition 4.1 bound
// max(0, D-g) net of fees. Recomputed fresh for every evaluation; never
// cached across price changes.
type ProfitGuarantee struct {
	KLDivergence     float64 `json:"kl_divergence"`
	FWGap            float64 `json:"fw_gap"`
	GuaranteedProfit float64 `json:"guaranteed_profit"`
	ExtractionPct    float64 `json:"extraction_pct"`
	// AlphaSatisfied is the standalone stopping test g <= (1-alpha)*D: the
	// uniform target already captures an alpha fraction of the divergence.
	AlphaSatisfied bool `json:"alpha_satisfied"`
	// ShouldTrade is the combined search-policy decision: divergence clears
	// the minimum edge and the alpha target has not yet been met.
	ShouldTrade bool `json:"should_trade"`
}

// ArbitrageOpportunity is a detected mispricing where buying one share of
// every outcome in a market or NegRisk bucket costs less than the $1.00
// payout. Produced only when the fee-adjusted net profit clears the
// configured minimum.
type ArbitrageOpportunity struct {
	ID           string          `json:"id"`
	Key          string          `json:"key"` // market ID for binary, bucket ID for negrisk
	Kind         MarketKind      `json:"kind"`
	Question     string          `json:"question"`
	OutcomeCount int             `json:"outcome_count"`
	Asks         []float64       `json:"asks"`
	TotalCost    float64         `json:"total_cost"`
	GrossProfit  float64         `json:"gross_profit"`
	NetProfit    float64         `json:"net_profit"`
	ROIPct       float64         `json:"roi_pct"`
	Guarantee    ProfitGuarantee `json:"guarantee"`
	DetectedAt   time.Time       `json:"detected_at"`
}
