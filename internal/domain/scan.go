package domain

import "time"

// ScanResult is the output of one scan cycle: ranked opportunities plus
// cycle metadata. Each cycle builds a fresh result and hands it off whole;
// the next cycle replaces it.
type ScanResult struct {
	Opportunities   []ArbitrageOpportunity `json:"opportunities"`
	MarketsScanned  int                    `json:"markets_scanned"`
	CandidatesFound int                    `json:"candidates_found"`
	DeepScanned     int                    `json:"deep_scanned"`
	Errors          []string               `json:"errors,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	Elapsed         time.Duration          `json:"elapsed_ns"`
}

// TotalProfit sums the net profit of every opportunity in the result.
func (r *ScanResult) TotalProfit() float64 {
	var total float64
	for _, opp := range r.Opportunities {
		total += opp.NetProfit
	}
	return total
}

// Best returns the opportunity with the highest net profit, or nil when the
// result is empty.
func (r *ScanResult) Best() *ArbitrageOpportunity {
	if len(r.Opportunities) == 0 {
		return nil
	}
	best := &r.Opportunities[0]
	for i := range r.Opportunities {
		if r.Opportunities[i].NetProfit > best.NetProfit {
			best = &r.Opportunities[i]
		}
	}
	return best
}
