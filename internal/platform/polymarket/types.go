package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"polyarb/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma
// API responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(s == "true" || s == "True" || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number, a numeric string, or null,
// covering the Gamma API's mixed encodings for volume and liquidity.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// unwrapStringEncoded returns the inner JSON when the API double
// encodes an array as a string, e.g. "[\"Yes\",\"No\"]".
func unwrapStringEncoded(data []byte) ([]byte, error) {
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, err
		}
		return []byte(inner), nil
	}
	return data, nil
}

// jsonStringSlice unmarshals from a JSON array of strings, possibly
// double encoded inside a string.
type jsonStringSlice []string

func (s *jsonStringSlice) UnmarshalJSON(data []byte) error {
	raw, err := unwrapStringEncoded(data)
	if err != nil {
		return err
	}
	var vals []string
	if err := json.Unmarshal(raw, &vals); err != nil {
		return err
	}
	*s = vals
	return nil
}

// jsonFloatSlice unmarshals from a JSON array of numbers or numeric
// strings, possibly double encoded inside a string.
type jsonFloatSlice []float64

func (s *jsonFloatSlice) UnmarshalJSON(data []byte) error {
	raw, err := unwrapStringEncoded(data)
	if err != nil {
		return err
	}
	var vals []flexFloat
	if err := json.Unmarshal(raw, &vals); err != nil {
		return err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = float64(v)
	}
	*s = out
	return nil
}

// APIMarket is a market row from the Gamma API. The array-valued
// fields arrive JSON encoded inside strings.
type APIMarket struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Slug          string          `json:"slug"`
	Active        *flexBool       `json:"active"` // missing means active
	Closed        flexBool        `json:"closed"`
	Outcomes      jsonStringSlice `json:"outcomes"`
	ClobTokenIDs  jsonStringSlice `json:"clobTokenIds"`
	OutcomePrices jsonFloatSlice  `json:"outcomePrices"`
	Liquidity     flexFloat       `json:"liquidity"`
	Volume        flexFloat       `json:"volume"`
	NegRisk       flexBool        `json:"negRisk"`
	NegRiskID     string          `json:"negRiskMarketID"`
}

// ToDomain converts the row to a domain.Market. ok is false for rows
// that cannot be priced: no CLOB token identifiers, no embedded
// prices, or fewer than two outcomes.
func (m *APIMarket) ToDomain() (domain.Market, bool) {
	if len(m.ClobTokenIDs) < 2 || len(m.OutcomePrices) == 0 || len(m.Outcomes) == 0 {
		return domain.Market{}, false
	}

	kind := domain.KindBinary
	if bool(m.NegRisk) {
		kind = domain.KindNegRisk
	}
	active := true
	if m.Active != nil {
		active = bool(*m.Active)
	}

	return domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		Kind:      kind,
		Outcomes:  []string(m.Outcomes),
		TokenIDs:  []string(m.ClobTokenIDs),
		Midpoints: []float64(m.OutcomePrices),
		Liquidity: float64(m.Liquidity),
		Volume:    float64(m.Volume),
		Active:    active && !bool(m.Closed),
		NegRiskID: m.NegRiskID,
	}, true
}

// APIBookLevel is one price level in a CLOB book response.
type APIBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// APIOrderBook is a book response from the CLOB API, either from the
// single book endpoint or one element of the batch endpoint.
type APIOrderBook struct {
	AssetID   string         `json:"asset_id"`
	Market    string         `json:"market"`
	Bids      []APIBookLevel `json:"bids"`
	Asks      []APIBookLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
	Hash      string         `json:"hash"`
}

// ToDomain converts the book to domain form, deriving best bid, best
// ask and midpoint from the levels. Either side may be empty for an
// illiquid token.
func (b *APIOrderBook) ToDomain() domain.OrderBook {
	ob := domain.OrderBook{TokenID: b.AssetID}

	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		ob.Bids = append(ob.Bids, domain.BookLevel{Price: p, Size: s})
		if p > ob.BestBid {
			ob.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		ob.Asks = append(ob.Asks, domain.BookLevel{Price: p, Size: s})
		if p > 0 && (ob.BestAsk == 0 || p < ob.BestAsk) {
			ob.BestAsk = p
		}
	}
	if ob.BestBid > 0 && ob.BestAsk > 0 {
		ob.MidPrice = (ob.BestBid + ob.BestAsk) / 2
	}
	ob.Timestamp = parseBookTime(b.Timestamp)
	return ob
}

// parseBookTime handles the CLOB's unix millisecond strings and falls
// back to RFC3339, then to the current time.
func parseBookTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Now().UTC()
}
