package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyarb/internal/domain"
)

func TestAPIMarket_ToDomain_ParsesStringEncodedArrays(t *testing.T) {
	raw := `{
		"id": "512329",
		"question": "Will it rain tomorrow?",
		"slug": "will-it-rain",
		"active": "true",
		"closed": false,
		"outcomes": "[\"Yes\",\"No\"]",
		"clobTokenIds": "[\"tok-yes\",\"tok-no\"]",
		"outcomePrices": "[\"0.45\",\"0.52\"]",
		"liquidity": "15000.5",
		"volume": 98765.4,
		"negRisk": true,
		"negRiskMarketID": "evt-123"
	}`

	var am APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &am))

	m, ok := am.ToDomain()
	require.True(t, ok)
	assert.Equal(t, "512329", m.ID)
	assert.Equal(t, "Will it rain tomorrow?", m.Question)
	assert.Equal(t, domain.KindNegRisk, m.Kind)
	assert.Equal(t, []string{"Yes", "No"}, m.Outcomes)
	assert.Equal(t, []string{"tok-yes", "tok-no"}, m.TokenIDs)
	assert.Equal(t, []float64{0.45, 0.52}, m.Midpoints)
	assert.InDelta(t, 15000.5, m.Liquidity, 1e-9)
	assert.InDelta(t, 98765.4, m.Volume, 1e-9)
	assert.True(t, m.Active)
	assert.Equal(t, "evt-123", m.NegRiskID)
	assert.Equal(t, "evt-123", m.BucketKey())
}

func TestAPIMarket_ToDomain_PlainArraysAlsoAccepted(t *testing.T) {
	raw := `{
		"id": "1",
		"question": "q",
		"active": true,
		"outcomes": ["Yes","No"],
		"clobTokenIds": ["a","b"],
		"outcomePrices": [0.5, 0.5]
	}`

	var am APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &am))

	m, ok := am.ToDomain()
	require.True(t, ok)
	assert.Equal(t, domain.KindBinary, m.Kind)
	assert.Equal(t, []float64{0.5, 0.5}, m.Midpoints)
	assert.Equal(t, "1", m.BucketKey(), "binary market buckets by its own id")
}

func TestAPIMarket_ToDomain_SkipsRowsWithoutClobData(t *testing.T) {
	for name, raw := range map[string]string{
		"no token ids":  `{"id":"1","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.5\",\"0.5\"]"}`,
		"single token":  `{"id":"1","outcomes":"[\"Yes\"]","clobTokenIds":"[\"a\"]","outcomePrices":"[\"0.5\"]"}`,
		"no prices":     `{"id":"1","outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"a\",\"b\"]"}`,
		"no outcomes":   `{"id":"1","clobTokenIds":"[\"a\",\"b\"]","outcomePrices":"[\"0.5\",\"0.5\"]"}`,
	} {
		var am APIMarket
		require.NoError(t, json.Unmarshal([]byte(raw), &am), name)
		_, ok := am.ToDomain()
		assert.False(t, ok, name)
	}
}

func TestAPIMarket_ToDomain_MissingActiveDefaultsTrue(t *testing.T) {
	raw := `{"id":"1","outcomes":["Yes","No"],"clobTokenIds":["a","b"],"outcomePrices":[0.4,0.4]}`

	var am APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &am))

	m, ok := am.ToDomain()
	require.True(t, ok)
	assert.True(t, m.Active)
}

func TestAPIMarket_ToDomain_ClosedOverridesActive(t *testing.T) {
	raw := `{"id":"1","active":true,"closed":"true","outcomes":["Yes","No"],"clobTokenIds":["a","b"],"outcomePrices":[0.4,0.4]}`

	var am APIMarket
	require.NoError(t, json.Unmarshal([]byte(raw), &am))

	m, ok := am.ToDomain()
	require.True(t, ok)
	assert.False(t, m.Active)
}

func TestFlexFloat_Encodings(t *testing.T) {
	var probe struct {
		V flexFloat `json:"v"`
	}
	for raw, want := range map[string]float64{
		`{"v": 1.5}`:    1.5,
		`{"v": "2.25"}`: 2.25,
		`{"v": null}`:   0,
		`{"v": ""}`:     0,
	} {
		probe.V = -1
		require.NoError(t, json.Unmarshal([]byte(raw), &probe), raw)
		assert.InDelta(t, want, float64(probe.V), 1e-9, raw)
	}
}

func TestAPIOrderBook_ToDomain_DerivesBestPrices(t *testing.T) {
	raw := `{
		"asset_id": "tok-1",
		"market": "0xabc",
		"bids": [{"price":"0.40","size":"100"},{"price":"0.44","size":"50"},{"price":"0.30","size":"10"}],
		"asks": [{"price":"0.52","size":"80"},{"price":"0.47","size":"20"},{"price":"0","size":"0"}],
		"timestamp": "1724580000000"
	}`

	var ab APIOrderBook
	require.NoError(t, json.Unmarshal([]byte(raw), &ab))

	ob := ab.ToDomain()
	assert.Equal(t, "tok-1", ob.TokenID)
	assert.InDelta(t, 0.44, ob.BestBid, 1e-9)
	assert.InDelta(t, 0.47, ob.BestAsk, 1e-9, "zero-price level must not win the ask scan")
	assert.InDelta(t, 0.455, ob.MidPrice, 1e-9)
	assert.Len(t, ob.Bids, 3)
	assert.Len(t, ob.Asks, 3)
	assert.True(t, ob.HasAsk())
	assert.Equal(t, time.UnixMilli(1724580000000).UTC(), ob.Timestamp)
}

func TestAPIOrderBook_ToDomain_EmptySidesAreValid(t *testing.T) {
	var ab APIOrderBook
	require.NoError(t, json.Unmarshal([]byte(`{"asset_id":"tok-2","bids":[],"asks":[]}`), &ab))

	ob := ab.ToDomain()
	assert.Equal(t, 0.0, ob.BestBid)
	assert.Equal(t, 0.0, ob.BestAsk)
	assert.Equal(t, 0.0, ob.MidPrice)
	assert.False(t, ob.HasAsk())
}
