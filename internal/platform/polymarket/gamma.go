package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"polyarb/internal/domain"
)

// FetchMarkets pages through open markets on the Gamma API up to the
// filter's MaxMarkets cap. Markets the API returns without CLOB data
// are skipped, they cannot be priced.
func (c *Client) FetchMarkets(ctx context.Context, filter domain.MarketFilter) ([]domain.Market, error) {
	maxMarkets := filter.MaxMarkets
	if maxMarkets <= 0 {
		maxMarkets = 100
	}

	var markets []domain.Market
	for offset := 0; offset < maxMarkets; {
		batch, err := c.fetchMarketPage(ctx, c.cfg.PageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		offset += len(batch)

		for i := range batch {
			m, ok := batch[i].ToDomain()
			if !ok {
				c.logger.Debug("skipping market without CLOB data", slog.String("market_id", batch[i].ID))
				continue
			}
			markets = append(markets, m)
		}
	}

	if len(markets) > maxMarkets {
		markets = markets[:maxMarkets]
	}
	return markets, nil
}

func (c *Client) fetchMarketPage(ctx context.Context, limit, offset int) ([]APIMarket, error) {
	params := url.Values{}
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page []APIMarket
	if err := c.getJSON(ctx, c.cfg.GammaURL+"/markets", params, &page); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: fetch markets offset=%d: %w", offset, err)
	}
	return page, nil
}
