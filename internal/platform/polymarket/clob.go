package polymarket

import (
	"context"
	"fmt"
	"net/url"

	"polyarb/internal/domain"
)

// FetchMidpoint returns the midpoint price for a token. A missing or
// zero midpoint reports ErrPriceUnavailable rather than a zero price.
func (c *Client) FetchMidpoint(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var resp struct {
		Mid flexFloat `json:"mid"`
	}
	if err := c.getJSON(ctx, c.cfg.ClobURL+"/midpoint", params, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: fetch midpoint %s: %w", tokenID, err)
	}
	if resp.Mid <= 0 {
		return 0, fmt.Errorf("polymarket/clob: midpoint %s: %w", tokenID, domain.ErrPriceUnavailable)
	}
	return float64(resp.Mid), nil
}

// FetchBestAsk returns the price to buy one share of the token, its
// best ask. A missing or zero quote reports ErrPriceUnavailable.
func (c *Client) FetchBestAsk(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)
	params.Set("side", "buy")

	var resp struct {
		Price flexFloat `json:"price"`
	}
	if err := c.getJSON(ctx, c.cfg.ClobURL+"/price", params, &resp); err != nil {
		return 0, fmt.Errorf("polymarket/clob: fetch price %s: %w", tokenID, err)
	}
	if resp.Price <= 0 {
		return 0, fmt.Errorf("polymarket/clob: price %s: %w", tokenID, domain.ErrPriceUnavailable)
	}
	return float64(resp.Price), nil
}

// FetchOrderBook returns the full order book for a token. An empty
// book is a valid response, the caller decides what an empty side
// means.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (*domain.OrderBook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var book APIOrderBook
	if err := c.getJSON(ctx, c.cfg.ClobURL+"/book", params, &book); err != nil {
		return nil, fmt.Errorf("polymarket/clob: fetch book %s: %w", tokenID, err)
	}

	ob := book.ToDomain()
	if ob.TokenID == "" {
		ob.TokenID = tokenID
	}
	return &ob, nil
}

// FetchOrderBooks returns order books for a set of tokens in one
// round trip via the batch books endpoint. The result holds one entry
// per requested token in request order; tokens missing from the
// response come back nil.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) ([]*domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}

	type bookParam struct {
		TokenID string `json:"token_id"`
	}
	reqBody := make([]bookParam, len(tokenIDs))
	for i, id := range tokenIDs {
		reqBody[i] = bookParam{TokenID: id}
	}

	var books []APIOrderBook
	if err := c.postJSON(ctx, c.cfg.ClobURL+"/books", reqBody, &books); err != nil {
		return nil, fmt.Errorf("polymarket/clob: fetch books: %w", err)
	}

	byToken := make(map[string]*domain.OrderBook, len(books))
	for i := range books {
		ob := books[i].ToDomain()
		byToken[ob.TokenID] = &ob
	}

	out := make([]*domain.OrderBook, len(tokenIDs))
	for i, id := range tokenIDs {
		out[i] = byToken[id]
	}
	return out, nil
}
