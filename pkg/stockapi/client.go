package stockapi

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client reads the stock list from a single JSON endpoint.
type Client struct {
	endpoint string
	fetcher  *Fetcher
}

func NewClient(endpoint string, fetcher *Fetcher) *Client {
	return &Client{
		endpoint: endpoint,
		fetcher:  fetcher,
	}
}

// Endpoint returns the URL the client reads from.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchStocks GETs the endpoint and decodes the JSON array of stocks.
func (c *Client) FetchStocks(ctx context.Context) ([]StockDTO, error) {
	body, err := c.fetcher.Fetch(ctx, c.endpoint)
	if err != nil {
		return nil, err
	}

	var stocks []StockDTO
	if err := json.Unmarshal(body, &stocks); err != nil {
		return nil, fmt.Errorf("decode stocks: %w", err)
	}
	return stocks, nil
}
