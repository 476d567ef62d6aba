package client

import (
	"context"
	"net/url"
	"strconv"
)

// OrderListOptions narrows an order listing
type OrderListOptions struct {
	Provider string
	Status   string
	Page     int
	PageSize int
}

// ListOrders retrieves a page of normalized orders
func (c *Client) ListOrders(ctx context.Context, opts OrderListOptions) (*OrderPage, error) {
	q := url.Values{}
	if opts.Provider != "" {
		q.Set("provider", opts.Provider)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}

	path := "/api/v1/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page OrderPage
	if err := c.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
