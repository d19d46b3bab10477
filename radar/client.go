package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/web3guy0/snipebot/types"
)

// Client is a thin wrapper over the Gamma /events endpoint.
type Client struct {
	http *resty.Client
}

// NewClient creates the Gamma API client with retry on 5xx.
func NewClient(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}
}

// SearchEvents queries active events matching the given search term.
// The response body may be a bare JSON array or a {data: [...]} wrapper.
func (c *Client) SearchEvents(ctx context.Context, query string, limit int) ([]types.RawEvent, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit":    fmt.Sprintf("%d", limit),
			"active":   "true",
			"closed":   "false",
			"archived": "false",
			"query":    query,
		}).
		Get("/events")
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("search events: status %d: %s", resp.StatusCode(), resp.String())
	}

	body := resp.Body()

	var events []types.RawEvent
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}

	var wrapper struct {
		Data []types.RawEvent `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("search events: invalid JSON: %w", err)
	}
	return wrapper.Data, nil
}
