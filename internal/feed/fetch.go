package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodySize caps feed responses; the sheet export stays far below this.
const maxBodySize = 8 << 20

// Client fetches and decodes the remote feed.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the current row set. A response with ok=false is an error.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	if c.url == "" {
		return nil, fmt.Errorf("feed url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("feed read: %w", err)
	}

	payload, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if !payload.OK {
		return nil, fmt.Errorf("feed response ok=false")
	}
	return payload.Records, nil
}
