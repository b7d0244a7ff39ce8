package dispatcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/garimto81/ggm-timeline/internal/circuitbreaker"
)

// bankSize is the device's button-bank width; codes address buttons as
// page/button pairs.
const bankSize = 32

// DeviceSender fires numbered triggers on the production switcher over its
// HTTP press API.
type DeviceSender struct {
	addr    string
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

func NewDeviceSender(addr string, timeout time.Duration, breaker *circuitbreaker.Breaker) *DeviceSender {
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	return &DeviceSender{
		addr:    addr,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// Fire presses the bank button for code. Codes are 1-based and laid out
// row-major across 32-button pages.
func (d *DeviceSender) Fire(ctx context.Context, code int) error {
	if code <= 0 {
		return fmt.Errorf("device: invalid trigger code %d", code)
	}
	if d.breaker != nil && !d.breaker.Allow(d.addr) {
		return fmt.Errorf("device %s: %w", d.addr, circuitbreaker.ErrOpen)
	}

	page := (code - 1) / bankSize
	btn := (code - 1) % bankSize
	url := fmt.Sprintf("http://%s/press/bank/%d/%d", d.addr, page+1, btn+1)

	err := d.press(ctx, url)
	if d.breaker != nil {
		if err != nil {
			d.breaker.Failure(d.addr)
		} else {
			d.breaker.Success(d.addr)
		}
	}
	return err
}

func (d *DeviceSender) press(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("device: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device: %s returned %d", url, resp.StatusCode)
	}
	return nil
}
