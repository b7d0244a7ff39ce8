package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SequenceSender uploads the draw reveal order to the overlay endpoint as
// a JSON POST. The endpoint acks with {"ok":true}.
type SequenceSender struct {
	url    string
	client *http.Client
}

func NewSequenceSender(url string, timeout time.Duration) *SequenceSender {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &SequenceSender{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *SequenceSender) SendSequence(ctx context.Context, seats []string) error {
	if s.url == "" {
		return fmt.Errorf("sequence: no endpoint configured")
	}
	body, err := json.Marshal(map[string]any{"sequence": seats})
	if err != nil {
		return fmt.Errorf("sequence: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sequence: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sequence: endpoint returned %d", resp.StatusCode)
	}

	var ack struct {
		OK bool `json:"ok"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("sequence: read ack: %w", err)
	}
	if err := json.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("sequence: decode ack: %w", err)
	}
	if !ack.OK {
		return fmt.Errorf("sequence: endpoint rejected upload")
	}
	return nil
}
