package clock

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// staleAfter: a replay timecode older than this is no longer trusted and
// Now falls back to the wall clock.
const staleAfter = 3 * time.Second

// quantStep matches the timeline grid so clock and event times compare on
// the same lattice.
const quantStep = 0.2

// Source polls the replay system's XML state for its timecode and serves
// it as seconds-of-day. When the replay feed is absent or stale, Now
// degrades to local wall-clock seconds-of-day so the show keeps running.
type Source struct {
	url      string
	client   *http.Client
	interval time.Duration
	wall     func() time.Time

	mu       sync.Mutex
	lastSec  float64
	lastSeen time.Time
	everSeen bool
}

func NewSource(addr string, interval time.Duration) *Source {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	url := ""
	if addr != "" {
		url = fmt.Sprintf("http://%s/v1/dictionary?keys=replay", addr)
	}
	return &Source{
		url:      url,
		client:   &http.Client{Timeout: 2 * time.Second},
		interval: interval,
		wall:     time.Now,
	}
}

// Now returns the current day-clock seconds. live is true only while a
// fresh replay timecode backs the value.
func (s *Source) Now() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.everSeen && s.wall().Sub(s.lastSeen) < staleAfter {
		return s.lastSec, true
	}
	return wallDaySeconds(s.wall()), false
}

// Live reports whether the replay feed currently backs the clock.
func (s *Source) Live() bool {
	_, live := s.Now()
	return live
}

// Run polls the replay endpoint until ctx is canceled. With no endpoint
// configured it returns immediately and Now serves wall-clock time.
func (s *Source) Run(ctx context.Context) {
	if s.url == "" {
		log.Printf("clock: no replay endpoint, using wall clock")
		<-ctx.Done()
		return
	}
	log.Printf("clock: polling %s every %s", s.url, s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Source) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return
	}
	tc, ok := extractTimecode(data)
	if !ok {
		return
	}
	sec, err := ParseTimecode(tc)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.lastSec = sec
	s.lastSeen = s.wall()
	s.everSeen = true
	s.mu.Unlock()
}

// extractTimecode scans the XML token stream for a timecode element inside
// a replay element, tolerating whatever wrapper document the replay system
// serves.
func extractTimecode(data []byte) (string, bool) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	inReplay := 0
	inTimecode := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if name == "replay" {
				inReplay++
			} else if name == "timecode" && inReplay > 0 {
				inTimecode = true
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			if name == "replay" && inReplay > 0 {
				inReplay--
			} else if name == "timecode" {
				inTimecode = false
			}
		case xml.CharData:
			if inTimecode {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s, true
				}
			}
		}
	}
}

// ParseTimecode converts a replay timecode ("2026-08-28T14:03:27.500Z" or
// bare "14:03:27;12") to quantized seconds-of-day.
func ParseTimecode(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "Z")
	s = strings.ReplaceAll(s, ";", ":")

	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return 0, fmt.Errorf("clock: bad timecode %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("clock: bad timecode %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("clock: bad timecode %q", raw)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("clock: bad timecode %q", raw)
	}
	total := float64(h*3600+m*60) + sec
	return quantize(total), nil
}

// quantize snaps to the grid rounding half-steps up, in integer
// milliseconds so x.1 midpoints do not land below the half step.
func quantize(sec float64) float64 {
	const stepMs = 200
	ms := int64(math.Round(sec*1000)) + stepMs/2
	ms -= ((ms % stepMs) + stepMs) % stepMs
	return float64(ms) / 1000
}

func wallDaySeconds(t time.Time) float64 {
	h, m, s := t.Clock()
	frac := float64(t.Nanosecond()) / 1e9
	return quantize(float64(h*3600+m*60+s) + frac)
}
