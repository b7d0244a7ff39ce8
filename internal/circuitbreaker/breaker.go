package circuitbreaker

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrOpen is returned by callers when the breaker refuses a request.
var ErrOpen = errors.New("circuitbreaker: open")

// Breaker tracks consecutive failures per key (one key per downstream
// host) and blocks requests while a key is open. After the open interval
// one probe request is let through; its outcome closes or re-opens.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	openFor   time.Duration
	now       func() time.Time
	entries   map[string]*entry
}

type entry struct {
	failures int
	open     bool
	openedAt time.Time
	probing  bool
}

func New(threshold int, openFor time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		openFor:   openFor,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

// Allow reports whether a request to key may proceed.
func (b *Breaker) Allow(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok || !e.open {
		return true
	}
	if b.now().Sub(e.openedAt) < b.openFor {
		return false
	}
	if e.probing {
		return false
	}
	e.probing = true
	log.Printf("circuitbreaker: half-open probe for %s", key)
	return true
}

// Success closes the key and clears its failure count.
func (b *Breaker) Success(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		return
	}
	if e.open {
		log.Printf("circuitbreaker: closed for %s", key)
	}
	delete(b.entries, key)
}

// Failure records a failed request, opening the key at the threshold.
func (b *Breaker) Failure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		e = &entry{}
		b.entries[key] = e
	}
	e.failures++
	e.probing = false
	if e.open {
		e.openedAt = b.now()
		return
	}
	if e.failures >= b.threshold {
		e.open = true
		e.openedAt = b.now()
		log.Printf("circuitbreaker: opened for %s after %d failures", key, e.failures)
	}
}
