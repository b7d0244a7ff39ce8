package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// bucketWindow groups fired-trigger counters into five-minute buckets so
// the production crew can chart cue density across the show.
const bucketWindow = 5 * time.Minute

// retention keeps two show days of counters around.
const retention = 48 * time.Hour

// RedisSink counts fired triggers per code and time bucket. Best-effort:
// failures are logged, never surfaced to the dispatch path.
type RedisSink struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisSink(client redis.Cmdable) *RedisSink {
	return &RedisSink{client: client, now: time.Now}
}

// TriggerFired increments the counters for one dispatched trigger.
func (s *RedisSink) TriggerFired(ctx context.Context, code int, ok bool) {
	bucket := s.now().UTC().Truncate(bucketWindow).Format("200601021504")
	outcome := "ok"
	if !ok {
		outcome = "fail"
	}

	pipe := s.client.Pipeline()
	keys := []string{
		fmt.Sprintf("triggers:%s:code:%d:%s", bucket, code, outcome),
		fmt.Sprintf("triggers:%s:total:%s", bucket, outcome),
	}
	for _, key := range keys {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: counter update failed: %v", err)
	}
}

// CodeCounts reads back the per-code counters for one bucket, newest
// first. Used by operators over redis-cli mostly; exposed for tests.
func (s *RedisSink) CodeCounts(ctx context.Context, bucket string, codes []int) (map[int]int64, error) {
	out := make(map[int]int64, len(codes))
	for _, code := range codes {
		key := fmt.Sprintf("triggers:%s:code:%d:ok", bucket, code)
		n, err := s.client.Get(ctx, key).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("analytics: read %s: %w", key, err)
		}
		out[code] = n
	}
	return out, nil
}
