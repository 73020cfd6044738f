// Package ingest holds the per-platform ingesters that capture raw
// leads, plus the pacing that keeps them under platform rate limits.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

// Pacer throttles one ingestion stream. Wait blocks until the next item
// may be processed or ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SleepPacer spaces items 60/rpm seconds apart. It is per-process; use
// RedisPacer when concurrent ingestion jobs must share a budget.
type SleepPacer struct {
	delay time.Duration
	first bool
}

func NewSleepPacer(ratePerMinute int) *SleepPacer {
	if ratePerMinute < 1 {
		ratePerMinute = 1
	}
	return &SleepPacer{delay: time.Minute / time.Duration(ratePerMinute), first: true}
}

func (p *SleepPacer) Wait(ctx context.Context) error {
	if p.first {
		p.first = false
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay):
		return nil
	}
}

// tokenScript atomically takes one token from the current minute bucket
// when the limit allows it.
var tokenScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local current = tonumber(redis.call("GET", key) or "0")
	if current + 1 > limit then
		return 0
	end

	local newVal = redis.call("INCR", key)
	if newVal == 1 then
		redis.call("EXPIRE", key, ttl)
	end
	return 1
`)

// RedisPacer is a shared per-minute token bucket. All workers ingesting
// the same platform draw from one budget.
type RedisPacer struct {
	client        *redis.Client
	platform      string
	ratePerMinute int
	poll          time.Duration
}

func NewRedisPacer(client *redis.Client, platform string, ratePerMinute int) *RedisPacer {
	if ratePerMinute < 1 {
		ratePerMinute = 1
	}
	return &RedisPacer{
		client:        client,
		platform:      platform,
		ratePerMinute: ratePerMinute,
		poll:          100 * time.Millisecond,
	}
}

func (p *RedisPacer) Wait(ctx context.Context) error {
	for {
		key := fmt.Sprintf("ratelimit:ingest:%s:%d", p.platform, time.Now().Unix()/60)
		ok, err := tokenScript.Run(ctx, p.client, []string{key}, p.ratePerMinute, 120).Int()
		if err != nil {
			return fmt.Errorf("ingest pacer: %w", err)
		}
		if ok == 1 {
			return nil
		}
		logger.Debug("ingest pacer throttled", "platform", p.platform)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.poll):
		}
	}
}
