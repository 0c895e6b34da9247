// Package ratelimit throttles API clients with per-endpoint token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info describes the limit applied to one request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter keeps one token bucket per client and endpoint rule.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	seen    map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter. A nil config gets DefaultConfig.
// A background sweep drops idle buckets when CleanupInterval is set.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*rate.Limiter),
		seen:    make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.sweepLoop(config.CleanupInterval)
	}
	return l
}

// Allow checks and records one request from clientID to method path.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	rule := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if rule == nil {
		rule = &EndpointConfig{Pattern: "*", Method: method, Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if rule.Limit <= 0 || rule.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	b := l.bucketFor(clientID+" "+rule.Method+" "+rule.Pattern, rule, now)
	ok := b.AllowN(now, 1)
	tokens := max(b.TokensAt(now), 0)

	info := Info{Allowed: ok, Limit: rule.Limit, Remaining: int(tokens), ResetTime: fullAt(b, tokens, now)}
	if !ok {
		r := b.ReserveN(now, 1)
		info.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}
	return ok, info
}

func (l *Limiter) bucketFor(key string, rule *EndpointConfig, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seen[key] = now
	if b, ok := l.buckets[key]; ok {
		return b
	}
	burst := rule.Burst
	if burst <= 0 {
		burst = rule.Limit
	}
	b := rate.NewLimiter(rate.Every(rule.Window/time.Duration(rule.Limit)), burst)
	l.buckets[key] = b
	return b
}

// fullAt is when b will hold its whole burst again.
func fullAt(b *rate.Limiter, tokens float64, now time.Time) time.Time {
	missing := float64(b.Burst()) - tokens
	if missing <= 0 || b.Limit() <= 0 {
		return now
	}
	return now.Add(time.Duration(missing / float64(b.Limit()) * float64(time.Second)))
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep(l.now().Add(-time.Hour))
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets not used since cutoff.
func (l *Limiter) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, at := range l.seen {
		if at.Before(cutoff) {
			delete(l.seen, key)
			delete(l.buckets, key)
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
