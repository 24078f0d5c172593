package worker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces outbound calls per key: a URL host for link probes,
// a checker name for model providers. Keys are independent.
type Limiter struct {
	mu    sync.RWMutex
	keys  map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

// NewLimiter creates a keyed limiter; requestsPerSecond <= 0 disables limiting
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		keys:  make(map[string]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

// Wait blocks until a call for key is allowed or ctx ends
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// Allow reports whether a call for key may happen now, consuming a token if so
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// WaitURL waits on the limiter of rawURL's host. A positive crawl delay slows
// that host to at most one call per delay from then on.
func (l *Limiter) WaitURL(ctx context.Context, rawURL string, crawlDelay time.Duration) error {
	host, err := HostKey(rawURL)
	if err != nil {
		return err
	}
	if crawlDelay > 0 {
		l.slowDown(host, rate.Every(crawlDelay))
	}
	return l.Wait(ctx, host)
}

// SetRate overrides the limit for a single key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.burst
	}
	l.mu.Lock()
	l.keys[key] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	l.mu.Unlock()
}

// slowDown lowers a key's rate to limit unless it is already slower
func (l *Limiter) slowDown(key string, limit rate.Limit) {
	lim := l.get(key)
	if lim.Limit() > limit {
		lim.SetLimit(limit)
		lim.SetBurst(1)
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.keys[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.keys[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.keys[key] = lim
	return lim
}

// HostKey normalizes a URL's host: lower case, default ports dropped
func HostKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}

	host := strings.ToLower(u.Host)
	if h, port, err := net.SplitHostPort(host); err == nil {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			host = h
		}
	}
	return host, nil
}
