package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

const (
	robotsTTL = time.Hour

	// An unreachable robots.txt is retried sooner than a fetched one
	robotsFailureTTL = 5 * time.Minute
)

// robotsNow is the clock used for policy expiry (injectable for tests)
var robotsNow = time.Now

type robotsPolicy struct {
	data    *robotstxt.RobotsData // nil when robots.txt could not be fetched
	expires time.Time
}

// RobotsChecker answers robots.txt questions for cited URLs. Policies are
// cached per origin and concurrent lookups for one origin share a fetch.
type RobotsChecker struct {
	mu         sync.Mutex
	policies   map[string]robotsPolicy
	inflight   singleflight.Group
	httpClient *http.Client
	userAgent  string
	agentToken string
}

// NewRobotsChecker creates a checker; proxy may be nil
func NewRobotsChecker(userAgent string, timeout time.Duration, proxy func(*http.Request) (*url.URL, error)) *RobotsChecker {
	client := &http.Client{Timeout: timeout}
	if proxy != nil {
		client.Transport = &http.Transport{Proxy: proxy}
	}
	return &RobotsChecker{
		policies:   make(map[string]robotsPolicy),
		httpClient: client,
		userAgent:  userAgent,
		agentToken: NormalizeUserAgent(userAgent),
	}
}

// CanFetch reports whether rawURL may be requested and the crawl delay the
// host asks for. A robots.txt that cannot be fetched allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}
	if target.Host == "" {
		return false, 0, fmt.Errorf("parse URL: no host in %q", rawURL)
	}

	data := r.lookup(ctx, target.Scheme+"://"+target.Host)
	if data == nil {
		return true, 0, nil
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	var delay time.Duration
	if group := data.FindGroup(r.agentToken); group != nil {
		delay = group.CrawlDelay
	}
	return data.TestAgent(path, r.agentToken), delay, nil
}

func (r *RobotsChecker) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	p, ok := r.policies[origin]
	r.mu.Unlock()
	if ok && robotsNow().Before(p.expires) {
		return p.data
	}

	v, _, _ := r.inflight.Do(origin, func() (any, error) {
		data, err := r.fetch(ctx, origin)
		if err != nil && ctx.Err() != nil {
			return data, nil
		}
		ttl := robotsTTL
		if err != nil {
			ttl = robotsFailureTTL
		}
		r.mu.Lock()
		r.policies[origin] = robotsPolicy{data: data, expires: robotsNow().Add(ttl)}
		r.mu.Unlock()
		return data, nil
	})
	return v.(*robotstxt.RobotsData)
}

func (r *RobotsChecker) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return robotstxt.FromResponse(resp)
}

// NormalizeUserAgent reduces "Veritas/0.1 (+url)" to the product token "Veritas"
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
