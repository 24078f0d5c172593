package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/veritas/internal/extract"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
)

// Confidence of a dead-citation verdict
const deadLinkConfidence = 0.8

// linkSleepFunc is the sleep between retries (injectable for tests)
var linkSleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LinkChecker checks URLs cited inside a claim. A dead citation marks the claim
// fabricated; reachable citations support it according to their authority tier.
type LinkChecker struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	authority  *AuthorityClassifier
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// linkStatus is the outcome of probing one URL
type linkStatus struct {
	URL        string
	StatusCode int
	Accessible bool
	Dead       bool
	Err        error
}

// NewLinkChecker creates a link checker. A nil limiter disables per-host limiting.
func NewLinkChecker(cfg model.LinkConfig, httpCfg model.HTTPConfig, authority *model.AuthorityConfig, limiter *worker.Limiter) *LinkChecker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}

	proxy := util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	lc := &LinkChecker{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: proxy},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.UserAgent,
		maxRetries: retries,
		authority:  NewAuthorityClassifier(authority),
		limiter:    limiter,
	}
	if cfg.RespectRobots {
		lc.robots = util.NewRobotsChecker(cfg.UserAgent, timeout, proxy)
	}
	return lc
}

// Check probes the URLs cited in the claim. Claims without URLs get no opinion.
func (l *LinkChecker) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	links := extract.CitedLinks(req.Claim)
	if len(links) == 0 {
		return model.Unverified(), nil
	}

	best := TierUnknown
	var failures []error

	for _, link := range links {
		delay := time.Duration(0)
		if l.robots != nil {
			allowed, crawlDelay, err := l.robots.CanFetch(ctx, link)
			if err != nil || !allowed {
				continue
			}
			delay = crawlDelay
		}
		if err := l.limiter.WaitURL(ctx, link, delay); err != nil {
			return model.Verdict{}, fmt.Errorf("rate limit %s: %w", link, err)
		}

		status := l.probeWithRetry(ctx, link)
		switch {
		case status.Dead:
			return model.Verdict{
				IsHallucination: true,
				Confidence:      deadLinkConfidence,
				Source:          "link:dead",
			}, nil
		case status.Accessible:
			tier := l.authority.Classify(link)
			if best == TierUnknown || tier < best {
				best = tier
			}
		case status.Err != nil:
			failures = append(failures, status.Err)
		}
	}

	if best != TierUnknown {
		return model.Verdict{
			IsHallucination: false,
			Confidence:      best.Confidence(),
			Source:          "link:" + best.String(),
		}, nil
	}
	if len(failures) == len(links) {
		return model.Verdict{}, errors.Join(failures...)
	}
	return model.Unverified(), nil
}

// probe sends a HEAD request to a single URL
func (l *LinkChecker) probe(ctx context.Context, link string) linkStatus {
	status := linkStatus{URL: link}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		status.Err = fmt.Errorf("create request: %w", err)
		return status
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		// A host that does not resolve cannot be the real source
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			status.Dead = true
		}
		status.Err = fmt.Errorf("request %s: %w", link, err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		status.Accessible = true
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		status.Dead = true
	default:
		status.Err = fmt.Errorf("request %s: status %d", link, resp.StatusCode)
	}
	return status
}

// probeWithRetry retries transient failures with exponential backoff
func (l *LinkChecker) probeWithRetry(ctx context.Context, link string) linkStatus {
	var status linkStatus
	for attempt := 0; attempt < l.maxRetries; attempt++ {
		status = l.probe(ctx, link)
		if !isRetryable(status) {
			return status
		}
		if attempt < l.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := linkSleepFunc(ctx, backoff); err != nil {
				return status
			}
		}
	}
	return status
}

// isRetryable reports 5xx, 429 and network failures other than unknown hosts
func isRetryable(status linkStatus) bool {
	if status.Dead || status.Accessible {
		return false
	}
	if status.StatusCode >= 500 || status.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return status.StatusCode == 0 && status.Err != nil
}
