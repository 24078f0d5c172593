package verify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/model"
)

// Cached memoizes verdicts by domain and claim text. Failed checks are never stored.
type Cached struct {
	next   Checker
	cache  cache.Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewCached wraps next with a verdict cache; a nil cache returns next unchanged
func NewCached(next Checker, c cache.Cache, ttl time.Duration, logger logging.Logger) Checker {
	if c == nil {
		return next
	}
	return &Cached{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logging.Named(logger, "verdict-cache"),
	}
}

// Check serves the verdict from cache or asks the wrapped checker
func (c *Cached) Check(ctx context.Context, req model.CheckRequest) (model.Verdict, error) {
	key := verdictKey(req)

	if data, ok := c.cache.Get(key); ok {
		var verdict model.Verdict
		if err := json.Unmarshal(data, &verdict); err == nil && verdict.Valid() {
			return verdict, nil
		}
		_ = c.cache.Delete(key)
	}

	verdict, err := c.next.Check(ctx, req)
	if err != nil || !verdict.Valid() {
		return verdict, err
	}

	data, err := json.Marshal(verdict)
	if err == nil {
		err = c.cache.Set(key, data, c.ttl)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache verdict")
	}
	return verdict, nil
}

func verdictKey(req model.CheckRequest) string {
	return cache.Key("verdict", string(req.Domain.ID), strings.ToLower(strings.TrimSpace(req.Claim)))
}
