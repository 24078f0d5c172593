package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/llm"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/observer"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/ppiankov/veritas/internal/verify"
	"github.com/ppiankov/veritas/internal/worker"
)

// pingTimeout bounds the startup reachability check of the model provider
const pingTimeout = 10 * time.Second

// app is everything a command needs to run the pipeline
type app struct {
	cfg      *model.Config
	logger   logging.Logger
	manager  *pipeline.Manager
	metrics  *metrics.Metrics
	observer *observer.Log
}

// appOptions are per-command overrides of the loaded config
type appOptions struct {
	auditFile string // overrides observer.file
	metrics   bool
}

// newApp loads the config and wires the checker chain, audit log and pipeline
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.FromConfig(cfg.Logging))

	auditFile := cfg.Observer.File
	if opts.auditFile != "" {
		auditFile = opts.auditFile
	}
	audit := observer.New(observer.WithLogger(logger))
	if auditFile != "" {
		if audit, err = observer.Open(auditFile, observer.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	checker, err := buildChecker(ctx, cfg, logger)
	if err != nil {
		_ = audit.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, observer: audit}
	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(audit),
		pipeline.WithChecker(checker,
			verify.WithConcurrency(cfg.Verifier.Concurrency),
			verify.WithLogger(logger),
		),
	}
	if opts.metrics {
		a.metrics = metrics.New()
		pipelineOpts = append(pipelineOpts, pipeline.WithMetrics(a.metrics))
	}

	if a.manager, err = pipeline.NewManager(cfg.Pipeline, pipelineOpts...); err != nil {
		_ = audit.Close()
		return nil, err
	}
	return a, nil
}

// Close flushes the audit log
func (a *app) Close() error {
	return a.observer.Close()
}

// buildChecker assembles rules, then cited-link checks, then the model provider.
// Network checkers are bounded by the per-check timeout and share the verdict cache.
func buildChecker(ctx context.Context, cfg *model.Config, logger logging.Logger) (verify.Checker, error) {
	rules, err := verify.LoadRules(cfg.Verifier.RulesFile)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	var remote []verify.Checker
	if cfg.Verifier.Links {
		remote = append(remote, verify.NewLinkChecker(cfg.Links, cfg.HTTP, &cfg.Authority, limiter))
	}

	llmChecker, err := buildLLMChecker(ctx, cfg.LLM, limiter, logger)
	if err != nil {
		return nil, err
	}
	if llmChecker != nil {
		remote = append(remote, llmChecker)
	}

	if len(remote) == 0 {
		return rules, nil
	}

	var tail verify.Checker = verify.NewChain(remote...)
	tail = verify.WithTimeout(tail, cfg.Verifier.CheckTimeout)
	tail = verify.NewCached(tail, cache.New(cfg.Cache), cfg.Cache.MemoryTTL, logger)

	return verify.NewChain(rules, tail), nil
}

// buildLLMChecker returns nil when no provider is configured or the provider is unreachable
func buildLLMChecker(ctx context.Context, cfg model.LLMConfig, limiter *worker.Limiter, logger logging.Logger) (verify.Checker, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	// Fall back to the conventional provider environment variables
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := provider.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("provider", provider.Name()).Msg("llm provider unreachable, model-backed checks disabled")
		return nil, nil
	}

	logger.Debug().Str("provider", provider.Name()).Str("model", cfg.Model).Msg("llm checker enabled")
	return llm.NewChecker(provider, limiter), nil
}

// writeOutput writes to path, or to stdout when path is empty or "-"
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()
	return write(f)
}
