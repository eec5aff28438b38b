package providers

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ResilienceConfig bounds one model invocation.
type ResilienceConfig struct {
	// Attempts is the total number of tries. Values below 2 disable retry.
	Attempts   int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultResilienceConfig returns a single attempt with a 30s timeout.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Attempts:   1,
		RetryDelay: time.Second,
		Timeout:    30 * time.Second,
	}
}

// Resilient wraps a Generator with a per-call timeout and optional retry.
type Resilient struct {
	inner Generator
	cfg   ResilienceConfig
}

// NewResilient wraps inner. Zero fields in cfg take their defaults.
func NewResilient(inner Generator, cfg ResilienceConfig) *Resilient {
	def := DefaultResilienceConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Resilient{inner: inner, cfg: cfg}
}

// Name delegates to the wrapped generator.
func (p *Resilient) Name() string {
	return p.inner.Name()
}

// Generate runs the wrapped call under the timeout. Authentication errors
// end the retry loop immediately.
func (p *Resilient) Generate(ctx context.Context, req GenerateRequest) (Completion, error) {
	t := timeout.New[Completion](timeout.Config{
		DefaultTimeout: p.cfg.Timeout,
	})

	return t.Execute(ctx, p.cfg.Timeout, func(ctx context.Context) (Completion, error) {
		if p.cfg.Attempts < 2 {
			return p.inner.Generate(ctx, req)
		}

		r := retry.New[Completion](retry.Config{
			MaxAttempts:   p.cfg.Attempts,
			InitialDelay:  p.cfg.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
		})

		var authErr error
		res, err := r.Do(ctx, func(ctx context.Context) (Completion, error) {
			c, err := p.inner.Generate(ctx, req)
			if IsAuthError(err) {
				authErr = err
				return Completion{}, nil
			}
			return c, err
		})
		if authErr != nil {
			return Completion{}, authErr
		}
		return res, err
	})
}
