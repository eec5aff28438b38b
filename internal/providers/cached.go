package providers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/dshills/csr/internal/cache"
)

// Cached serves repeated prompts from a reply cache.
type Cached struct {
	inner  Generator
	store  cache.Store
	model  string
	logger *zap.Logger
}

// NewCached wraps inner with store. A nil store returns inner unchanged.
func NewCached(inner Generator, store cache.Store, model string, logger *zap.Logger) Generator {
	if store == nil {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, store: store, model: model, logger: logger}
}

// Name delegates to the wrapped generator.
func (c *Cached) Name() string {
	return c.inner.Name()
}

// Generate returns the cached completion for identical prompts, or calls the
// wrapped generator and stores its reply. Cache errors never fail a call.
func (c *Cached) Generate(ctx context.Context, req GenerateRequest) (Completion, error) {
	key := cache.BuildKey(c.inner.Name(), c.model, req.System, req.User)

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", zap.Error(err))
	} else if ok {
		var comp Completion
		if err := json.Unmarshal([]byte(raw), &comp); err == nil {
			c.logger.Debug("cache hit", zap.String("key", key[:12]))
			// Cached replies consumed no tokens on this call.
			comp.Usage = Usage{}
			return comp, nil
		}
	}

	comp, err := c.inner.Generate(ctx, req)
	if err != nil {
		return comp, err
	}

	data, err := json.Marshal(comp)
	if err == nil {
		if err := c.store.Put(ctx, key, string(data)); err != nil {
			c.logger.Warn("cache write failed", zap.Error(err))
		}
	}
	return comp, nil
}
