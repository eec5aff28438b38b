package review

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/providers"
	"github.com/dshills/csr/internal/standards"
)

// Request validation and lookup errors.
var (
	ErrUnknownStandardsSet = errors.New("standards set not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrEmptyContent        = errors.New("content must not be empty")
	ErrContentTooLong      = errors.New("content too long")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field bounds, blank content and, when maxContentLength is
// positive, the content length in characters.
func (r Request) Validate(maxContentLength int) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if isBlank(r.Content) {
		return ErrEmptyContent
	}
	if n := utf8.RuneCountInString(r.Content); maxContentLength > 0 && n > maxContentLength {
		return fmt.Errorf("%w: %d characters exceeds limit of %d", ErrContentTooLong, n, maxContentLength)
	}
	return nil
}

// Engine resolves the standards set for a request and runs the pipeline.
type Engine struct {
	catalog  *standards.Catalog
	pipeline *Pipeline
	gen      providers.Generator
	cfg      config.Config
}

// NewEngine creates an engine. gen may be nil, in which case every model
// call fails with MODEL_FAILURE and Available reports false.
func NewEngine(cfg config.Config, catalog *standards.Catalog, gen providers.Generator, logger *zap.Logger, opts ...PipelineOption) *Engine {
	opts = append([]PipelineOption{WithLogger(logger)}, opts...)
	return &Engine{
		catalog:  catalog,
		pipeline: NewPipeline(cfg, gen, opts...),
		gen:      gen,
		cfg:      cfg,
	}
}

// Review runs a review. It fails only when the standards set is unknown;
// model problems are reported inside the Response.
func (e *Engine) Review(ctx context.Context, req Request) (Response, error) {
	entry, ok := e.catalog.Get(req.StandardsSet)
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownStandardsSet, req.StandardsSet)
	}
	return e.pipeline.Run(ctx, req, entry), nil
}

// Catalog returns the loaded standards.
func (e *Engine) Catalog() *standards.Catalog { return e.catalog }

// Available reports whether a model backend is configured.
func (e *Engine) Available() bool { return e.gen != nil }

// ModelID returns the configured model id.
func (e *Engine) ModelID() string { return e.cfg.Model.ID }

// NewRequest returns a request carrying the engine's policy defaults.
func (e *Engine) NewRequest() Request { return NewRequest(e.cfg.Policy) }

// MaxContentLength returns the configured content limit.
func (e *Engine) MaxContentLength() int { return e.cfg.Server.MaxContentLength }
