package review

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/logging"
	"github.com/dshills/csr/internal/providers"
	"github.com/dshills/csr/internal/redact"
	"github.com/dshills/csr/internal/standards"
	"github.com/dshills/csr/internal/telemetry"
)

const parseFailureMessage = "Model returned output but no valid observations could be extracted"

var errNoGenerator = errors.New("no model backend configured")

// Pipeline runs one review request from retrieval to the assembled response.
type Pipeline struct {
	cfg       config.Config
	gen       providers.Generator
	prompts   *PromptBuilder
	validator *Validator
	policy    *Policy
	logger    *zap.Logger
	tel       *telemetry.Telemetry
	now       func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTelemetry sets the metric and span instruments.
func WithTelemetry(t *telemetry.Telemetry) PipelineOption {
	return func(p *Pipeline) { p.tel = t }
}

// WithIDFunc sets the observation id generator.
func WithIDFunc(f func() string) PipelineOption {
	return func(p *Pipeline) { p.validator = NewValidator(f) }
}

// NewPipeline creates a pipeline. Every model invocation made through gen
// runs under cfg.Model's timeout and retry settings.
func NewPipeline(cfg config.Config, gen providers.Generator, opts ...PipelineOption) *Pipeline {
	if gen != nil {
		gen = providers.NewResilient(gen, providers.ResilienceConfig{
			Attempts: cfg.Model.RetryAttempts,
			Timeout:  time.Duration(cfg.Model.TimeoutSeconds * float64(time.Second)),
		})
	}
	p := &Pipeline{
		cfg:       cfg,
		gen:       gen,
		prompts:   NewPromptBuilder(cfg.Prompts),
		validator: NewValidator(nil),
		policy:    NewPolicy(cfg.Policy),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// callResult is the outcome of one model invocation.
type callResult struct {
	observations []Observation
	usage        Usage
	err          error
	parseFailed  bool
}

// batch is what a mode hands to the policy stage.
type batch struct {
	observations []Observation
	usage        Usage
	errors       []ErrorEntry
	// fatal is set when the only model call failed and policy is skipped.
	fatal bool
}

// Run reviews req.Content against the rules of entry. It never fails: model
// and parse failures are reported in Response.Errors.
func (p *Pipeline) Run(ctx context.Context, req Request, entry *standards.Entry) Response {
	start := p.now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = NewRequestID()
	}
	ctx = logging.WithRequestID(ctx, requestID)
	log := logging.FromContext(ctx, p.logger)

	lc, err := newLifecycle(requestID, log)
	if err != nil {
		log.Error("lifecycle unavailable", zap.Error(err))
	}

	rules := entry.Index.Retrieve(req.Content, req.Strictness)
	lc.advance(eventRetrieved)
	log.Debug("rules retrieved",
		zap.Int("count", len(rules)),
		zap.Strings("refs", ruleRefs(rules)),
	)

	content := req.Content
	if p.cfg.Privacy.RedactSecrets {
		if n := redact.Count(content); n > 0 {
			content = redact.Secrets(content)
			log.Info("secrets redacted from content", zap.Int("count", n))
		}
	}
	contentLength := utf8.RuneCountInString(req.Content)

	var b batch
	if p.cfg.Execution.Mode == config.ModeSingle {
		b = p.runSingle(ctx, lc, log, content, contentLength, rules, req.Strictness)
	} else {
		b = p.runMulti(ctx, lc, log, content, contentLength, rules, req.Strictness)
	}

	observations := []Observation{}
	if !b.fatal {
		if applied := p.policy.Apply(b.observations, req.Strictness, req.Options.MinConfidence, req.Options.MaxObservations); applied != nil {
			observations = applied
		}
		stripOptional(observations, req.Options)
		lc.advance(eventAssembled)
	}
	if b.errors == nil {
		b.errors = []ErrorEntry{}
	}

	latency := p.now().Sub(start)
	resp := Response{
		Observations: observations,
		Meta: Meta{
			RequestID:     requestID,
			StandardsSet:  req.StandardsSet,
			Strictness:    req.Strictness,
			PolicyVersion: p.policy.Version(),
			ModelID:       p.cfg.Model.ID,
			LatencyMs:     latency.Milliseconds(),
			Usage:         b.usage,
		},
		Errors: b.errors,
	}

	p.tel.RecordReview(ctx, req.StandardsSet, string(req.Strictness), len(observations), len(b.errors), latency)
	log.Info("review complete",
		zap.String("standards_set", req.StandardsSet),
		zap.String("strictness", string(req.Strictness)),
		zap.String("mode", p.cfg.Execution.Mode),
		zap.Int("observations", len(observations)),
		zap.Int("errors", len(b.errors)),
		zap.Int64("latency_ms", resp.Meta.LatencyMs),
		zap.String("stage", lc.Stage()),
	)
	return resp
}

func (p *Pipeline) runMulti(ctx context.Context, lc *lifecycle, log *zap.Logger, content string, contentLength int, rules []standards.Rule, s config.Strictness) batch {
	system, user := p.prompts.MultiRule(content, rules, s)
	lc.advance(eventPrompted)

	res := p.call(ctx, system, user, "", contentLength, standards.Refs(rules))
	if res.err != nil {
		lc.advance(eventFailed)
		log.Error("model failure", zap.Error(res.err))
		return batch{
			fatal:  true,
			errors: []ErrorEntry{{Code: CodeModelFailure, Message: res.err.Error()}},
		}
	}
	lc.advance(eventGenerated)

	b := batch{observations: res.observations, usage: res.usage}
	if res.parseFailed {
		log.Warn("model output could not be parsed")
		b.errors = append(b.errors, ErrorEntry{Code: CodeModelParseFailure, Message: parseFailureMessage})
	}
	lc.advance(eventValidated)
	return b
}

func (p *Pipeline) runSingle(ctx context.Context, lc *lifecycle, log *zap.Logger, content string, contentLength int, rules []standards.Rule, s config.Strictness) batch {
	type prompt struct{ system, user string }
	prompts := make([]prompt, len(rules))
	for i, r := range rules {
		prompts[i].system, prompts[i].user = p.prompts.SingleRule(content, r, s)
	}
	lc.advance(eventPrompted)

	results := make([]callResult, len(rules))
	evaluate := func(i int) {
		ref := rules[i].StandardRef
		known := map[string]struct{}{ref: {}}
		results[i] = p.call(ctx, prompts[i].system, prompts[i].user, ref, contentLength, known)
	}

	if p.cfg.Execution.Parallel && len(rules) > 1 {
		var g errgroup.Group
		g.SetLimit(max(1, p.cfg.Execution.MaxConcurrency))
		for i := range rules {
			g.Go(func() error {
				evaluate(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range rules {
			evaluate(i)
		}
	}
	lc.advance(eventGenerated)

	// Merge in rule order so the pre-policy list is deterministic.
	var b batch
	for i, res := range results {
		ref := rules[i].StandardRef
		b.usage = b.usage.Add(res.usage)
		switch {
		case res.err != nil:
			log.Error("model failure", zap.String("standard_ref", ref), zap.Error(res.err))
			b.errors = append(b.errors, ErrorEntry{
				Code:    CodeModelFailure,
				Message: res.err.Error(),
				Details: map[string]any{"standard_ref": ref},
			})
		case res.parseFailed:
			log.Warn("model output could not be parsed", zap.String("standard_ref", ref))
			b.errors = append(b.errors, ErrorEntry{
				Code:    CodeModelParseFailure,
				Message: parseFailureMessage,
				Details: map[string]any{"standard_ref": ref},
			})
		}
		b.observations = append(b.observations, res.observations...)
	}
	lc.advance(eventValidated)
	return b
}

// call invokes the model once and validates its reply against known.
func (p *Pipeline) call(ctx context.Context, system, user, ref string, contentLength int, known map[string]struct{}) callResult {
	if p.gen == nil {
		return callResult{err: errNoGenerator}
	}

	ctx, span := p.tel.StartModelCall(ctx, p.gen.Name(), ref)
	comp, err := p.gen.Generate(ctx, providers.GenerateRequest{
		System:      system,
		User:        user,
		MaxTokens:   p.cfg.Model.MaxTokens,
		Temperature: p.cfg.Model.Temperature,
		JSONMode:    p.cfg.Model.JSONMode,
	})
	if err != nil {
		p.tel.EndModelCall(ctx, span, telemetry.OutcomeError, err)
		return callResult{err: err}
	}

	res := callResult{
		usage: Usage{
			InputTokens:  comp.Usage.InputTokens,
			OutputTokens: comp.Usage.OutputTokens,
		},
	}
	obs, recognized := p.validator.ParseObservations(comp.Text, contentLength, known)
	res.observations = obs
	// A recognized empty array is a legitimate "no issues" reply.
	res.parseFailed = len(obs) == 0 && !recognized && !isBlank(comp.Text)

	outcome := telemetry.OutcomeOK
	if res.parseFailed {
		outcome = telemetry.OutcomeParseError
	}
	p.tel.EndModelCall(ctx, span, outcome, nil)
	return res
}

func stripOptional(obs []Observation, opts Options) {
	for i := range obs {
		if !opts.ReturnRationale {
			obs[i].Rationale = nil
		}
		if !opts.ReturnExcerpts {
			obs[i].StandardExcerpt = nil
		}
	}
}

func ruleRefs(rules []standards.Rule) []string {
	refs := make([]string, len(rules))
	for i, r := range rules {
		refs[i] = r.StandardRef
	}
	return refs
}
