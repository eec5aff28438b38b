package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/providers"
	"github.com/dshills/csr/internal/standards"
)

const navContent = "The student will understand navigation."

// stubGenerator answers every call with reply(req).
type stubGenerator struct {
	mu    sync.Mutex
	reply func(req providers.GenerateRequest) (providers.Completion, error)
	seen  []providers.GenerateRequest
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, req providers.GenerateRequest) (providers.Completion, error) {
	g.mu.Lock()
	g.seen = append(g.seen, req)
	g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return providers.Completion{}, err
	}
	return g.reply(req)
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func fixedReply(text string, in, out int) func(providers.GenerateRequest) (providers.Completion, error) {
	return func(providers.GenerateRequest) (providers.Completion, error) {
		return providers.Completion{Text: text, Usage: providers.Usage{InputTokens: in, OutputTokens: out}}, nil
	}
}

func observationsJSON(t *testing.T, items ...map[string]any) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{"observations": items})
	require.NoError(t, err)
	return string(data)
}

func entryFor(rules ...standards.Rule) *standards.Entry {
	set := &standards.Set{ID: "demo", Name: "Demo", Version: "1.0", Rules: rules}
	e, _ := standards.NewCatalog(map[string]*standards.Set{"demo": set}, config.DefaultPolicy().Retrieval).Get("demo")
	return e
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("obs-%d", n)
	}
}

func newTestPipeline(t *testing.T, cfg config.Config, gen providers.Generator) *Pipeline {
	t.Helper()
	return NewPipeline(cfg, gen, WithLogger(zaptest.NewLogger(t)), WithIDFunc(counterIDs()))
}

func navRequest() Request {
	req := NewRequest(config.DefaultPolicy())
	req.Content = navContent
	req.StandardsSet = "demo"
	return req
}

var ruleT1 = standards.Rule{StandardRef: "T-1", Title: "Measurable objectives", Body: "Objectives must use measurable verbs instead of understand.", SeverityDefault: "warning"}

func TestSingleValidObservationPassesThrough(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(observationsJSON(t, map[string]any{
		"span":         []int{17, 27},
		"severity":     "violation",
		"category":     "pedagogy",
		"standard_ref": "T-1",
		"message":      "'understand' is not measurable",
		"confidence":   0.85,
	}), 120, 30)}

	resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), navRequest(), entryFor(ruleT1))

	require.Len(t, resp.Observations, 1)
	obs := resp.Observations[0]
	assert.Equal(t, SeverityViolation, obs.Severity)
	assert.Equal(t, "T-1", obs.StandardRef)
	assert.Equal(t, &Span{Start: 17, End: 27}, obs.Span)
	assert.Equal(t, "obs-1", obs.ID)
	assert.Empty(t, resp.Errors)
	assert.NotNil(t, resp.Errors)

	assert.Equal(t, "demo", resp.Meta.StandardsSet)
	assert.Equal(t, config.StrictnessMedium, resp.Meta.Strictness)
	assert.Equal(t, "1.0.0", resp.Meta.PolicyVersion)
	assert.Equal(t, "llama3", resp.Meta.ModelID)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 30}, resp.Meta.Usage)
	assert.NotEmpty(t, resp.Meta.RequestID)
	assert.GreaterOrEqual(t, resp.Meta.LatencyMs, int64(0))
}

func TestModelFailureReportedInErrors(t *testing.T) {
	gen := &stubGenerator{reply: func(providers.GenerateRequest) (providers.Completion, error) {
		return providers.Completion{Usage: providers.Usage{InputTokens: 9}}, context.DeadlineExceeded
	}}

	resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), navRequest(), entryFor(ruleT1))

	assert.NotNil(t, resp.Observations)
	assert.Empty(t, resp.Observations)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelFailure, resp.Errors[0].Code)
	assert.Nil(t, resp.Errors[0].Details)
	assert.Equal(t, Usage{}, resp.Meta.Usage)
}

func TestProseReplyIsParseFailure(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply("This is not JSON at all, just prose.", 10, 5)}

	resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), navRequest(), entryFor(ruleT1))

	assert.Empty(t, resp.Observations)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelParseFailure, resp.Errors[0].Code)
	assert.Equal(t, Usage{InputTokens: 10, OutputTokens: 5}, resp.Meta.Usage)
}

func TestObservationsTruncatedAndOrdered(t *testing.T) {
	severities := []string{"info", "warning", "violation"}
	var items []map[string]any
	for i := 0; i < 20; i++ {
		items = append(items, map[string]any{
			"span":         []int{i, i + 1},
			"severity":     severities[i%3],
			"category":     "clarity",
			"standard_ref": "T-1",
			"message":      fmt.Sprintf("issue %d", i),
			"confidence":   0.8 + float64(i)/100,
		})
	}
	gen := &stubGenerator{reply: fixedReply(observationsJSON(t, items...), 1, 1)}

	req := navRequest()
	req.Options.MaxObservations = 3
	resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), req, entryFor(ruleT1))

	require.Len(t, resp.Observations, 3)
	for _, o := range resp.Observations {
		assert.Equal(t, SeverityViolation, o.Severity)
	}
	assert.Equal(t, "issue 17", resp.Observations[0].Message)
	assert.Equal(t, "issue 14", resp.Observations[1].Message)
	assert.Equal(t, "issue 11", resp.Observations[2].Message)
	assert.Empty(t, resp.Errors)
}

func TestUnknownRefDroppedSilently(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(observationsJSON(t,
		map[string]any{"severity": "warning", "category": "clarity", "standard_ref": "T-1", "message": "valid", "confidence": 0.9},
		map[string]any{"severity": "warning", "category": "clarity", "standard_ref": "NOPE-9", "message": "invented", "confidence": 0.9},
	), 1, 1)}

	resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), navRequest(), entryFor(ruleT1))

	require.Len(t, resp.Observations, 1)
	assert.Equal(t, "valid", resp.Observations[0].Message)
	assert.Empty(t, resp.Errors)
}

func TestEmptyObservationsIsNotParseFailure(t *testing.T) {
	for _, reply := range []string{`{"observations": []}`, "", "   \n"} {
		gen := &stubGenerator{reply: fixedReply(reply, 1, 1)}
		resp := newTestPipeline(t, config.Default(), gen).Run(context.Background(), navRequest(), entryFor(ruleT1))
		assert.Empty(t, resp.Observations, "reply %q", reply)
		assert.Empty(t, resp.Errors, "reply %q", reply)
	}
}

func TestRequestIDPreservedOrGenerated(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(`{"observations":[]}`, 0, 0)}
	p := newTestPipeline(t, config.Default(), gen)

	req := navRequest()
	req.RequestID = "caller-id"
	assert.Equal(t, "caller-id", p.Run(context.Background(), req, entryFor(ruleT1)).Meta.RequestID)

	a := p.Run(context.Background(), navRequest(), entryFor(ruleT1)).Meta.RequestID
	b := p.Run(context.Background(), navRequest(), entryFor(ruleT1)).Meta.RequestID
	assert.Regexp(t, `^[0-9a-f]{12}$`, a)
	assert.Regexp(t, `^[0-9a-f]{12}$`, b)
	assert.NotEqual(t, a, b)
}

func TestStripRationaleAndExcerpt(t *testing.T) {
	reply := observationsJSON(t, map[string]any{
		"severity":         "warning",
		"category":         "clarity",
		"standard_ref":     "T-1",
		"message":          "m",
		"suggested_fix":    "fix",
		"rationale":        "because",
		"standard_excerpt": "quote",
		"confidence":       0.9,
	})
	gen := &stubGenerator{reply: fixedReply(reply, 1, 1)}
	p := newTestPipeline(t, config.Default(), gen)

	resp := p.Run(context.Background(), navRequest(), entryFor(ruleT1))
	require.Len(t, resp.Observations, 1)
	require.NotNil(t, resp.Observations[0].Rationale)
	require.NotNil(t, resp.Observations[0].StandardExcerpt)

	req := navRequest()
	req.Options.ReturnRationale = false
	req.Options.ReturnExcerpts = false
	resp = p.Run(context.Background(), req, entryFor(ruleT1))
	require.Len(t, resp.Observations, 1)
	assert.Nil(t, resp.Observations[0].Rationale)
	assert.Nil(t, resp.Observations[0].StandardExcerpt)
	require.NotNil(t, resp.Observations[0].SuggestedFix)
	assert.Equal(t, "fix", *resp.Observations[0].SuggestedFix)
}

func TestModelRequestSettings(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(`{"observations":[]}`, 0, 0)}
	cfg := config.Default()
	cfg.Model.MaxTokens = 777
	cfg.Model.Temperature = 0.3
	cfg.Model.JSONMode = false

	newTestPipeline(t, cfg, gen).Run(context.Background(), navRequest(), entryFor(ruleT1))

	require.Equal(t, 1, gen.calls())
	got := gen.seen[0]
	assert.Equal(t, 777, got.MaxTokens)
	assert.Equal(t, 0.3, got.Temperature)
	assert.False(t, got.JSONMode)
	assert.Equal(t, cfg.Prompts.SystemPrompt, got.System)
	assert.Contains(t, got.User, "[T-1] Measurable objectives")
	assert.Contains(t, got.User, navContent)
}

func TestRedactSecretsBeforePrompting(t *testing.T) {
	secret := "sk-ant-REDACTED"
	content := "Configure the client with key " + secret + " and continue."
	reply := observationsJSON(t, map[string]any{
		"span":         []int{30, 30 + len(secret)},
		"severity":     "violation",
		"category":     "compliance",
		"standard_ref": "T-1",
		"message":      "secret in content",
		"confidence":   0.95,
	})
	gen := &stubGenerator{reply: fixedReply(reply, 1, 1)}
	cfg := config.Default()
	cfg.Privacy.RedactSecrets = true

	req := navRequest()
	req.Content = content
	resp := newTestPipeline(t, cfg, gen).Run(context.Background(), req, entryFor(ruleT1))

	require.Equal(t, 1, gen.calls())
	assert.NotContains(t, gen.seen[0].User, secret)
	assert.Contains(t, gen.seen[0].User, fmt.Sprintf("(length: %d characters)", len(content)))
	require.Len(t, resp.Observations, 1)
	assert.Equal(t, &Span{Start: 30, End: 30 + len(secret)}, resp.Observations[0].Span)
}

func TestNilGeneratorIsModelFailure(t *testing.T) {
	resp := newTestPipeline(t, config.Default(), nil).Run(context.Background(), navRequest(), entryFor(ruleT1))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelFailure, resp.Errors[0].Code)
}

func TestCancelledContextIsModelFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &stubGenerator{reply: fixedReply(`{"observations":[]}`, 0, 0)}
	resp := newTestPipeline(t, config.Default(), gen).Run(ctx, navRequest(), entryFor(ruleT1))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelFailure, resp.Errors[0].Code)
}

var threeRules = []standards.Rule{
	{StandardRef: "A", Title: "Acronyms", Body: "Define acronyms on first use."},
	{StandardRef: "B", Title: "Objectives", Body: "Use measurable verbs."},
	{StandardRef: "C", Title: "Length", Body: "Keep paragraphs short."},
}

// perRuleReply answers single-rule prompts by the ref they carry. Rule B
// fails; every rule also reports an observation against rule C, which only
// survives in C's own call.
func perRuleReply(t *testing.T) func(providers.GenerateRequest) (providers.Completion, error) {
	return func(req providers.GenerateRequest) (providers.Completion, error) {
		for _, ref := range []string{"A", "B", "C"} {
			if !strings.Contains(req.User, "["+ref+"]") {
				continue
			}
			if ref == "B" {
				return providers.Completion{}, fmt.Errorf("rule B timed out")
			}
			text := observationsJSON(t,
				map[string]any{"severity": "warning", "category": "clarity", "standard_ref": ref, "message": "from " + ref, "confidence": 0.9},
				map[string]any{"span": []int{0, 3}, "severity": "info", "category": "other", "standard_ref": "C", "message": "cross " + ref, "confidence": 0.9},
			)
			return providers.Completion{Text: text, Usage: providers.Usage{InputTokens: 100, OutputTokens: 10}}, nil
		}
		return providers.Completion{}, fmt.Errorf("no rule in prompt")
	}
}

func singleModeConfig(parallel bool) config.Config {
	cfg := config.Default()
	cfg.Execution.Mode = config.ModeSingle
	cfg.Execution.Parallel = parallel
	cfg.Execution.MaxConcurrency = 2
	return cfg
}

func TestSingleRuleMode(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			defer goleak.VerifyNone(t)

			gen := &stubGenerator{reply: perRuleReply(t)}
			resp := newTestPipeline(t, singleModeConfig(parallel), gen).Run(context.Background(), navRequest(), entryFor(threeRules...))

			assert.Equal(t, 3, gen.calls())
			for _, req := range gen.seen {
				assert.Equal(t, 1, strings.Count(req.User, "- ["), "each prompt carries one rule")
			}

			require.Len(t, resp.Errors, 1)
			assert.Equal(t, CodeModelFailure, resp.Errors[0].Code)
			assert.Equal(t, map[string]any{"standard_ref": "B"}, resp.Errors[0].Details)

			var messages []string
			for _, o := range resp.Observations {
				messages = append(messages, o.Message)
			}
			assert.ElementsMatch(t, []string{"from A", "from C"}, messages[:2])
			assert.Contains(t, messages, "cross C")
			assert.NotContains(t, messages, "cross A")
			assert.Equal(t, Usage{InputTokens: 200, OutputTokens: 20}, resp.Meta.Usage)
		})
	}
}

func TestSingleRuleParseFailureTagged(t *testing.T) {
	gen := &stubGenerator{reply: func(req providers.GenerateRequest) (providers.Completion, error) {
		if strings.Contains(req.User, "[A]") {
			return providers.Completion{Text: "I could not decide."}, nil
		}
		return providers.Completion{Text: `{"observations":[]}`}, nil
	}}
	resp := newTestPipeline(t, singleModeConfig(true), gen).Run(context.Background(), navRequest(), entryFor(threeRules...))

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelParseFailure, resp.Errors[0].Code)
	assert.Equal(t, "A", resp.Errors[0].Details["standard_ref"])
}

func TestSingleRuleAllFail(t *testing.T) {
	gen := &stubGenerator{reply: func(providers.GenerateRequest) (providers.Completion, error) {
		return providers.Completion{}, fmt.Errorf("down")
	}}
	resp := newTestPipeline(t, singleModeConfig(true), gen).Run(context.Background(), navRequest(), entryFor(threeRules...))

	assert.NotNil(t, resp.Observations)
	assert.Empty(t, resp.Observations)
	assert.Len(t, resp.Errors, 3)
	for i, e := range resp.Errors {
		assert.Equal(t, threeRules[i].StandardRef, e.Details["standard_ref"])
	}
}

func TestSingleRuleRespectsConcurrencyLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	active, peak := 0, 0
	gen := &stubGenerator{reply: func(providers.GenerateRequest) (providers.Completion, error) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()
		defer func() {
			mu.Lock()
			active--
			mu.Unlock()
		}()
		return providers.Completion{Text: `{"observations":[]}`}, nil
	}}

	var rules []standards.Rule
	for i := 0; i < 8; i++ {
		rules = append(rules, standards.Rule{StandardRef: fmt.Sprintf("R-%d", i), Title: "t", Body: "b"})
	}
	cfg := singleModeConfig(true)
	newTestPipeline(t, cfg, gen).Run(context.Background(), navRequest(), entryFor(rules...))

	assert.Equal(t, 8, gen.calls())
	assert.LessOrEqual(t, peak, cfg.Execution.MaxConcurrency)
}
