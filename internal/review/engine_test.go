package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/standards"
)

func testEngine(t *testing.T, gen *stubGenerator) *Engine {
	t.Helper()
	set := &standards.Set{ID: "demo", Rules: []standards.Rule{ruleT1}}
	catalog := standards.NewCatalog(map[string]*standards.Set{"demo": set}, config.DefaultPolicy().Retrieval)
	if gen == nil {
		return NewEngine(config.Default(), catalog, nil, zaptest.NewLogger(t))
	}
	return NewEngine(config.Default(), catalog, gen, zaptest.NewLogger(t))
}

func TestEngineReview(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(`{"observations":[]}`, 1, 1)}
	e := testEngine(t, gen)

	assert.True(t, e.Available())
	assert.Equal(t, "llama3", e.ModelID())
	assert.Equal(t, 50000, e.MaxContentLength())
	assert.Equal(t, 1, e.Catalog().Len())

	resp, err := e.Review(context.Background(), navRequest())
	require.NoError(t, err)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 1, gen.calls())
}

func TestEngineUnknownSet(t *testing.T) {
	gen := &stubGenerator{reply: fixedReply(`{"observations":[]}`, 1, 1)}
	req := navRequest()
	req.StandardsSet = "missing"

	_, err := testEngine(t, gen).Review(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStandardsSet))
	assert.Equal(t, 0, gen.calls())
}

func TestEngineWithoutGenerator(t *testing.T) {
	e := testEngine(t, nil)
	assert.False(t, e.Available())

	resp, err := e.Review(context.Background(), navRequest())
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeModelFailure, resp.Errors[0].Code)
}

func TestEngineNewRequestDefaults(t *testing.T) {
	req := testEngine(t, nil).NewRequest()
	assert.Equal(t, config.StrictnessMedium, req.Strictness)
	assert.True(t, req.Options.ReturnRationale)
	assert.True(t, req.Options.ReturnExcerpts)
	assert.Equal(t, 25, req.Options.MaxObservations)
	assert.Equal(t, 0.55, req.Options.MinConfidence)
}

func TestRequestValidate(t *testing.T) {
	valid := navRequest()

	tests := []struct {
		name    string
		mutate  func(*Request)
		max     int
		wantErr error
	}{
		{"valid", func(*Request) {}, 100, nil},
		{"no limit", func(r *Request) { r.Content = strings.Repeat("a", 1000) }, 0, nil},
		{"blank content", func(r *Request) { r.Content = "  \n\t" }, 100, ErrEmptyContent},
		{"too long", func(r *Request) { r.Content = strings.Repeat("é", 101) }, 100, ErrContentTooLong},
		{"exactly at limit", func(r *Request) { r.Content = strings.Repeat("é", 100) }, 100, nil},
		{"missing set", func(r *Request) { r.StandardsSet = "" }, 100, ErrInvalidRequest},
		{"bad strictness", func(r *Request) { r.Strictness = "extreme" }, 100, ErrInvalidRequest},
		{"max observations zero", func(r *Request) { r.Options.MaxObservations = 0 }, 100, ErrInvalidRequest},
		{"max observations too high", func(r *Request) { r.Options.MaxObservations = 101 }, 100, ErrInvalidRequest},
		{"min confidence above one", func(r *Request) { r.Options.MinConfidence = 1.5 }, 100, ErrInvalidRequest},
		{"min confidence zero", func(r *Request) { r.Options.MinConfidence = 0 }, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate(tt.max)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
