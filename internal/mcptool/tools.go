package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/review"
	"github.com/dshills/csr/internal/standards"
)

// MetadataReviewContent describes the review_content tool.
var MetadataReviewContent = &mcp.Tool{
	Name: "review_content",
	Description: "Review instructional content against a loaded standards set and return " +
		"structured observations. Each observation names the violated rule (standard_ref), " +
		"a severity (info, warning, violation), an optional character span into the content " +
		"and a confidence score. Use list_standards to discover valid standards_set ids.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content", "standards_set"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The content to review",
			},
			"standards_set": map[string]interface{}{
				"type":        "string",
				"description": "Id of the standards set to review against",
			},
			"strictness": map[string]interface{}{
				"type":        "string",
				"description": "How strictly to review. Defaults to medium.",
				"enum":        []string{"low", "medium", "high"},
			},
			"max_observations": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum observations to return (1-100)",
				"minimum":     1,
				"maximum":     100,
			},
			"min_confidence": map[string]interface{}{
				"type":        "number",
				"description": "Drop observations below this confidence (0-1)",
				"minimum":     0,
				"maximum":     1,
			},
		},
	},
}

// MetadataListStandards describes the list_standards tool.
var MetadataListStandards = &mcp.Tool{
	Name:        "list_standards",
	Description: "List the loaded standards sets with their id, name and version.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputReviewContent is the input for the review_content tool.
type InputReviewContent struct {
	Content         string   `json:"content"`
	StandardsSet    string   `json:"standards_set"`
	Strictness      string   `json:"strictness,omitempty"`
	MaxObservations *int     `json:"max_observations,omitempty"`
	MinConfidence   *float64 `json:"min_confidence,omitempty"`
}

// InputListStandards is the (empty) input for the list_standards tool.
type InputListStandards struct{}

// OutputListStandards is the output of the list_standards tool.
type OutputListStandards struct {
	StandardsSets []standards.Info `json:"standards_sets"`
}

// Tools binds the tool handlers to an engine.
type Tools struct {
	engine *review.Engine
	logger *zap.Logger
}

// NewTools creates the tool handlers.
func NewTools(engine *review.Engine, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{engine: engine, logger: logger}
}

// ReviewContent runs a review and returns the response as JSON text.
func (t *Tools) ReviewContent(ctx context.Context, _ *mcp.CallToolRequest, input InputReviewContent) (*mcp.CallToolResult, any, error) {
	req := t.engine.NewRequest()
	req.Content = input.Content
	req.StandardsSet = input.StandardsSet
	if input.Strictness != "" {
		req.Strictness = config.Strictness(input.Strictness)
	}
	if input.MaxObservations != nil {
		req.Options.MaxObservations = *input.MaxObservations
	}
	if input.MinConfidence != nil {
		req.Options.MinConfidence = *input.MinConfidence
	}

	if err := req.Validate(t.engine.MaxContentLength()); err != nil {
		return nil, nil, err
	}
	if !t.engine.Available() {
		return nil, nil, errors.New("model backend unavailable")
	}

	resp, err := t.engine.Review(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	t.logger.Info("mcp review complete",
		zap.String("request_id", resp.Meta.RequestID),
		zap.Int("observations", len(resp.Observations)),
		zap.Int("errors", len(resp.Errors)),
	)

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// ListStandards returns the loaded standards sets.
func (t *Tools) ListStandards(_ context.Context, _ *mcp.CallToolRequest, _ InputListStandards) (*mcp.CallToolResult, OutputListStandards, error) {
	return nil, OutputListStandards{StandardsSets: t.engine.Catalog().List()}, nil
}

// NewServer returns an MCP server with both tools registered.
func NewServer(engine *review.Engine, version string, logger *zap.Logger) *mcp.Server {
	tools := NewTools(engine, logger)
	server := mcp.NewServer(&mcp.Implementation{Name: "csr", Version: version}, nil)
	mcp.AddTool(server, MetadataReviewContent, tools.ReviewContent)
	mcp.AddTool(server, MetadataListStandards, tools.ListStandards)
	return server
}

// ServeStdio runs the server over stdin/stdout until ctx is done or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
