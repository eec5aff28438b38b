package review

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/csr/internal/config"
)

// Severity represents the severity level of an observation.
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityWarning   Severity = "warning"
	SeverityViolation Severity = "violation"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityViolation:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
func MeetsThreshold(s Severity, threshold string) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(Severity(threshold))
}

// downgrade returns the next lower severity and false when s is already info.
func downgrade(s Severity) (Severity, bool) {
	switch s {
	case SeverityViolation:
		return SeverityWarning, true
	case SeverityWarning:
		return SeverityInfo, true
	default:
		return s, false
	}
}

// Category represents the kind of issue an observation reports.
type Category string

const (
	CategoryClarity       Category = "clarity"
	CategoryAccuracy      Category = "accuracy"
	CategoryStructure     Category = "structure"
	CategoryAccessibility Category = "accessibility"
	CategoryPedagogy      Category = "pedagogy"
	CategoryCompliance    Category = "compliance"
	CategoryOther         Category = "other"
)

var validCategories = map[Category]struct{}{
	CategoryClarity:       {},
	CategoryAccuracy:      {},
	CategoryStructure:     {},
	CategoryAccessibility: {},
	CategoryPedagogy:      {},
	CategoryCompliance:    {},
	CategoryOther:         {},
}

// Span is a half-open range of code-point offsets into the reviewed
// content. It is encoded as a two-element JSON array.
type Span struct {
	Start int
	End   int
}

// MarshalJSON encodes s as [start, end].
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes [start, end].
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("span: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("span: want 2 offsets, got %d", len(pair))
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Observation is one validated finding against a standards rule.
type Observation struct {
	ID              string   `json:"id"`
	Span            *Span    `json:"span"`
	Severity        Severity `json:"severity"`
	Category        Category `json:"category"`
	StandardRef     string   `json:"standard_ref"`
	Message         string   `json:"message"`
	SuggestedFix    *string  `json:"suggested_fix"`
	Rationale       *string  `json:"rationale"`
	StandardExcerpt *string  `json:"standard_excerpt"`
	Confidence      float64  `json:"confidence"`
}

// Usage counts model tokens.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// Error codes carried in Response.Errors.
const (
	CodeModelFailure      = "MODEL_FAILURE"
	CodeModelParseFailure = "MODEL_PARSE_FAILURE"
)

// ErrorEntry is a structured, non-fatal error embedded in a response.
type ErrorEntry struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Meta describes how a response was produced.
type Meta struct {
	RequestID     string            `json:"request_id"`
	StandardsSet  string            `json:"standards_set"`
	Strictness    config.Strictness `json:"strictness"`
	PolicyVersion string            `json:"policy_version"`
	ModelID       string            `json:"model_id"`
	LatencyMs     int64             `json:"latency_ms"`
	Usage         Usage             `json:"usage"`
}

// Response is the outcome of one review. Observations and Errors are never nil.
type Response struct {
	Observations []Observation `json:"observations"`
	Meta         Meta          `json:"meta"`
	Errors       []ErrorEntry  `json:"errors"`
}

// Options tunes a single review.
type Options struct {
	ReturnRationale bool    `json:"return_rationale"`
	ReturnExcerpts  bool    `json:"return_excerpts"`
	MaxObservations int     `json:"max_observations" validate:"min=1,max=100"`
	MinConfidence   float64 `json:"min_confidence" validate:"min=0,max=1"`
}

// Request is a review request.
type Request struct {
	RequestID    string            `json:"request_id,omitempty"`
	Content      string            `json:"content"`
	StandardsSet string            `json:"standards_set" validate:"required"`
	Strictness   config.Strictness `json:"strictness" validate:"oneof=low medium high"`
	Options      Options           `json:"options"`
}

// NewRequest returns a request with every option set to its default.
// Decoding JSON into the result leaves unspecified fields at those defaults.
func NewRequest(p config.Policy) Request {
	return Request{
		Strictness: config.StrictnessMedium,
		Options: Options{
			ReturnRationale: true,
			ReturnExcerpts:  true,
			MaxObservations: p.Defaults.MaxObservations,
			MinConfidence:   p.Defaults.MinConfidence,
		},
	}
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Info      int `json:"info"`
	Warning   int `json:"warning"`
	Violation int `json:"violation"`
}

// Summary provides an overview of observations.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity"`
}

// ComputeSummary calculates the summary from observations.
func ComputeSummary(obs []Observation) Summary {
	var s Summary
	for _, o := range obs {
		switch o.Severity {
		case SeverityInfo:
			s.Counts.Info++
		case SeverityWarning:
			s.Counts.Warning++
		case SeverityViolation:
			s.Counts.Violation++
		}
		if SeverityRank(o.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = o.Severity
		}
	}
	return s
}
