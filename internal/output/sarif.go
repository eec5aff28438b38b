package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/csr/internal/review"
)

// SARIFWriter outputs observations in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool     `json:"tool"`
	ColumnKind string        `json:"columnKind"`
	Results    []sarifResult `json:"results"`
	Properties sarifRunProps `json:"properties"`
}

type sarifRunProps struct {
	RequestID     string `json:"requestId"`
	StandardsSet  string `json:"standardsSet"`
	PolicyVersion string `json:"policyVersion"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations,omitempty"`
	Fixes      []sarifFix       `json:"fixes,omitempty"`
	Properties sarifResultProps `json:"properties"`
}

type sarifResultProps struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine  int `json:"startLine"`
	EndLine    int `json:"endLine"`
	CharOffset int `json:"charOffset"`
	CharLength int `json:"charLength"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

// Version is reported as the SARIF driver version.
var Version = "dev"

func buildSARIF(report *Report) sarifLog {
	resp := report.Response
	uri := report.Source
	if uri == "" {
		uri = "content"
	}

	var rules []sarifRule
	seen := make(map[string]bool)
	results := make([]sarifResult, 0, len(resp.Observations))

	for _, o := range resp.Observations {
		if !seen[o.StandardRef] {
			seen[o.StandardRef] = true
			rules = append(rules, sarifRule{
				ID:               o.StandardRef,
				ShortDescription: sarifMessage{Text: o.StandardRef},
				DefaultConfig:    sarifDefaultConfig{Level: severityToLevel(o.Severity)},
			})
		}

		result := sarifResult{
			RuleID:  o.StandardRef,
			Level:   severityToLevel(o.Severity),
			Message: sarifMessage{Text: o.Message},
			Properties: sarifResultProps{
				ID:         o.ID,
				Category:   string(o.Category),
				Confidence: o.Confidence,
			},
		}

		if o.Span != nil {
			result.Locations = append(result.Locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region: sarifRegion{
						StartLine:  lineOf(report.Content, o.Span.Start),
						EndLine:    lineOf(report.Content, o.Span.End-1),
						CharOffset: o.Span.Start,
						CharLength: o.Span.End - o.Span.Start,
					},
				},
			})
		}

		if o.SuggestedFix != nil {
			result.Fixes = append(result.Fixes, sarifFix{
				Description: sarifMessage{Text: *o.SuggestedFix},
			})
		}

		results = append(results, result)
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "csr",
						Version:        Version,
						InformationURI: "https://github.com/dshills/csr",
						Rules:          rules,
					},
				},
				ColumnKind: "unicodeCodePoints",
				Results:    results,
				Properties: sarifRunProps{
					RequestID:     resp.Meta.RequestID,
					StandardsSet:  resp.Meta.StandardsSet,
					PolicyVersion: resp.Meta.PolicyVersion,
				},
			},
		},
	}
}

// severityToLevel maps observation severity to SARIF level.
func severityToLevel(s review.Severity) string {
	switch s {
	case review.SeverityViolation:
		return "error"
	case review.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
