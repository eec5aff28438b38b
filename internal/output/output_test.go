package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/review"
)

const sampleContent = "Objective: The student will understand navigation.\nUse the LMS to submit work."

func strPtr(s string) *string { return &s }

func sampleReport() *Report {
	return &Report{
		Source:  "lesson1.md",
		Content: sampleContent,
		Response: review.Response{
			Observations: []review.Observation{
				{
					ID:              "a1b2c3d4e5f6",
					Span:            &review.Span{Start: 28, End: 38},
					Severity:        review.SeverityViolation,
					Category:        review.CategoryPedagogy,
					StandardRef:     "OBJ-1",
					Message:         "'understand' is not a measurable verb",
					SuggestedFix:    strPtr("Replace with 'identify'"),
					Rationale:       strPtr("Objectives must be measurable"),
					StandardExcerpt: strPtr("Use measurable verbs"),
					Confidence:      0.92,
				},
				{
					ID:          "0f9e8d7c6b5a",
					Span:        &review.Span{Start: 59, End: 62},
					Severity:    review.SeverityWarning,
					Category:    review.CategoryClarity,
					StandardRef: "ACR-1",
					Message:     "Acronym LMS is not defined",
					Confidence:  0.8,
				},
				{
					ID:          "112233445566",
					Severity:    review.SeverityInfo,
					Category:    review.CategoryStructure,
					StandardRef: "STR-2",
					Message:     "Consider adding headings",
					Confidence:  0.6,
				},
			},
			Meta: review.Meta{
				RequestID:     "req-1",
				StandardsSet:  "course-basics",
				Strictness:    config.StrictnessHigh,
				PolicyVersion: "1.0.0",
				ModelID:       "llama3",
				LatencyMs:     1234,
				Usage:         review.Usage{InputTokens: 500, OutputTokens: 120},
			},
			Errors: []review.ErrorEntry{
				{Code: review.CodeModelFailure, Message: "timeout", Details: map[string]any{"standard_ref": "STR-9"}},
			},
		},
	}
}

func emptyReport() *Report {
	return &Report{
		Content: "fine content",
		Response: review.Response{
			Observations: []review.Observation{},
			Meta:         review.Meta{StandardsSet: "course-basics", Strictness: config.StrictnessMedium},
			Errors:       []review.ErrorEntry{},
		},
	}
}

func TestGetWriter(t *testing.T) {
	for _, f := range append(Formats(), "md") {
		if _, err := GetWriter(f); err != nil {
			t.Errorf("GetWriter(%q) error: %v", f, err)
		}
	}
	if _, err := GetWriter("pdf"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestWriteReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteReport(sampleReport(), "json", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if len(data) == 0 {
		t.Error("output file is empty")
	}
}

func TestLineOf(t *testing.T) {
	tests := []struct {
		offset int
		want   int
	}{
		{0, 1},
		{50, 1},
		{51, 2},
		{70, 2},
	}
	for _, tt := range tests {
		if got := lineOf(sampleContent, tt.offset); got != tt.want {
			t.Errorf("lineOf(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt(sampleContent, &review.Span{Start: 28, End: 38}, 80); got != "understand" {
		t.Errorf("excerpt = %q", got)
	}
	if got := excerpt("héllo wörld", &review.Span{Start: 6, End: 11}, 80); got != "wörld" {
		t.Errorf("excerpt counts runes: %q", got)
	}
	if got := excerpt(sampleContent, &review.Span{Start: 0, End: 30}, 5); got != "Objec…" {
		t.Errorf("truncated excerpt = %q", got)
	}
	if got := excerpt(sampleContent, nil, 80); got != "" {
		t.Errorf("nil span excerpt = %q", got)
	}
	if got := excerpt("short", &review.Span{Start: 2, End: 50}, 80); got != "" {
		t.Errorf("out of range excerpt = %q", got)
	}
}

func TestLocation(t *testing.T) {
	if got := location(sampleContent, nil); got != "unlocated" {
		t.Errorf("location(nil) = %q", got)
	}
	if got := location(sampleContent, &review.Span{Start: 28, End: 38}); got != "chars 28-38 (line 1)" {
		t.Errorf("location = %q", got)
	}
	if got := location(sampleContent, &review.Span{Start: 40, End: 60}); got != "chars 40-60 (lines 1-2)" {
		t.Errorf("location = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 10)
	want := []string{"one two", "three four", "five six"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
