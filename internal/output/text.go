package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/csr/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	resp := report.Response
	summary := review.ComputeSummary(resp.Observations)
	total := len(resp.Observations)

	ew.printf("Content Standards Review: %s (%s strictness)\n", resp.Meta.StandardsSet, resp.Meta.Strictness)
	if report.Source != "" {
		ew.printf("Source: %s\n", report.Source)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Observations: %d total", total)
	if total > 0 {
		ew.printf(" (%d violation, %d warning, %d info)",
			summary.Counts.Violation,
			summary.Counts.Warning,
			summary.Counts.Info,
		)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 && len(resp.Errors) == 0 {
		ew.println("\nNo issues found. Content meets the retrieved standards.")
	}

	grouped := groupBySeverity(resp.Observations)
	for _, sev := range severityOrder {
		obs := grouped[sev]
		if len(obs) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(string(sev)))
		ew.println(strings.Repeat("─", 40))

		for _, o := range obs {
			ew.printf("\n  [%s] %s\n", o.StandardRef, location(report.Content, o.Span))
			ew.printf("  Category: %s | Confidence: %.0f%%\n", o.Category, o.Confidence*100)
			if ex := excerpt(report.Content, o.Span, 80); ex != "" {
				ew.printf("    > %s\n", ex)
			}
			for _, line := range wrapText(o.Message, 70) {
				ew.printf("    %s\n", line)
			}
			if o.SuggestedFix != nil {
				ew.println("  Suggestion:")
				for _, line := range wrapText(*o.SuggestedFix, 70) {
					ew.printf("    %s\n", line)
				}
			}
			if o.Rationale != nil {
				ew.println("  Rationale:")
				for _, line := range wrapText(*o.Rationale, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if len(resp.Errors) > 0 {
		ew.printf("\n[x] ERRORS\n")
		ew.println(strings.Repeat("─", 40))
		for _, e := range resp.Errors {
			if ref, ok := e.Details["standard_ref"]; ok {
				ew.printf("  %s [%v]: %s\n", e.Code, ref, e.Message)
			} else {
				ew.printf("  %s: %s\n", e.Code, e.Message)
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (model: %s, tokens: %d in / %d out, policy %s)\n",
		resp.Meta.LatencyMs, resp.Meta.ModelID,
		resp.Meta.Usage.InputTokens, resp.Meta.Usage.OutputTokens,
		resp.Meta.PolicyVersion)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityViolation:
		return "[!!]"
	case review.SeverityWarning:
		return "[!]"
	case review.SeverityInfo:
		return "[-]"
	default:
		return "[?]"
	}
}
