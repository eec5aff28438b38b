package output

import (
	"io"
	"strings"

	"github.com/dshills/csr/internal/review"
)

// MarkdownWriter outputs a markdown report suitable for review comments.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	resp := report.Response
	summary := review.ComputeSummary(resp.Observations)
	total := len(resp.Observations)

	ew.printf("## Content Standards Review\n\n")
	ew.printf("Standards set `%s` at **%s** strictness", resp.Meta.StandardsSet, resp.Meta.Strictness)
	if report.Source != "" {
		ew.printf(" for `%s`", report.Source)
	}
	ew.printf(".\n\n")

	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Violation | %d |\n", summary.Counts.Violation)
	ew.printf("| Warning | %d |\n", summary.Counts.Warning)
	ew.printf("| Info | %d |\n", summary.Counts.Info)
	ew.printf("| **Total** | **%d** |\n\n", total)

	if total == 0 && len(resp.Errors) == 0 {
		ew.println("No issues found. :white_check_mark:")
		return ew.err
	}

	grouped := groupBySeverity(resp.Observations)
	for _, sev := range severityOrder {
		obs := grouped[sev]
		if len(obs) == 0 {
			continue
		}

		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n", mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(obs))

		for _, o := range obs {
			ew.printf("### `%s`: %s\n\n", o.StandardRef, firstLine(o.Message))
			ew.printf("%s | %s | Confidence: %.0f%%\n\n", location(report.Content, o.Span), o.Category, o.Confidence*100)
			if ex := excerpt(report.Content, o.Span, 200); ex != "" {
				ew.printf("> %s\n\n", ex)
			}
			ew.printf("%s\n\n", o.Message)

			if o.SuggestedFix != nil {
				ew.printf("**Suggestion:** %s\n\n", *o.SuggestedFix)
			}
			if o.Rationale != nil {
				ew.printf("**Rationale:** %s\n\n", *o.Rationale)
			}
			if o.StandardExcerpt != nil {
				ew.printf("**Standard:** _%s_\n\n", *o.StandardExcerpt)
			}

			ew.printf("---\n\n")
		}

		ew.printf("</details>\n\n")
	}

	if len(resp.Errors) > 0 {
		ew.printf("#### :x: Errors\n\n")
		for _, e := range resp.Errors {
			if ref, ok := e.Details["standard_ref"]; ok {
				ew.printf("- `%s` (`%v`): %s\n", e.Code, ref, e.Message)
			} else {
				ew.printf("- `%s`: %s\n", e.Code, e.Message)
			}
		}
		ew.printf("\n")
	}

	ew.printf("*Reviewed in %dms by %s (policy %s)*\n",
		resp.Meta.LatencyMs, resp.Meta.ModelID, resp.Meta.PolicyVersion)

	return ew.err
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityViolation:
		return ":red_circle:"
	case review.SeverityWarning:
		return ":orange_circle:"
	case review.SeverityInfo:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
