package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dshills/csr/internal/review"
)

// Report is a review response together with the content it describes.
type Report struct {
	// Source names the reviewed document, e.g. a file path.
	Source   string
	Content  string
	Response review.Response
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"text", "json", "markdown", "sarif"}
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// severityOrder lists severities from most to least severe.
var severityOrder = []review.Severity{review.SeverityViolation, review.SeverityWarning, review.SeverityInfo}

func groupBySeverity(obs []review.Observation) map[review.Severity][]review.Observation {
	m := make(map[review.Severity][]review.Observation)
	for _, o := range obs {
		m[o.Severity] = append(m[o.Severity], o)
	}
	return m
}

// excerpt returns the content covered by span, collapsed to one line and
// cut to limit runes.
func excerpt(content string, span *review.Span, limit int) string {
	if span == nil {
		return ""
	}
	runes := []rune(content)
	if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
		return ""
	}
	text := strings.Join(strings.Fields(string(runes[span.Start:span.End])), " ")
	if utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit]) + "…"
	}
	return text
}

// lineOf returns the 1-based line holding the rune at offset.
func lineOf(content string, offset int) int {
	line := 1
	i := 0
	for _, r := range content {
		if i >= offset {
			break
		}
		if r == '\n' {
			line++
		}
		i++
	}
	return line
}

// location formats a span as "chars s-e (line n)" or "unlocated".
func location(content string, span *review.Span) string {
	if span == nil {
		return "unlocated"
	}
	start, end := lineOf(content, span.Start), lineOf(content, span.End-1)
	if start == end {
		return fmt.Sprintf("chars %d-%d (line %d)", span.Start, span.End, start)
	}
	return fmt.Sprintf("chars %d-%d (lines %d-%d)", span.Start, span.End, start, end)
}

func wrapText(text string, width int) []string {
	if utf8.RuneCountInString(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
