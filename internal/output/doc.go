// Package output formats review responses for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the response exactly as the HTTP API returns it
//   - markdown: review-comment friendly with collapsible sections per severity
//   - sarif: SARIF v2.1.0, one result per observation with character regions
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*Report]. [WriteReport] handles
// destination selection.
package output
