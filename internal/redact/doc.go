// Package redact masks secrets in content before it is sent to any model
// provider, and hides credential values in logged settings.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, AWS access key IDs, bearer tokens, email addresses and
// provider-specific tokens (Anthropic, OpenAI, GitHub, Slack).
//
// Masking is length-preserving: each masked rune is replaced by a single
// '*', so spans the model reports against redacted content stay valid
// against the unredacted text.
package redact
