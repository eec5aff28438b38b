package redact

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maskRune = '*'

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// Generic secrets/tokens/passwords in quoted assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"'\n]{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic and OpenAI API keys
	regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{20,}`),
	// Email addresses
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
}

// Secrets masks detected secrets in text. Every masked rune becomes '*'
// and whitespace is kept, so the result has the same number of runes as
// the input and character offsets into it are offsets into text.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, mask)
	}
	return result
}

// Count reports how many secret matches text contains.
func Count(text string) int {
	n := 0
	for _, pat := range secretPatterns {
		n += len(pat.FindAllStringIndex(text, -1))
	}
	return n
}

func mask(match string) string {
	var b strings.Builder
	b.Grow(utf8.RuneCountInString(match))
	for _, r := range match {
		if unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(maskRune)
	}
	return b.String()
}

// sensitiveKeys are fragments that mark a settings key as holding a credential.
var sensitiveKeys = []string{"auth", "token", "key", "secret", "pass"}

// IsSensitiveKey reports whether a settings key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeys {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// MaskValue hides value when key is sensitive. Masked values are at least
// six characters long so short secrets do not reveal their length.
func MaskValue(key, value string) string {
	if !IsSensitiveKey(key) {
		return value
	}
	return strings.Repeat(string(maskRune), max(6, utf8.RuneCountInString(value)))
}
