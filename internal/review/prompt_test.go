package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/standards"
)

var testRules = []standards.Rule{
	{StandardRef: "OBJ-1", Title: "Measurable objectives", Body: "Use measurable verbs.", Tags: []string{"objectives", "bloom"}, SeverityDefault: "warning"},
	{StandardRef: "ACR-1", Title: "Acronyms", Body: "Define {acronyms} on first use.", SeverityDefault: "info"},
}

func TestRenderRules(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	got := b.RenderRules(testRules)
	assert.Equal(t, "- [OBJ-1] Measurable objectives: Use measurable verbs.\n- [ACR-1] Acronyms: Define {acronyms} on first use.", got)
}

func TestRenderRuleAllPlaceholders(t *testing.T) {
	cfg := config.DefaultPrompts()
	cfg.RuleFormat = "{standard_ref}|{title}|{body}|{tags}|{severity_default}|{unknown}"
	b := NewPromptBuilder(cfg)
	assert.Equal(t, "OBJ-1|Measurable objectives|Use measurable verbs.|objectives, bloom|warning|{unknown}", b.RenderRule(testRules[0]))
}

func TestMultiRulePrompt(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	content := "The student will understand navigation."
	system, user := b.MultiRule(content, testRules, config.StrictnessHigh)

	assert.Equal(t, config.DefaultPrompts().SystemPrompt, system)
	assert.Contains(t, user, "- [OBJ-1] Measurable objectives")
	assert.Contains(t, user, "- [ACR-1] Acronyms")
	assert.Contains(t, user, "Be thorough and strict.")
	assert.Contains(t, user, "(length: 39 characters)")
	assert.Contains(t, user, content)
}

func TestPromptContentLengthCountsRunes(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	_, user := b.MultiRule("héllo wörld", nil, config.StrictnessMedium)
	assert.Contains(t, user, "(length: 11 characters)")
}

func TestPromptBracesInContentAreInert(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	content := "Use {content} and {rules_text} and {strictness_instruction} literally, plus {0} and {}."
	_, user := b.MultiRule(content, testRules, config.StrictnessLow)

	assert.Equal(t, 1, strings.Count(user, content))
	assert.Equal(t, 1, strings.Count(user, "Be lenient."))
	assert.Equal(t, 1, strings.Count(user, "- [OBJ-1]"))
}

func TestPromptUnknownStrictnessFallsBackToMedium(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	_, user := b.MultiRule("text", testRules, config.Strictness("extreme"))
	assert.Contains(t, user, "Apply standard review criteria.")
}

func TestSingleRulePrompt(t *testing.T) {
	b := NewPromptBuilder(config.DefaultPrompts())
	_, user := b.SingleRule("Some content.", testRules[1], config.StrictnessMedium)
	assert.Contains(t, user, "- [ACR-1] Acronyms: Define {acronyms} on first use.")
	assert.NotContains(t, user, "OBJ-1")
	assert.Contains(t, user, "single standards rule")
}
