package review

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dshills/csr/internal/config"
	"github.com/dshills/csr/internal/standards"
)

// PromptBuilder renders system and user prompts from configured templates.
// Placeholders are substituted in one literal pass: inserted values are
// never rescanned, so braces in content or rule text are inert.
type PromptBuilder struct {
	cfg config.Prompts
}

// NewPromptBuilder returns a builder over cfg.
func NewPromptBuilder(cfg config.Prompts) *PromptBuilder {
	return &PromptBuilder{cfg: cfg}
}

// System returns the system prompt.
func (b *PromptBuilder) System() string {
	return b.cfg.SystemPrompt
}

// Instruction returns the strictness instruction, falling back to medium.
func (b *PromptBuilder) Instruction(s config.Strictness) string {
	return b.cfg.Instruction(s)
}

// RenderRule renders one rule through the rule format.
func (b *PromptBuilder) RenderRule(r standards.Rule) string {
	return strings.NewReplacer(
		"{standard_ref}", r.StandardRef,
		"{title}", r.Title,
		"{body}", r.Body,
		"{tags}", strings.Join(r.Tags, ", "),
		"{severity_default}", r.SeverityDefault,
	).Replace(b.cfg.RuleFormat)
}

// RenderRules renders rules one per line.
func (b *PromptBuilder) RenderRules(rules []standards.Rule) string {
	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = b.RenderRule(r)
	}
	return strings.Join(lines, "\n")
}

// MultiRule renders the prompts for one call carrying every rule.
func (b *PromptBuilder) MultiRule(content string, rules []standards.Rule, s config.Strictness) (system, user string) {
	return b.System(), b.render(b.cfg.UserPromptTemplate, content, b.RenderRules(rules), s)
}

// SingleRule renders the prompts for a call scoped to one rule.
func (b *PromptBuilder) SingleRule(content string, rule standards.Rule, s config.Strictness) (system, user string) {
	return b.System(), b.render(b.cfg.SingleRuleTemplate, content, b.RenderRule(rule), s)
}

func (b *PromptBuilder) render(tmpl, content, rulesText string, s config.Strictness) string {
	return strings.NewReplacer(
		"{rules_text}", rulesText,
		"{strictness_instruction}", b.Instruction(s),
		"{content_length}", strconv.Itoa(utf8.RuneCountInString(content)),
		"{content}", content,
	).Replace(tmpl)
}
