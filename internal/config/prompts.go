package config

// Prompts holds the templates sent to the model. Placeholders are literal
// `{name}` tokens substituted in a single pass.
type Prompts struct {
	SystemPrompt           string            `yaml:"system_prompt" validate:"required"`
	UserPromptTemplate     string            `yaml:"user_prompt_template" validate:"required"`
	SingleRuleTemplate     string            `yaml:"single_rule_template" validate:"required"`
	RuleFormat             string            `yaml:"rule_format" validate:"required"`
	StrictnessInstructions map[string]string `yaml:"strictness_instructions"`
}

// Instruction returns the strictness instruction for s, falling back to the
// medium entry.
func (p Prompts) Instruction(s Strictness) string {
	if v, ok := p.StrictnessInstructions[string(s)]; ok {
		return v
	}
	return p.StrictnessInstructions[string(StrictnessMedium)]
}

const defaultSystemPrompt = `You are a content standards reviewer. You analyze instructional content against provided standards rules and return structured observations.

You MUST respond with raw JSON only. No markdown, no code fences, no explanation text.

Your response must match this exact schema:
{
  "observations": [
    {
      "span": [start_char, end_char] or null,
      "severity": "info" | "warning" | "violation",
      "category": "clarity" | "accuracy" | "structure" | "accessibility" | "pedagogy" | "compliance" | "other",
      "standard_ref": "the rule's standard_ref",
      "message": "clear description of the issue",
      "suggested_fix": "how to fix it" or null,
      "rationale": "why this is an issue per the standard" or null,
      "standard_excerpt": "relevant quote from the standard" or null,
      "confidence": 0.0 to 1.0
    }
  ]
}

Rules for observations:
- span must be [start, end] character offsets into the content where 0 <= start < end <= content_length, or null if not locatable
- severity: "violation" for clear breaches, "warning" for likely issues, "info" for suggestions
- confidence: how certain you are this is a real issue (0.0-1.0)
- standard_ref must exactly match one of the provided rules' standard_ref values
- Only report genuine issues. Do not fabricate problems.
- If the content fully complies with all provided rules, return {"observations": []}
`

const defaultUserPromptTemplate = `## Standards Rules

{rules_text}

## Strictness

{strictness_instruction}

## Content to Review (length: {content_length} characters)

{content}

## Instructions

Review the content above against the provided standards rules. Return your observations as JSON.
`

const defaultSingleRuleTemplate = `## Standards Rule

{rules_text}

## Strictness

{strictness_instruction}

## Content to Review (length: {content_length} characters)

{content}

## Instructions

Review the content above against this single standards rule only. Return your observations as JSON, or {"observations": []} if the content complies.
`

// DefaultPrompts returns the stock prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		SystemPrompt:       defaultSystemPrompt,
		UserPromptTemplate: defaultUserPromptTemplate,
		SingleRuleTemplate: defaultSingleRuleTemplate,
		RuleFormat:         "- [{standard_ref}] {title}: {body}",
		StrictnessInstructions: map[string]string{
			"low":    "Be lenient. Only flag clear, unambiguous issues.",
			"medium": "Apply standard review criteria.",
			"high":   "Be thorough and strict. Flag any potential issue, even minor ones.",
		},
	}
}
