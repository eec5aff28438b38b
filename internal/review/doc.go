// Package review turns content plus a standards set into validated,
// policy-normalised observations.
//
// A [Pipeline] retrieves the relevant rules, renders prompts with literal
// placeholder substitution, invokes the model once (multi-rule mode) or once
// per rule (single-rule mode, optionally concurrent), recovers JSON from the
// reply, narrows each candidate into an [Observation] and finally runs the
// deterministic [Policy]: confidence gate, strictness bias, dedup, sort and
// truncate.
//
// Model and parse failures never escape as Go errors; they are reported as
// [ErrorEntry] values in the [Response], which is always schema-complete.
// [Engine] adds standards-set lookup and request validation in front of the
// pipeline.
package review
