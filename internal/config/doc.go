// Package config loads and merges csr configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (CSR_MODEL_ID, CSR_AUTH_TOKEN,
//     CSR_POLICY_THRESHOLDS_VIOLATION_LOW, etc.)
//  3. YAML config file (--config, CSR_CONFIG, or ./csr.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged and validated [Config], [Save] to write one,
// and [SetField] to update a single key. [Policy] and [Prompts] carry the
// per-[Strictness] lookups the review pipeline uses.
package config
