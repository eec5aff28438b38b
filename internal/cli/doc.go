// Package cli wires together the Cobra command tree for the csr binary.
//
// It defines the root command and all subcommands (serve, review, standards,
// config, models, cache, mcp, version), binds flags, reads configuration,
// builds the review engine, and returns deterministic exit codes for CI
// gating.
package cli
