// Csr is the content standards review service.
//
// It reviews instructional content against versioned standards sets with an
// LLM and returns structured observations filtered by a deterministic policy.
// The same engine is exposed over HTTP, as MCP tools and as a CLI with
// deterministic exit codes suitable for CI gating.
//
// Usage:
//
//	csr serve                              # run the HTTP API
//	csr review lesson.md -s course-basics  # review a file
//	csr review -s course-basics < notes.md # review stdin
//	csr standards list                     # list loaded standards sets
//	csr mcp                                # serve MCP tools over stdio
//
// See https://github.com/dshills/csr for full documentation.
package main
