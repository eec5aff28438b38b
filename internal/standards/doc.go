// Package standards loads standards sets from disk and ranks their rules
// against content.
//
// [LoadDir] reads JSON and YAML documents, validates each one against an
// embedded JSON schema and keeps the highest version of every set id. An
// [Index] is built once per [Set] and answers [Index.Retrieve] queries with
// a TF-IDF cosine ranking. A [Catalog] bundles the loaded sets with their
// indexes for the server, the CLI and the MCP tools.
package standards
