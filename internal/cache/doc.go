// Package cache stores model replies so repeated reviews of identical
// prompts skip the model call.
//
// Entries are keyed by a SHA-256 hash of the provider name, model, system
// prompt and user prompt. Two backends implement [Store]: [File], one JSON
// file per entry under $XDG_CACHE_HOME/csr (or the OS-appropriate
// equivalent) with TTL checked on read, and [Redis], which relies on native
// key expiry. Content is redacted before prompts are built, so cached
// payloads never hold secrets the redactor detects.
package cache
