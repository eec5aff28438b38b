// Package providers implements the Generator interface for each supported
// text-generation backend.
//
// Supported backends: any OpenAI-compatible chat completions endpoint
// (OpenAI, Ollama, LM Studio), Anthropic Messages and Google Gemini.
//
// Every client retries rate-limit and 5xx responses with exponential
// back-off. [Resilient] adds a per-invocation timeout and optional
// whole-call retry on top, and [NewCached] serves identical prompts from a
// reply cache. Tests inject an *http.Client pointing at httptest servers.
//
// Use [New] to obtain a Generator from the model configuration.
package providers
