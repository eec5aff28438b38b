// Package server exposes the review engine over HTTP.
//
// Routes:
//
//	GET  /health        liveness plus loaded-standards and backend status
//	GET  /v1/standards  list loaded standards sets (bearer auth)
//	POST /v1/review     run a review (bearer auth)
//
// Errors use the body shape {"detail":{"code":...,"message":...}}.
package server
