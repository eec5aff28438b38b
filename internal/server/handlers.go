package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/csr/internal/logging"
	"github.com/dshills/csr/internal/review"
	"github.com/dshills/csr/internal/standards"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Detail errorDetail `json:"detail"`
}

type healthResponse struct {
	Status          string `json:"status"`
	StandardsLoaded int    `json:"standards_loaded"`
	ModelBackend    string `json:"model_backend"`
}

type standardsResponse struct {
	StandardsSets []standards.Info `json:"standards_sets"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Detail: errorDetail{Code: code, Message: message}})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	backend := "unavailable"
	if s.engine.Available() {
		backend = "connected"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		StandardsLoaded: s.engine.Catalog().Len(),
		ModelBackend:    backend,
	})
}

func (s *Server) handleStandards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, standardsResponse{StandardsSets: s.engine.Catalog().List()})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	req := s.engine.NewRequest()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", decodeMessage(err))
		return
	}

	ctx := r.Context()
	if id := strings.TrimSpace(req.RequestID); id != "" {
		w.Header().Set(HeaderRequestID, id)
		ctx = logging.WithRequestID(ctx, id)
	} else {
		req.RequestID = logging.RequestID(ctx)
	}

	if err := req.Validate(s.engine.MaxContentLength()); err != nil {
		switch {
		case errors.Is(err, review.ErrEmptyContent):
			writeError(w, http.StatusUnprocessableEntity, "EMPTY_CONTENT", "Content must not be empty")
		case errors.Is(err, review.ErrContentTooLong):
			writeError(w, http.StatusUnprocessableEntity, "CONTENT_TOO_LONG",
				fmt.Sprintf("Content exceeds maximum length of %d", s.engine.MaxContentLength()))
		default:
			writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", err.Error())
		}
		return
	}

	if _, ok := s.engine.Catalog().Get(req.StandardsSet); !ok {
		writeError(w, http.StatusUnprocessableEntity, "STANDARDS_NOT_FOUND",
			fmt.Sprintf("Standards set '%s' not found", req.StandardsSet))
		return
	}
	if !s.engine.Available() {
		writeError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "Model client not initialized")
		return
	}

	resp, err := s.engine.Review(ctx, req)
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("review failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "review failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
	}
	return "malformed request body: " + err.Error()
}
