package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/motorline/assistcache/llm"
	"github.com/motorline/assistcache/service"
)

// Asker is the slice of the service the ask endpoint needs.
type Asker interface {
	Handle(ctx context.Context, userID, rawQuery string) (<-chan llm.Chunk, error)
}

// AskHandler serves POST /ask: it streams the answer body chunk by chunk as
// plain text, whether it came from the cache or from a live generation.
type AskHandler struct {
	svc    Asker
	logger *zap.Logger
}

// NewAskHandler creates an AskHandler.
func NewAskHandler(svc Asker, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		svc:    svc,
		logger: logger.With(zap.String("component", "ask_handler")),
	}
}

// AskRequest is the ask endpoint payload.
type AskRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// HandleAsk answers one question.
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "user_id is required", h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteSuccess(w, map[string]string{
			"message": "Please type a question and I will do my best to help.",
		})
		return
	}

	stream, err := h.svc.Handle(r.Context(), req.UserID, req.Question)
	switch {
	case errors.Is(err, service.ErrNoAssistant):
		writePlain(w, http.StatusOK, "Please mention the model you are asking about so I can pick the right assistant.")
		return
	case errors.Is(err, service.ErrClosed):
		WriteError(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down", h.logger)
		return
	case err != nil:
		WriteError(w, http.StatusBadGateway, "generation_failed", "failed to generate an answer", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for chunk := range stream {
		if chunk.Err != nil {
			// The status line is already out; all we can do is stop the
			// body and log the truncation.
			h.logger.Warn("answer stream truncated",
				zap.String("user_id", req.UserID),
				zap.Error(chunk.Err),
			)
			return
		}
		if _, err := w.Write(chunk.Data); err != nil {
			h.logger.Debug("client went away mid-stream", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writePlain(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
