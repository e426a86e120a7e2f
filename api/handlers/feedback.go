package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// FeedbackHandler serves POST /feedback. Feedback is logged for later review;
// there is no storage pipeline behind it.
type FeedbackHandler struct {
	logger *zap.Logger
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		logger: logger.With(zap.String("component", "feedback_handler")),
	}
}

// FeedbackRequest is the feedback payload.
type FeedbackRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Rating  int    `json:"rating,omitempty"`
}

// HandleFeedback records one piece of feedback.
func (h *FeedbackHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "message is required", h.logger)
		return
	}

	h.logger.Info("user feedback",
		zap.String("user_id", req.UserID),
		zap.String("message", req.Message),
		zap.Int("rating", req.Rating),
	)

	WriteSuccess(w, map[string]string{
		"message": "Thank you for the feedback!",
	})
}
