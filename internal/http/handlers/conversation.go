package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/http/response"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/services"
)

type ConversationHandler struct {
	log           *logger.Logger
	conversations services.ConversationService
}

func NewConversationHandler(log *logger.Logger, conversations services.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		log:           log.With("handler", "ConversationHandler"),
		conversations: conversations,
	}
}

type advanceRequest struct {
	ID      string `json:"id" form:"id"`
	Message string `json:"message" form:"message"`
}

type advanceResponse struct {
	Response string           `json:"response"`
	Concepts []domain.Concept `json:"concepts"`
}

// POST /conversation
// One teaching turn: records the user message and returns the agent reply
// plus updated concept progress.
func (h *ConversationHandler) Advance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation(errors.New("invalid request body")))
		return
	}

	res, err := h.conversations.Advance(c.Request.Context(), req.ID, req.Message)
	if err != nil {
		h.log.Warn("Advance failed", "conversation_id", req.ID, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, advanceResponse{
		Response: res.Response,
		Concepts: res.Concepts,
	})
}
