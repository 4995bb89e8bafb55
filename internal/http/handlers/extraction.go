package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/teachback/teachback-backend/internal/domain"
	"github.com/teachback/teachback-backend/internal/http/response"
	"github.com/teachback/teachback-backend/internal/platform/apierr"
	"github.com/teachback/teachback-backend/internal/platform/logger"
	"github.com/teachback/teachback-backend/internal/services"
)

type ExtractionHandler struct {
	log        *logger.Logger
	documents  services.DocumentService
	extraction services.ExtractionService
}

func NewExtractionHandler(log *logger.Logger, documents services.DocumentService, extraction services.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{
		log:        log.With("handler", "ExtractionHandler"),
		documents:  documents,
		extraction: extraction,
	}
}

// POST /extract/text
// Multipart upload; extracts the document text and creates the conversation.
func (h *ExtractionHandler) ExtractText(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondAPIError(c, apierr.Validation(errors.New("no file in form data")))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.RespondAPIError(c, apierr.Validation(errors.New("could not open uploaded file")))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	id, err := h.documents.CreateFromUpload(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		h.log.Warn("Upload rejected", "filename", fileHeader.Filename, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": id})
}

type extractConceptsRequest struct {
	ID string `json:"id" form:"id"`
}

type extractConceptsResponse struct {
	Concepts       []domain.Concept `json:"concepts"`
	InitialMessage string           `json:"initial_message"`
}

// POST /extract/concepts
// Derives concepts for an existing conversation and returns the opening
// agent message.
func (h *ExtractionHandler) ExtractConcepts(c *gin.Context) {
	var req extractConceptsRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RespondAPIError(c, apierr.Validation(errors.New("invalid request body")))
		return
	}

	res, err := h.extraction.ExtractConcepts(c.Request.Context(), req.ID)
	if err != nil {
		h.log.Warn("Concept extraction failed", "conversation_id", req.ID, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, extractConceptsResponse{
		Concepts:       res.Concepts,
		InitialMessage: res.InitialMessage,
	})
}
