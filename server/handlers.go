package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/retracehq/retrace/internal/models"
	"github.com/retracehq/retrace/pkg/answer"
)

type memorizeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Mode    string `json:"mode"`
}

type chatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := s.deps.Store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "retrace backend is running",
		"version":      s.deps.Version,
		"stored_pages": count,
	})
}

func (s *Server) handleMemorize(c *gin.Context) {
	var req memorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}

	sourceID, chunkCount, err := s.deps.Indexer.Ingest(c.Request.Context(), req.Title, req.Content)
	switch {
	case errors.Is(err, models.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is empty"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to memorize page: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"doc_id":      sourceID,
		"title":       req.Title,
		"chunk_count": chunkCount,
	})
}

// handleChat always answers 200 with a status tag; synthesis failures
// surface inside the response payload, never as transport errors.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	mode, err := models.ParseAnswerMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.deps.Retriever.Retrieve(c.Request.Context(), req.Message, mode)
	if err != nil {
		c.JSON(http.StatusOK, chatResponse{
			Response: fmt.Sprintf("Retrieval failed: %v", err),
			Status:   string(answer.StatusError),
		})
		return
	}

	a := s.deps.Synthesizer.Synthesize(c.Request.Context(), req.Message, mode, result)
	c.JSON(http.StatusOK, chatResponse{
		Response: a.Text,
		Status:   string(a.Status),
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	summaries, err := s.deps.Indexer.ListDocuments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"documents": summaries,
		"count":     len(summaries),
	})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.deps.Indexer.GetDocument(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source_id":  doc.SourceID,
		"title":      doc.Title,
		"created_at": doc.CreatedAt,
		"content":    doc.Content,
	})
}
