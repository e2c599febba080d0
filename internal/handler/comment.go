package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride/internal/domain"
	"groupride/internal/service"
)

// CommentHandler handles HTTP requests for ride comments.
type CommentHandler struct {
	commentService *service.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CommentRequest is the HTTP request body for posting a comment.
type CommentRequest struct {
	Body string `json:"body"`
}

// CommentResponse is the HTTP representation of a comment.
type CommentResponse struct {
	ID        string `json:"id"`
	RideID    string `json:"rideId"`
	UserID    string `json:"userId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

func toCommentResponse(cm *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		RideID:    cm.RideID,
		UserID:    cm.UserID,
		Body:      cm.Body,
		CreatedAt: cm.CreatedAt.UTC().Format(timestampLayout),
	}
}

// Create handles POST /v1/rides/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), actor(c), c.Param("id"), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toCommentResponse(comment))
}

// List handles GET /v1/rides/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.commentService.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		resp = append(resp, toCommentResponse(cm))
	}
	respondJSON(c, http.StatusOK, resp)
}

// Delete handles DELETE /v1/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.commentService.DeleteComment(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
