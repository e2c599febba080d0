package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupride/internal/service"
)

// ParticipantHandler handles joining and leaving rides.
type ParticipantHandler struct {
	participantService *service.ParticipantService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(participantService *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// ParticipantResponse is the HTTP representation of a ride participant.
type ParticipantResponse struct {
	UserID   string `json:"userId"`
	JoinedAt string `json:"joinedAt"`
}

// Join handles POST /v1/rides/:id/join
func (h *ParticipantHandler) Join(c *gin.Context) {
	a := actor(c)
	if err := h.participantService.Join(c.Request.Context(), c.Param("id"), a.UserID); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, gin.H{"rideId": c.Param("id"), "userId": a.UserID})
}

// Leave handles DELETE /v1/rides/:id/join
func (h *ParticipantHandler) Leave(c *gin.Context) {
	a := actor(c)
	if err := h.participantService.Leave(c.Request.Context(), c.Param("id"), a.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /v1/rides/:id/participants
func (h *ParticipantHandler) List(c *gin.Context) {
	participants, err := h.participantService.ListParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		resp = append(resp, ParticipantResponse{
			UserID:   p.UserID,
			JoinedAt: p.JoinedAt.UTC().Format(timestampLayout),
		})
	}
	respondJSON(c, http.StatusOK, resp)
}
