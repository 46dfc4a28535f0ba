package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

type syncService interface {
	Enqueue(accountID string) (*models.SyncJob, error)
}

// SyncHandler queues background refreshes.
type SyncHandler struct {
	service syncService
}

// NewSyncHandler creates a new handler.
func NewSyncHandler(svc syncService) *SyncHandler {
	return &SyncHandler{service: svc}
}

// Trigger godoc
// @Summary Refresh cached school data in the background
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /sync [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.service.Enqueue(accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}
