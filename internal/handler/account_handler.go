package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

type accountService interface {
	Link(ctx context.Context, req models.LinkAccountRequest) (*models.LinkAccountResponse, error)
	Get(ctx context.Context, accountID string) (*models.AccountInfo, error)
	Unlink(ctx context.Context, accountID string) error
}

// AccountHandler links and unlinks school accounts.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler creates a new handler.
func NewAccountHandler(svc accountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// Link godoc
// @Summary Link a school account
// @Description Log into the school service and return an API token bound to the account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body models.LinkAccountRequest true "Vendor credentials"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /accounts/link [post]
func (h *AccountHandler) Link(c *gin.Context) {
	var req models.LinkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid link payload"))
		return
	}

	res, err := h.service.Link(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Describe the linked account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /accounts/me [get]
func (h *AccountHandler) Me(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	info, err := h.service.Get(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Unlink godoc
// @Summary Unlink the account
// @Description Deletes the account, its homework, its vendor session and cached data
// @Tags Accounts
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /accounts/me [delete]
func (h *AccountHandler) Unlink(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Unlink(c.Request.Context(), accountID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
