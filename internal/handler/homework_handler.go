package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

const dateLayout = "2006-01-02"

type homeworkService interface {
	List(ctx context.Context, filter models.HomeworkFilter) ([]models.Homework, *models.Pagination, error)
	Get(ctx context.Context, accountID, id string) (*models.Homework, error)
	Create(ctx context.Context, accountID string, req models.HomeworkRequest) (*models.Homework, error)
	Update(ctx context.Context, accountID, id string, req models.HomeworkRequest) (*models.Homework, error)
	SetDone(ctx context.Context, accountID, id string, req models.HomeworkDoneRequest) (*models.Homework, error)
	Delete(ctx context.Context, accountID, id string) error
}

// HomeworkHandler manages custom homework entries.
type HomeworkHandler struct {
	service homeworkService
}

// NewHomeworkHandler creates a new handler.
func NewHomeworkHandler(svc homeworkService) *HomeworkHandler {
	return &HomeworkHandler{service: svc}
}

// List godoc
// @Summary List homework
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param from query string false "Due on or after (YYYY-MM-DD)"
// @Param to query string false "Due on or before (YYYY-MM-DD)"
// @Param done query bool false "Filter by completion"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /homework [get]
func (h *HomeworkHandler) List(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, err := homeworkFilter(c, accountID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get homework
// @Tags Homework
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /homework/{id} [get]
func (h *HomeworkHandler) Get(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	hw, err := h.service.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hw, nil)
}

// Create godoc
// @Summary Create homework
// @Tags Homework
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.HomeworkRequest true "Homework payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /homework [post]
func (h *HomeworkHandler) Create(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.HomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	hw, err := h.service.Create(c.Request.Context(), accountID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hw)
}

// Update godoc
// @Summary Update homework
// @Tags Homework
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Param payload body models.HomeworkRequest true "Homework payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /homework/{id} [put]
func (h *HomeworkHandler) Update(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.HomeworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework payload"))
		return
	}
	hw, err := h.service.Update(c.Request.Context(), accountID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hw, nil)
}

// SetDone godoc
// @Summary Mark homework done or not done
// @Tags Homework
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Param payload body models.HomeworkDoneRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Router /homework/{id}/done [patch]
func (h *HomeworkHandler) SetDone(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.HomeworkDoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid homework status payload"))
		return
	}
	hw, err := h.service.SetDone(c.Request.Context(), accountID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hw, nil)
}

// Delete godoc
// @Summary Delete homework
// @Tags Homework
// @Security BearerAuth
// @Param id path string true "Homework ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /homework/{id} [delete]
func (h *HomeworkHandler) Delete(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func homeworkFilter(c *gin.Context, accountID string) (models.HomeworkFilter, error) {
	filter := models.HomeworkFilter{AccountID: accountID}
	var err error
	if filter.Page, err = intQuery(c, "page", 1); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "page_size", 50); err != nil {
		return filter, err
	}
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(c.Query("done")); raw != "" {
		done, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "done must be a boolean")
		}
		filter.IsDone = &done
	}
	return filter, nil
}

func dateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}
