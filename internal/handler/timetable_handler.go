package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/models"
	appErrors "github.com/noah-isme/school-hub-api/pkg/errors"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

type timetableService interface {
	Timetable(ctx context.Context, accountID string, year, week int, refresh bool) ([]models.CourseDay, bool, error)
	CurrentWeek() (int, int)
}

// TimetableHandler serves weekly timetables.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler creates a new handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Week godoc
// @Summary Timetable of a week
// @Description Courses of an ISO week grouped by day. Use "current" for this week. The year defaults to the current ISO week-numbering year.
// @Tags Timetable
// @Produce json
// @Security BearerAuth
// @Param week path string true "ISO week number or current"
// @Param year query int false "ISO week-numbering year"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /timetable/weeks/{week} [get]
func (h *TimetableHandler) Week(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	year, week := h.service.CurrentWeek()
	if raw := c.Param("week"); raw != "current" {
		if week, err = strconv.Atoi(raw); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week must be a number or current"))
			return
		}
		if year, err = intQuery(c, "year", year); err != nil {
			response.Error(c, err)
			return
		}
	}

	days, hit, err := h.service.Timetable(c.Request.Context(), accountID, year, week, refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	meta := middleware.ResponseMeta(c)
	meta["year"] = year
	meta["week"] = week
	response.JSON(c, http.StatusOK, days, nil, meta)
}
