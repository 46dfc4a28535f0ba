package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-hub-api/internal/middleware"
	"github.com/noah-isme/school-hub-api/internal/models"
	"github.com/noah-isme/school-hub-api/internal/service"
	"github.com/noah-isme/school-hub-api/pkg/response"
)

type gradeService interface {
	Periods(ctx context.Context, accountID string, refresh bool) ([]models.Period, bool, error)
	CurrentPeriod(ctx context.Context, accountID string, refresh bool) (*models.Period, bool, error)
	Period(ctx context.Context, accountID, periodID string, refresh bool) (*models.Period, error)
	Grades(ctx context.Context, accountID, periodID string, refresh bool) (*models.PeriodGrades, bool, error)
}

type reportCardService interface {
	ReportCard(ctx context.Context, accountID, periodID string, format service.ExportFormat) (*service.ExportFile, error)
}

// GradeHandler serves grade periods, reports and report card exports.
type GradeHandler struct {
	grades  gradeService
	exports reportCardService
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(grades gradeService, exports reportCardService) *GradeHandler {
	return &GradeHandler{grades: grades, exports: exports}
}

// Periods godoc
// @Summary List grade periods
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /grades/periods [get]
func (h *GradeHandler) Periods(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	periods, hit, err := h.grades.Periods(c.Request.Context(), accountID, refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, periods, nil, middleware.ResponseMeta(c))
}

// CurrentPeriod godoc
// @Summary Current grade period
// @Description The period containing today, or the nearest one outside school time
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades/periods/current [get]
func (h *GradeHandler) CurrentPeriod(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	current, hit, err := h.grades.CurrentPeriod(c.Request.Context(), accountID, refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, current, nil, middleware.ResponseMeta(c))
}

// Report godoc
// @Summary Grades of a period
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Period ID"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /grades/periods/{id} [get]
func (h *GradeHandler) Report(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	refresh := refreshRequested(c)
	periodID := c.Param("id")

	target, err := h.grades.Period(ctx, accountID, periodID, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, hit, err := h.grades.Grades(ctx, accountID, periodID, refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, models.GradeReport{Period: *target, Grades: *grades}, nil, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Download a report card
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Period ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /grades/periods/{id}/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	accountID, err := accountIDFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ReportCard(c.Request.Context(), accountID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
