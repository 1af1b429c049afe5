package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-report-api/internal/dto"
	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/service"
	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
	"github.com/noah-isme/lms-report-api/pkg/response"
)

type reportService interface {
	StudentGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	StudentRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	CourseGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	CourseRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	InstructorGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	InstructorRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)
	Fetch(ctx context.Context, entity models.Entity, reportID string) (*dto.ReportResult, error)
	List(ctx context.Context, q dto.ReportQuery) (*dto.ReportList, error)
}

type reportExporter interface {
	Export(ctx context.Context, entity models.Entity, reportID, format string) (*service.ExportFile, error)
}

type generateFunc func(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error)

// ReportHandler exposes the report generation, lookup and export endpoints.
type ReportHandler struct {
	reports reportService
	exports reportExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exports reportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// RegisterRoutes mounts the report endpoints on rg. guards run before every route;
// generateGuards additionally run before the general and ranged generators.
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup, guards []gin.HandlerFunc, generateGuards []gin.HandlerFunc) {
	report := rg.Group("/report", guards...)
	gen := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, generateGuards...), handler)
	}

	report.GET("/list", h.List)

	report.GET("/student/general", gen(h.StudentGeneral)...)
	report.GET("/student/ranged", gen(h.StudentRanged)...)
	report.GET("/student/:rid", h.StudentReport)
	report.GET("/student/:rid/export", h.Export(models.EntityStudent))

	report.GET("/course/general", gen(h.CourseGeneral)...)
	report.GET("/course/ranged", gen(h.CourseRanged)...)
	report.GET("/course/:rid", h.CourseReport)
	report.GET("/course/:rid/export", h.Export(models.EntityCourse))

	report.GET("/instructor/general", gen(h.InstructorGeneral)...)
	report.GET("/instructor/ranged", gen(h.InstructorRanged)...)
	report.GET("/instructor/:rid", h.InstructorReport)
	report.GET("/instructor/:rid/export", h.Export(models.EntityInstructor))
}

// StudentGeneral godoc
// @Summary Student snapshot report
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/student/general [get]
func (h *ReportHandler) StudentGeneral(c *gin.Context) {
	h.generate(c, h.reports.StudentGeneral)
}

// StudentRanged godoc
// @Summary Student monthly report over a range
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Param start query string true "First month (YYYY-MM)"
// @Param end query string false "Last month (YYYY-MM), defaults to start"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/student/ranged [get]
func (h *ReportHandler) StudentRanged(c *gin.Context) {
	h.generate(c, h.reports.StudentRanged)
}

// CourseGeneral godoc
// @Summary Course snapshot report with status, category and difficulty breakdowns
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/course/general [get]
func (h *ReportHandler) CourseGeneral(c *gin.Context) {
	h.generate(c, h.reports.CourseGeneral)
}

// CourseRanged godoc
// @Summary Course monthly report over a range
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Param start query string true "First month (YYYY-MM)"
// @Param end query string false "Last month (YYYY-MM), defaults to start"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/course/ranged [get]
func (h *ReportHandler) CourseRanged(c *gin.Context) {
	h.generate(c, h.reports.CourseRanged)
}

// InstructorGeneral godoc
// @Summary Instructor snapshot report with leaderboard and highlights
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/instructor/general [get]
func (h *ReportHandler) InstructorGeneral(c *gin.Context) {
	h.generate(c, h.reports.InstructorGeneral)
}

// InstructorRanged godoc
// @Summary Instructor monthly report over a range
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Requesting admin ID (max 8 chars)"
// @Param start query string true "First month (YYYY-MM)"
// @Param end query string false "Last month (YYYY-MM), defaults to start"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 500 {object} response.ErrorEnvelope
// @Router /report/instructor/ranged [get]
func (h *ReportHandler) InstructorRanged(c *gin.Context) {
	h.generate(c, h.reports.InstructorRanged)
}

// StudentReport godoc
// @Summary Stored student report by ID
// @Tags Reports
// @Produce json
// @Param rid path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /report/student/{rid} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	h.fetch(c, models.EntityStudent)
}

// CourseReport godoc
// @Summary Stored course report by ID
// @Tags Reports
// @Produce json
// @Param rid path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /report/course/{rid} [get]
func (h *ReportHandler) CourseReport(c *gin.Context) {
	h.fetch(c, models.EntityCourse)
}

// InstructorReport godoc
// @Summary Stored instructor report by ID
// @Tags Reports
// @Produce json
// @Param rid path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /report/instructor/{rid} [get]
func (h *ReportHandler) InstructorReport(c *gin.Context) {
	h.fetch(c, models.EntityInstructor)
}

// List godoc
// @Summary Reports generated by an admin
// @Tags Reports
// @Produce json
// @Param admin_id query string true "Admin ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.ErrorEnvelope
// @Router /report/list [get]
func (h *ReportHandler) List(c *gin.Context) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	list, err := h.reports.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list)
}

// Export godoc
// @Summary Download a stored report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param entity path string true "student, course or instructor"
// @Param rid path string true "Report ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorEnvelope
// @Failure 404 {object} response.ErrorEnvelope
// @Router /report/{entity}/{rid}/export [get]
func (h *ReportHandler) Export(entity models.Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := h.exports.Export(c.Request.Context(), entity, c.Param("rid"), c.Query("format"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, file.Filename, file.ContentType, file.Body)
	}
}

func (h *ReportHandler) generate(c *gin.Context, fn generateFunc) {
	q, ok := bindReportQuery(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Report(c, string(res.ReportType), res.ReportID, res.Data)
}

func (h *ReportHandler) fetch(c *gin.Context, entity models.Entity) {
	res, err := h.reports.Fetch(c.Request.Context(), entity, c.Param("rid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Report(c, string(res.ReportType), res.ReportID, res.Data)
}

// bindReportQuery reads admin_id, start and end from the query string. When the caller is
// authenticated and admin_id is omitted, the token subject is used.
func bindReportQuery(c *gin.Context) (dto.ReportQuery, bool) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return q, false
	}
	q.AdminID = strings.TrimSpace(q.AdminID)
	if q.AdminID == "" {
		if claims := claimsFromContext(c); claims != nil {
			q.AdminID = claims.AdminID()
		}
	}
	return q, true
}
