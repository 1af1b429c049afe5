package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/noah-isme/lms-report-api/internal/dto"
	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/repository"
	"github.com/noah-isme/lms-report-api/pkg/months"
)

// Course statuses always present in status_counts.
var requiredCourseStatuses = []string{"accepted", "rejected"}

type courseMetricsSource interface {
	EarliestActivity(ctx context.Context) (*time.Time, error)
	ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.CourseMetrics, error)
	ComputeMonth(ctx context.Context, month time.Time) (*models.CourseMetrics, error)
	ComputeWindow(ctx context.Context, w repository.Window) (*models.CourseMetrics, error)
	MostPopularCourse(ctx context.Context, w repository.Window) (*models.CourseHighlight, error)
	MostCompletedCourse(ctx context.Context, w repository.Window) (*models.CourseHighlight, error)
	CoursesByIDs(ctx context.Context, ids []string) (map[string]models.CourseHighlight, error)
	StatusCounts(ctx context.Context, w repository.Window) ([]models.StatusCount, error)
	CategoryEnrollments(ctx context.Context, w repository.Window) ([]models.CategoryEnrollment, error)
	DifficultyStats(ctx context.Context, w repository.Window) ([]models.DifficultyStat, error)
	MonthlyCreations(ctx context.Context, since time.Time) ([]models.MonthCount, error)
}

type courseCatalog struct {
	src courseMetricsSource
}

func (c courseCatalog) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return c.src.EarliestActivity(ctx)
}

func (c courseCatalog) Snapshot(ctx context.Context, asOf time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeSnapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c courseCatalog) Month(ctx context.Context, month time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CourseGeneral builds the course snapshot report with its categorical breakdowns.
func (s *ReportService) CourseGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}
	res, err := s.courseGeneral(ctx, q.AdminID)
	return s.finish(ctx, models.ReportTypeCourseGeneral, q.AdminID, res, err)
}

func (s *ReportService) courseGeneral(ctx context.Context, adminID string) (*dto.ReportResult, error) {
	now := s.now()
	w := repository.SnapshotWindow(now)
	breakdowns, err := s.courseBreakdowns(ctx, w)
	if err != nil {
		return nil, err
	}
	lastYear, err := s.courses.MonthlyCreations(ctx, months.FirstDay(now).AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	breakdowns.CoursesCreatedLastYear = seriesMap(lastYear)
	summary, err := json.Marshal(breakdowns)
	if err != nil {
		return nil, fmt.Errorf("encode course breakdowns: %w", err)
	}

	snap, err := s.buildSnapshot(ctx, models.EntityCourse, adminID, now, summary)
	if err != nil {
		return nil, err
	}
	metrics, err := asCourseMetrics(snap.metrics)
	if err != nil {
		return nil, err
	}
	highlights, err := s.courseHighlights(ctx, w)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{
		ReportType: models.ReportTypeCourseGeneral,
		ReportID:   snap.header.ID,
		Data: dto.CourseGeneralData{
			Range:            monthRange(snap.header.RangeStart, snap.header.RangeEnd),
			CourseMetrics:    metrics,
			Highlights:       highlights,
			CourseBreakdowns: breakdowns,
		},
	}, nil
}

// CourseRanged builds the course ranged report, one child per month.
func (s *ReportService) CourseRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	start, end, err := s.parseRange(q)
	if err != nil {
		return nil, err
	}
	res, err := s.courseRanged(ctx, q.AdminID, start, end)
	return s.finish(ctx, models.ReportTypeCourseRanged, q.AdminID, res, err)
}

func (s *ReportService) courseRanged(ctx context.Context, adminID string, start, end time.Time) (*dto.ReportResult, error) {
	ranged, err := s.buildRanged(ctx, models.EntityCourse, adminID, start, end)
	if err != nil {
		return nil, err
	}
	data, err := s.courseRangedData(ctx, ranged.parent, ranged.children)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{ReportType: models.ReportTypeCourseRanged, ReportID: ranged.parent.ID, Data: data}, nil
}

func (s *ReportService) courseRangedData(ctx context.Context, parent models.Report, children []models.MonthlyChildNode) (*dto.CourseRangedData, error) {
	monthly := make([]dto.CourseMonth, 0, len(children))
	for _, child := range children {
		m, err := asCourseMetrics(child.Metrics)
		if err != nil {
			return nil, err
		}
		monthly = append(monthly, dto.CourseMonth{Month: months.Label(child.Report.RangeStart), CourseMetrics: m})
	}
	w := rangedWindow(parent)
	snapshot, err := s.courses.ComputeWindow(ctx, w)
	if err != nil {
		return nil, err
	}
	highlights, err := s.courseHighlights(ctx, w)
	if err != nil {
		return nil, err
	}
	breakdowns, err := s.courseBreakdowns(ctx, w)
	if err != nil {
		return nil, err
	}
	return &dto.CourseRangedData{
		ParentReportID:   parent.ID,
		Range:            monthRange(parent.RangeStart, parent.RangeEnd),
		SnapshotMetrics:  snapshot,
		MonthlyMetrics:   monthly,
		Highlights:       highlights,
		CourseBreakdowns: breakdowns,
	}, nil
}

func (s *ReportService) courseDetail(ctx context.Context, node models.ReportNode) (interface{}, error) {
	switch n := node.(type) {
	case models.RangedParentNode:
		return s.courseRangedData(ctx, n.Report, n.Children)
	case models.SnapshotNode:
		return s.courseSingle(ctx, n.Report, n.Metrics)
	case models.MonthlyChildNode:
		return s.courseSingle(ctx, n.Report, n.Metrics)
	default:
		return nil, fmt.Errorf("unsupported report node %T", node)
	}
}

// courseSingle renders a stored metrics row. Breakdowns come from the stored summary when
// present; the last-year creation series is always live.
func (s *ReportService) courseSingle(ctx context.Context, header models.Report, raw models.EntityMetrics) (*dto.CourseDetailData, error) {
	metrics, err := asCourseMetrics(raw)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range []*string{metrics.MostPopularCourseID, metrics.MostCompletedCourseID} {
		if id != nil && *id != "" {
			ids = append(ids, *id)
		}
	}
	found, err := s.courses.CoursesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (interface{}, bool) {
		c, ok := found[id]
		return c, ok
	}

	var breakdowns *models.CourseBreakdowns
	if header.Summary.Valid && len(header.Summary.JSONText) > 0 {
		var stored models.CourseBreakdowns
		if err := json.Unmarshal(header.Summary.JSONText, &stored); err != nil {
			return nil, fmt.Errorf("decode course breakdowns: %w", err)
		}
		breakdowns = &stored
	}

	lastYear, err := s.courses.MonthlyCreations(ctx, months.FirstDay(s.now()).AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	return &dto.CourseDetailData{
		ReportHeader:           reportHeader(header),
		Metrics:                metrics,
		MostPopularCourse:      optionalRef(metrics.MostPopularCourseID, lookup),
		MostCompletedCourse:    optionalRef(metrics.MostCompletedCourseID, lookup),
		Breakdowns:             breakdowns,
		CoursesCreatedLastYear: seriesMap(lastYear),
	}, nil
}

func (s *ReportService) courseHighlights(ctx context.Context, w repository.Window) (dto.CourseHighlights, error) {
	popular, err := s.courses.MostPopularCourse(ctx, w)
	if err != nil {
		return dto.CourseHighlights{}, err
	}
	completed, err := s.courses.MostCompletedCourse(ctx, w)
	if err != nil {
		return dto.CourseHighlights{}, err
	}
	return dto.CourseHighlights{MostPopularCourse: popular, MostCompletedCourse: completed}, nil
}

// courseBreakdowns loads the categorical tables for w, served from the payload cache when enabled.
func (s *ReportService) courseBreakdowns(ctx context.Context, w repository.Window) (models.CourseBreakdowns, error) {
	key := s.cache.Key("course", "breakdowns", w.From.Format(dateLayout), w.To.Format(dateLayout))
	return readThrough(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (models.CourseBreakdowns, error) {
		statuses, err := s.courses.StatusCounts(ctx, w)
		if err != nil {
			return models.CourseBreakdowns{}, err
		}
		categories, err := s.courses.CategoryEnrollments(ctx, w)
		if err != nil {
			return models.CourseBreakdowns{}, err
		}
		difficulties, err := s.courses.DifficultyStats(ctx, w)
		if err != nil {
			return models.CourseBreakdowns{}, err
		}

		statusCounts := make(map[string]int, len(statuses)+len(requiredCourseStatuses))
		for _, status := range requiredCourseStatuses {
			statusCounts[status] = 0
		}
		for _, sc := range statuses {
			statusCounts[sc.Status] = sc.Count
		}
		if categories == nil {
			categories = []models.CategoryEnrollment{}
		}
		if difficulties == nil {
			difficulties = []models.DifficultyStat{}
		}
		return models.CourseBreakdowns{
			StatusCounts:        statusCounts,
			CategoryEnrollments: categories,
			DifficultyStats:     difficulties,
		}, nil
	})
}

func asCourseMetrics(m models.EntityMetrics) (*models.CourseMetrics, error) {
	typed, ok := m.(*models.CourseMetrics)
	if !ok || typed == nil {
		return nil, fmt.Errorf("expected course metrics, got %T", m)
	}
	return typed, nil
}
