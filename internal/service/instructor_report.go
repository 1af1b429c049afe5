package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/lms-report-api/internal/dto"
	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/repository"
	"github.com/noah-isme/lms-report-api/pkg/months"
)

type instructorMetricsSource interface {
	EarliestActivity(ctx context.Context) (*time.Time, error)
	ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.InstructorMetrics, error)
	ComputeMonth(ctx context.Context, month time.Time) (*models.InstructorMetrics, error)
	TopInstructors(ctx context.Context, w repository.Window, limit int) ([]models.InstructorRank, error)
	MostActive(ctx context.Context, w repository.Window) (*models.InstructorActivity, error)
	MostPopular(ctx context.Context, w repository.Window) (*models.InstructorPopularity, error)
	InstructorsByIDs(ctx context.Context, ids []string) (map[string]models.InstructorRank, error)
	MonthlyRegistrations(ctx context.Context, since time.Time) ([]models.MonthCount, error)
}

type instructorCatalog struct {
	src instructorMetricsSource
}

func (c instructorCatalog) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return c.src.EarliestActivity(ctx)
}

func (c instructorCatalog) Snapshot(ctx context.Context, asOf time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeSnapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c instructorCatalog) Month(ctx context.Context, month time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// InstructorGeneral builds the instructor snapshot report.
func (s *ReportService) InstructorGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}
	res, err := s.instructorGeneral(ctx, q.AdminID)
	return s.finish(ctx, models.ReportTypeInstructorGeneral, q.AdminID, res, err)
}

func (s *ReportService) instructorGeneral(ctx context.Context, adminID string) (*dto.ReportResult, error) {
	now := s.now()
	snap, err := s.buildSnapshot(ctx, models.EntityInstructor, adminID, now, nil)
	if err != nil {
		return nil, err
	}
	metrics, err := asInstructorMetrics(snap.metrics)
	if err != nil {
		return nil, err
	}
	w := repository.SnapshotWindow(now)
	top, err := s.instructors.TopInstructors(ctx, w, s.cfg.TopN)
	if err != nil {
		return nil, err
	}
	highlights, err := s.instructorHighlights(ctx, w)
	if err != nil {
		return nil, err
	}
	series, err := s.instructors.MonthlyRegistrations(ctx, months.FirstDay(now).AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{
		ReportType: models.ReportTypeInstructorGeneral,
		ReportID:   snap.header.ID,
		Data: dto.InstructorGeneralData{
			Range:                monthRange(snap.header.RangeStart, snap.header.RangeEnd),
			InstructorMetrics:    metrics,
			TopInstructors:       nonNilInstructors(top),
			InstructorHighlights: highlights,
			MonthlyRegistrations: seriesMap(series),
		},
	}, nil
}

// InstructorRanged builds the instructor ranged report, one child per month.
func (s *ReportService) InstructorRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	start, end, err := s.parseRange(q)
	if err != nil {
		return nil, err
	}
	res, err := s.instructorRanged(ctx, q.AdminID, start, end)
	return s.finish(ctx, models.ReportTypeInstructorRanged, q.AdminID, res, err)
}

func (s *ReportService) instructorRanged(ctx context.Context, adminID string, start, end time.Time) (*dto.ReportResult, error) {
	ranged, err := s.buildRanged(ctx, models.EntityInstructor, adminID, start, end)
	if err != nil {
		return nil, err
	}
	data, err := s.instructorRangedData(ctx, ranged.parent, ranged.children)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{ReportType: models.ReportTypeInstructorRanged, ReportID: ranged.parent.ID, Data: data}, nil
}

func (s *ReportService) instructorRangedData(ctx context.Context, parent models.Report, children []models.MonthlyChildNode) (*dto.InstructorRangedData, error) {
	stats := make([]dto.InstructorMonth, 0, len(children))
	for _, child := range children {
		m, err := asInstructorMetrics(child.Metrics)
		if err != nil {
			return nil, err
		}
		stats = append(stats, dto.InstructorMonth{Month: months.Label(child.Report.RangeStart), InstructorMetrics: m})
	}
	w := rangedWindow(parent)
	top, err := s.instructors.TopInstructors(ctx, w, s.cfg.TopN)
	if err != nil {
		return nil, err
	}
	highlights, err := s.instructorHighlights(ctx, w)
	if err != nil {
		return nil, err
	}
	return &dto.InstructorRangedData{
		ParentReportID: parent.ID,
		Range:          monthRange(parent.RangeStart, parent.RangeEnd),
		MonthlyStats:   stats,
		TopInstructors: nonNilInstructors(top),
		Highlights:     highlights,
	}, nil
}

func (s *ReportService) instructorDetail(ctx context.Context, node models.ReportNode) (interface{}, error) {
	switch n := node.(type) {
	case models.RangedParentNode:
		return s.instructorRangedData(ctx, n.Report, n.Children)
	case models.SnapshotNode:
		return s.instructorSingle(ctx, n.Report, n.Metrics)
	case models.MonthlyChildNode:
		return s.instructorSingle(ctx, n.Report, n.Metrics)
	default:
		return nil, fmt.Errorf("unsupported report node %T", node)
	}
}

func (s *ReportService) instructorSingle(ctx context.Context, header models.Report, raw models.EntityMetrics) (*dto.InstructorDetailData, error) {
	metrics, err := asInstructorMetrics(raw)
	if err != nil {
		return nil, err
	}
	ids := metrics.TopIDs()
	for _, id := range []*string{metrics.MostPopularInstructorID, metrics.MostActiveInstructorID} {
		if id != nil && *id != "" {
			ids = append(ids, *id)
		}
	}
	found, err := s.instructors.InstructorsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (interface{}, bool) {
		in, ok := found[id]
		return in, ok
	}
	series, err := s.instructors.MonthlyRegistrations(ctx, months.FirstDay(s.now()).AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	return &dto.InstructorDetailData{
		ReportHeader:          reportHeader(header),
		Metrics:               metrics,
		TopInstructors:        entityRefs(metrics.TopIDs(), lookup),
		MostPopularInstructor: optionalRef(metrics.MostPopularInstructorID, lookup),
		MostActiveInstructor:  optionalRef(metrics.MostActiveInstructorID, lookup),
		MonthlyRegistrations:  seriesMap(series),
	}, nil
}

func (s *ReportService) instructorHighlights(ctx context.Context, w repository.Window) (dto.InstructorHighlights, error) {
	active, err := s.instructors.MostActive(ctx, w)
	if err != nil {
		return dto.InstructorHighlights{}, err
	}
	popular, err := s.instructors.MostPopular(ctx, w)
	if err != nil {
		return dto.InstructorHighlights{}, err
	}
	return dto.InstructorHighlights{MostActiveInstructor: active, MostPopularInstructor: popular}, nil
}

func asInstructorMetrics(m models.EntityMetrics) (*models.InstructorMetrics, error) {
	typed, ok := m.(*models.InstructorMetrics)
	if !ok || typed == nil {
		return nil, fmt.Errorf("expected instructor metrics, got %T", m)
	}
	return typed, nil
}

func nonNilInstructors(rows []models.InstructorRank) []models.InstructorRank {
	if rows == nil {
		return []models.InstructorRank{}
	}
	return rows
}
