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

type studentMetricsSource interface {
	EarliestActivity(ctx context.Context) (*time.Time, error)
	ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.StudentMetrics, error)
	ComputeMonth(ctx context.Context, month time.Time) (*models.StudentMetrics, error)
	TopStudents(ctx context.Context, w repository.Window, limit int) ([]models.StudentRank, error)
	StudentsByIDs(ctx context.Context, ids []string) (map[string]models.StudentRank, error)
	MonthlyRegistrations(ctx context.Context) ([]models.MonthCount, error)
}

type studentCatalog struct {
	src studentMetricsSource
}

func (c studentCatalog) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return c.src.EarliestActivity(ctx)
}

func (c studentCatalog) Snapshot(ctx context.Context, asOf time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeSnapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c studentCatalog) Month(ctx context.Context, month time.Time) (models.EntityMetrics, error) {
	m, err := c.src.ComputeMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// StudentGeneral builds the student snapshot report.
func (s *ReportService) StudentGeneral(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	if err := s.validateQuery(q); err != nil {
		return nil, err
	}
	res, err := s.studentGeneral(ctx, q.AdminID)
	return s.finish(ctx, models.ReportTypeStudentGeneral, q.AdminID, res, err)
}

func (s *ReportService) studentGeneral(ctx context.Context, adminID string) (*dto.ReportResult, error) {
	now := s.now()
	snap, err := s.buildSnapshot(ctx, models.EntityStudent, adminID, now, nil)
	if err != nil {
		return nil, err
	}
	metrics, err := asStudentMetrics(snap.metrics)
	if err != nil {
		return nil, err
	}
	top, err := s.students.TopStudents(ctx, repository.SnapshotWindow(now), s.cfg.TopN)
	if err != nil {
		return nil, err
	}
	series, err := s.students.MonthlyRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{
		ReportType: models.ReportTypeStudentGeneral,
		ReportID:   snap.header.ID,
		Data: dto.StudentGeneralData{
			Range:                monthRange(snap.header.RangeStart, snap.header.RangeEnd),
			StudentMetrics:       metrics,
			MonthlyRegistrations: seriesMap(series),
			TopStudents:          nonNilStudents(top),
		},
	}, nil
}

// StudentRanged builds the student ranged report, one child per month.
func (s *ReportService) StudentRanged(ctx context.Context, q dto.ReportQuery) (*dto.ReportResult, error) {
	start, end, err := s.parseRange(q)
	if err != nil {
		return nil, err
	}
	res, err := s.studentRanged(ctx, q.AdminID, start, end)
	return s.finish(ctx, models.ReportTypeStudentRanged, q.AdminID, res, err)
}

func (s *ReportService) studentRanged(ctx context.Context, adminID string, start, end time.Time) (*dto.ReportResult, error) {
	ranged, err := s.buildRanged(ctx, models.EntityStudent, adminID, start, end)
	if err != nil {
		return nil, err
	}
	data, err := s.studentRangedData(ctx, ranged.parent, ranged.children, false)
	if err != nil {
		return nil, err
	}
	return &dto.ReportResult{ReportType: models.ReportTypeStudentRanged, ReportID: ranged.parent.ID, Data: data}, nil
}

func (s *ReportService) studentRangedData(ctx context.Context, parent models.Report, children []models.MonthlyChildNode, withSummary bool) (*dto.StudentRangedData, error) {
	stats := make([]dto.StudentMonth, 0, len(children))
	var last *models.StudentMetrics
	for _, child := range children {
		m, err := asStudentMetrics(child.Metrics)
		if err != nil {
			return nil, err
		}
		stats = append(stats, dto.StudentMonth{Month: months.Label(child.Report.RangeStart), StudentMetrics: m})
		last = m
	}
	top, err := s.students.TopStudents(ctx, rangedWindow(parent), s.cfg.TopN)
	if err != nil {
		return nil, err
	}
	data := &dto.StudentRangedData{
		ParentReportID: parent.ID,
		Range:          monthRange(parent.RangeStart, parent.RangeEnd),
		MonthlyStats:   stats,
		TopStudents:    nonNilStudents(top),
	}
	if withSummary {
		data.Summary = last
	}
	return data, nil
}

func (s *ReportService) studentDetail(ctx context.Context, node models.ReportNode) (interface{}, error) {
	switch n := node.(type) {
	case models.RangedParentNode:
		return s.studentRangedData(ctx, n.Report, n.Children, true)
	case models.SnapshotNode:
		return s.studentSingle(ctx, n.Report, n.Metrics)
	case models.MonthlyChildNode:
		return s.studentSingle(ctx, n.Report, n.Metrics)
	default:
		return nil, fmt.Errorf("unsupported report node %T", node)
	}
}

// studentSingle renders a stored metrics row with live leaderboard details and a live
// registration series next to the stored scalars.
func (s *ReportService) studentSingle(ctx context.Context, header models.Report, raw models.EntityMetrics) (*dto.StudentDetailData, error) {
	metrics, err := asStudentMetrics(raw)
	if err != nil {
		return nil, err
	}
	found, err := s.students.StudentsByIDs(ctx, metrics.TopIDs())
	if err != nil {
		return nil, err
	}
	series, err := s.students.MonthlyRegistrations(ctx)
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (interface{}, bool) {
		st, ok := found[id]
		return st, ok
	}
	return &dto.StudentDetailData{
		ReportHeader:         reportHeader(header),
		Metrics:              metrics,
		TopStudents:          entityRefs(metrics.TopIDs(), lookup),
		MonthlyRegistrations: seriesMap(series),
	}, nil
}

func asStudentMetrics(m models.EntityMetrics) (*models.StudentMetrics, error) {
	typed, ok := m.(*models.StudentMetrics)
	if !ok || typed == nil {
		return nil, fmt.Errorf("expected student metrics, got %T", m)
	}
	return typed, nil
}

func nonNilStudents(rows []models.StudentRank) []models.StudentRank {
	if rows == nil {
		return []models.StudentRank{}
	}
	return rows
}
