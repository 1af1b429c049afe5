package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/lms-report-api/internal/models"
	"github.com/noah-isme/lms-report-api/internal/repository"
	"github.com/noah-isme/lms-report-api/pkg/months"
)

// fakeStore mimics the report cache store including its uniqueness rules.
type fakeStore struct {
	mu      sync.Mutex
	reports map[string]models.Report
	metrics map[string]models.EntityMetrics
	links   map[string]map[string]bool
	calls   int
	writes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports: make(map[string]models.Report),
		metrics: make(map[string]models.EntityMetrics),
		links:   make(map[string]map[string]bool),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	r, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("get report %s: %w", id, sql.ErrNoRows)
	}
	return &r, nil
}

func (f *fakeStore) SaveSnapshot(_ context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.writes++
	id := f.rootID(header)
	f.putMetrics(id, metrics)
	f.link(adminID, id)
	return id, nil
}

func (f *fakeStore) EnsureParent(_ context.Context, header *models.Report, adminID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.writes++
	id := f.rootID(header)
	f.link(adminID, id)
	return id, nil
}

func (f *fakeStore) SaveChild(_ context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.writes++
	for _, r := range f.sorted() {
		if r.IsChild() && *r.ParentReportID == *header.ParentReportID && r.RangeStart.Equal(header.RangeStart) {
			f.putMetrics(r.ID, metrics)
			f.link(adminID, r.ID)
			return r.ID, nil
		}
	}
	stored := *header
	stored.CreatedAt = time.Now()
	f.reports[stored.ID] = stored
	f.putMetrics(stored.ID, metrics)
	f.link(adminID, stored.ID)
	return stored.ID, nil
}

func (f *fakeStore) ListChildren(_ context.Context, parentID string, _ models.Entity) ([]models.MonthlyChildNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []models.MonthlyChildNode
	for _, r := range f.sorted() {
		if !r.IsChild() || *r.ParentReportID != parentID {
			continue
		}
		m, ok := f.metrics[r.ID]
		if !ok {
			continue
		}
		out = append(out, models.MonthlyChildNode{Report: r, Metrics: m, ParentID: parentID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Report.RangeStart.Before(out[j].Report.RangeStart) })
	return out, nil
}

func (f *fakeStore) FindMonthMetrics(_ context.Context, reportType models.ReportType, month time.Time) (models.EntityMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, r := range f.sorted() {
		if r.IsChild() && r.Type == reportType && r.RangeStart.Equal(month) {
			if m, ok := f.metrics[r.ID]; ok {
				return cloneMetrics(m), nil
			}
		}
	}
	return nil, nil
}

func (f *fakeStore) GetMetrics(_ context.Context, _ models.Entity, reportID string) (models.EntityMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	m, ok := f.metrics[reportID]
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (f *fakeStore) ListForAdmin(_ context.Context, adminID string) ([]models.ReportListItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []models.ReportListItem
	for _, r := range f.sorted() {
		if r.IsChild() || !f.links[adminID][r.ID] {
			continue
		}
		out = append(out, models.ReportListItem{
			ReportID: r.ID, ReportType: r.Type,
			TimeRangeStart: r.RangeStart, TimeRangeEnd: r.RangeEnd, GeneratedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (f *fakeStore) rootID(header *models.Report) string {
	for _, r := range f.sorted() {
		if !r.IsChild() && r.Type == header.Type && r.RangeStart.Equal(header.RangeStart) && r.RangeEnd.Equal(header.RangeEnd) {
			return r.ID
		}
	}
	stored := *header
	stored.CreatedAt = time.Now()
	f.reports[stored.ID] = stored
	return stored.ID
}

func (f *fakeStore) putMetrics(id string, m models.EntityMetrics) {
	if _, ok := f.metrics[id]; ok {
		return
	}
	m.SetReportID(id)
	f.metrics[id] = m
}

func (f *fakeStore) link(adminID, reportID string) {
	if f.links[adminID] == nil {
		f.links[adminID] = make(map[string]bool)
	}
	f.links[adminID][reportID] = true
}

func (f *fakeStore) sorted() []models.Report {
	out := make([]models.Report, 0, len(f.reports))
	for _, r := range f.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) roots(reportType models.ReportType) int {
	n := 0
	for _, r := range f.reports {
		if !r.IsChild() && r.Type == reportType {
			n++
		}
	}
	return n
}

func (f *fakeStore) children(parentID string) int {
	n := 0
	for _, r := range f.reports {
		if r.IsChild() && *r.ParentReportID == parentID {
			n++
		}
	}
	return n
}

// seedChild stores a monthly child under parentID carrying the given metrics.
func (f *fakeStore) seedChild(parentID, childID string, reportType models.ReportType, month time.Time, m models.EntityMetrics) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[parentID]; !ok {
		f.reports[parentID] = models.Report{ID: parentID, Type: reportType, RangeStart: months.FirstDay(month), RangeEnd: months.LastDay(month)}
	}
	pid := parentID
	f.reports[childID] = models.Report{ID: childID, Type: reportType, RangeStart: months.FirstDay(month), RangeEnd: months.LastDay(month), ParentReportID: &pid}
	m.SetReportID(childID)
	f.metrics[childID] = m
}

func cloneMetrics(m models.EntityMetrics) models.EntityMetrics {
	switch v := m.(type) {
	case *models.StudentMetrics:
		c := *v
		return &c
	case *models.CourseMetrics:
		c := *v
		return &c
	case *models.InstructorMetrics:
		c := *v
		return &c
	}
	return m
}

// fakeStudents derives month metrics from a registration-per-month table.
type fakeStudents struct {
	earliest      *time.Time
	registrations map[string]int
	top           []models.StudentRank
	known         map[string]models.StudentRank
	series        []models.MonthCount
	monthErr      error
	monthCalls    int
	snapshotCalls int
}

func (f *fakeStudents) EarliestActivity(context.Context) (*time.Time, error) {
	return f.earliest, nil
}

func (f *fakeStudents) ComputeSnapshot(context.Context, time.Time) (*models.StudentMetrics, error) {
	f.snapshotCalls++
	total := 0
	for _, n := range f.registrations {
		total += n
	}
	m := &models.StudentMetrics{TotalStudents: total, RegistrationCount: total}
	ids := make([]string, 0, len(f.top))
	for _, t := range f.top {
		ids = append(ids, t.ID)
	}
	m.SetTopIDs(ids)
	return m, nil
}

func (f *fakeStudents) ComputeMonth(_ context.Context, month time.Time) (*models.StudentMetrics, error) {
	f.monthCalls++
	if f.monthErr != nil {
		return nil, f.monthErr
	}
	label := months.Label(month)
	total := 0
	for l, n := range f.registrations {
		if l <= label {
			total += n
		}
	}
	return &models.StudentMetrics{TotalStudents: total, RegistrationCount: f.registrations[label]}, nil
}

func (f *fakeStudents) TopStudents(context.Context, repository.Window, int) ([]models.StudentRank, error) {
	return f.top, nil
}

func (f *fakeStudents) StudentsByIDs(_ context.Context, ids []string) (map[string]models.StudentRank, error) {
	out := make(map[string]models.StudentRank)
	for _, id := range ids {
		if s, ok := f.known[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *fakeStudents) MonthlyRegistrations(context.Context) ([]models.MonthCount, error) {
	return f.series, nil
}

type fakeCourses struct {
	statuses   []models.StatusCount
	categories []models.CategoryEnrollment
	popular    *models.CourseHighlight
	known      map[string]models.CourseHighlight
	statusHits int
}

func (f *fakeCourses) EarliestActivity(context.Context) (*time.Time, error) {
	t := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	return &t, nil
}

func (f *fakeCourses) ComputeSnapshot(context.Context, time.Time) (*models.CourseMetrics, error) {
	id := "C1"
	return &models.CourseMetrics{TotalCourses: 4, MostPopularCourseID: &id}, nil
}

func (f *fakeCourses) ComputeMonth(context.Context, time.Time) (*models.CourseMetrics, error) {
	return &models.CourseMetrics{TotalCourses: 4, NewCourseCount: 1}, nil
}

func (f *fakeCourses) ComputeWindow(context.Context, repository.Window) (*models.CourseMetrics, error) {
	return &models.CourseMetrics{TotalCourses: 4, EnrollCount: 9}, nil
}

func (f *fakeCourses) MostPopularCourse(context.Context, repository.Window) (*models.CourseHighlight, error) {
	return f.popular, nil
}

func (f *fakeCourses) MostCompletedCourse(context.Context, repository.Window) (*models.CourseHighlight, error) {
	return nil, nil
}

func (f *fakeCourses) CoursesByIDs(_ context.Context, ids []string) (map[string]models.CourseHighlight, error) {
	out := make(map[string]models.CourseHighlight)
	for _, id := range ids {
		if c, ok := f.known[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (f *fakeCourses) StatusCounts(context.Context, repository.Window) ([]models.StatusCount, error) {
	f.statusHits++
	return f.statuses, nil
}

func (f *fakeCourses) CategoryEnrollments(context.Context, repository.Window) ([]models.CategoryEnrollment, error) {
	return f.categories, nil
}

func (f *fakeCourses) DifficultyStats(context.Context, repository.Window) ([]models.DifficultyStat, error) {
	return nil, nil
}

func (f *fakeCourses) MonthlyCreations(context.Context, time.Time) ([]models.MonthCount, error) {
	return []models.MonthCount{{Month: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Count: 2}}, nil
}

type fakeInstructors struct {
	top    []models.InstructorRank
	known  map[string]models.InstructorRank
	active *models.InstructorActivity
}

func (f *fakeInstructors) EarliestActivity(context.Context) (*time.Time, error) {
	return nil, nil
}

func (f *fakeInstructors) ComputeSnapshot(context.Context, time.Time) (*models.InstructorMetrics, error) {
	m := &models.InstructorMetrics{TotalInstructors: 2}
	m.SetTopIDs([]string{"I1", "I9"})
	return m, nil
}

func (f *fakeInstructors) ComputeMonth(context.Context, time.Time) (*models.InstructorMetrics, error) {
	return &models.InstructorMetrics{TotalInstructors: 2, RegistrationCount: 1}, nil
}

func (f *fakeInstructors) TopInstructors(context.Context, repository.Window, int) ([]models.InstructorRank, error) {
	return f.top, nil
}

func (f *fakeInstructors) MostActive(context.Context, repository.Window) (*models.InstructorActivity, error) {
	return f.active, nil
}

func (f *fakeInstructors) MostPopular(context.Context, repository.Window) (*models.InstructorPopularity, error) {
	return nil, nil
}

func (f *fakeInstructors) InstructorsByIDs(_ context.Context, ids []string) (map[string]models.InstructorRank, error) {
	out := make(map[string]models.InstructorRank)
	for _, id := range ids {
		if in, ok := f.known[id]; ok {
			out[id] = in
		}
	}
	return out, nil
}

func (f *fakeInstructors) MonthlyRegistrations(context.Context, time.Time) ([]models.MonthCount, error) {
	return nil, nil
}
