package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-report-api/internal/models"
)

const courseWindowQuery = `WITH window_enrolls AS (
  SELECT e.course_id, e.progress_rate, COALESCE(c.price, 0) AS price
  FROM enroll e
  JOIN course c ON c.course_id = e.course_id
  WHERE e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
),
existing AS (
  SELECT course_id, COALESCE(price, 0) AS price
  FROM course
  WHERE creation_date < $2::date + 1
),
popular AS (
  SELECT course_id, COUNT(*) AS enrollment_count
  FROM window_enrolls
  GROUP BY course_id
  ORDER BY enrollment_count DESC, course_id
  LIMIT 1
),
completed AS (
  SELECT course_id, COUNT(*) FILTER (WHERE progress_rate = 100) AS completion_count
  FROM window_enrolls
  GROUP BY course_id
  ORDER BY completion_count DESC, course_id
  LIMIT 1
)
SELECT
  (SELECT COUNT(*) FROM existing) AS total_courses,
  (SELECT COUNT(*) FROM course WHERE creation_date >= $1 AND creation_date < $2::date + 1) AS new_course_count,
  (SELECT COUNT(*) FROM existing WHERE price = 0) AS free_course_count,
  (SELECT COUNT(*) FROM existing WHERE price > 0) AS paid_course_count,
  (SELECT COUNT(*) FROM window_enrolls) AS enroll_count,
  (SELECT COUNT(*) FROM window_enrolls WHERE price = 0) AS free_enroll_count,
  (SELECT COUNT(*) FROM window_enrolls WHERE price > 0) AS paid_enroll_count,
  COALESCE(ROUND((SELECT COUNT(*) FROM window_enrolls)::numeric / NULLIF((SELECT COUNT(*) FROM existing), 0), 2), 0) AS avg_enroll_per_course,
  COALESCE((SELECT SUM(price) FROM window_enrolls), 0) AS total_revenue,
  COALESCE((SELECT ROUND(AVG(progress_rate)::numeric, 2) FROM window_enrolls), 0) AS avg_completion_rate,
  (SELECT course_id FROM popular) AS most_popular_course_id,
  (SELECT enrollment_count FROM popular) AS most_popular_enrollment_count,
  (SELECT course_id FROM completed) AS most_completed_course_id,
  (SELECT completion_count FROM completed) AS most_completed_count`

const courseHighlightSelect = `SELECT pc.course_id, c.title, COALESCE(c.price, 0) AS price,
  CASE WHEN COALESCE(c.price, 0) = 0 THEN 'free' ELSE 'paid' END AS payment_type,
  c.creator_id AS instructor_id,
  u.first_name || ' ' || u.last_name AS instructor_name,
  pc.enrollment_count, pc.completion_count,
  ROUND(pc.completion_count * 100.0 / NULLIF(pc.enrollment_count, 0), 2) AS completion_ratio
FROM per_course pc
JOIN course c ON c.course_id = pc.course_id
LEFT JOIN "user" u ON u.id = c.creator_id`

const courseWindowHighlightQuery = `WITH per_course AS (
  SELECT e.course_id, COUNT(*) AS enrollment_count,
         COUNT(*) FILTER (WHERE e.progress_rate = 100) AS completion_count
  FROM enroll e
  WHERE e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
  GROUP BY e.course_id
)
` + courseHighlightSelect

const courseByIDsQuery = `WITH per_course AS (
  SELECT c.course_id, COUNT(e.student_id) AS enrollment_count,
         COUNT(e.student_id) FILTER (WHERE e.progress_rate = 100) AS completion_count
  FROM course c
  LEFT JOIN enroll e ON e.course_id = c.course_id
  WHERE c.course_id = ANY($1)
  GROUP BY c.course_id
)
` + courseHighlightSelect

// CourseMetricsRepository computes course aggregates from the course and enroll tables.
type CourseMetricsRepository struct {
	db *sqlx.DB
}

// NewCourseMetricsRepository constructs the repository.
func NewCourseMetricsRepository(db *sqlx.DB) *CourseMetricsRepository {
	return &CourseMetricsRepository{db: db}
}

// EarliestActivity returns the first course creation date.
func (r *CourseMetricsRepository) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return earliest(ctx, r.db, `SELECT MIN(creation_date) FROM course`)
}

// ComputeSnapshot aggregates every course and enrollment up to asOf.
func (r *CourseMetricsRepository) ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.CourseMetrics, error) {
	return r.compute(ctx, SnapshotWindow(asOf))
}

// ComputeMonth aggregates enrollments and creations inside month; course totals are cumulative.
func (r *CourseMetricsRepository) ComputeMonth(ctx context.Context, month time.Time) (*models.CourseMetrics, error) {
	return r.compute(ctx, MonthWindow(month))
}

// ComputeWindow aggregates an arbitrary span, used for the range-wide snapshot of ranged reports.
func (r *CourseMetricsRepository) ComputeWindow(ctx context.Context, w Window) (*models.CourseMetrics, error) {
	return r.compute(ctx, w)
}

func (r *CourseMetricsRepository) compute(ctx context.Context, w Window) (*models.CourseMetrics, error) {
	var m models.CourseMetrics
	if err := r.db.GetContext(ctx, &m, courseWindowQuery, w.From, w.To); err != nil {
		return nil, fmt.Errorf("compute course metrics: %w", err)
	}
	return &m, nil
}

// MostPopularCourse returns the course with most enrollments inside w, or nil.
func (r *CourseMetricsRepository) MostPopularCourse(ctx context.Context, w Window) (*models.CourseHighlight, error) {
	return r.highlight(ctx, courseWindowHighlightQuery+"\nORDER BY pc.enrollment_count DESC, pc.course_id\nLIMIT 1", w)
}

// MostCompletedCourse returns the course with most completed enrollments inside w, or nil.
func (r *CourseMetricsRepository) MostCompletedCourse(ctx context.Context, w Window) (*models.CourseHighlight, error) {
	return r.highlight(ctx, courseWindowHighlightQuery+"\nORDER BY pc.completion_count DESC, pc.course_id\nLIMIT 1", w)
}

func (r *CourseMetricsRepository) highlight(ctx context.Context, query string, w Window) (*models.CourseHighlight, error) {
	var h models.CourseHighlight
	if err := r.db.GetContext(ctx, &h, query, w.From, w.To); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("course highlight: %w", err)
	}
	return &h, nil
}

// CoursesByIDs resolves course references with all-time counts. Deleted courses are absent.
func (r *CourseMetricsRepository) CoursesByIDs(ctx context.Context, ids []string) (map[string]models.CourseHighlight, error) {
	out := make(map[string]models.CourseHighlight, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.CourseHighlight
	if err := r.db.SelectContext(ctx, &rows, courseByIDsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("courses by ids: %w", err)
	}
	for _, row := range rows {
		out[row.CourseID] = row
	}
	return out, nil
}

// StatusCounts counts courses created inside w by status.
func (r *CourseMetricsRepository) StatusCounts(ctx context.Context, w Window) ([]models.StatusCount, error) {
	const query = `SELECT COALESCE(status, 'unknown') AS status, COUNT(*) AS count
FROM course
WHERE creation_date >= $1 AND creation_date < $2::date + 1
GROUP BY 1
ORDER BY 1`
	var rows []models.StatusCount
	if err := r.db.SelectContext(ctx, &rows, query, w.From, w.To); err != nil {
		return nil, fmt.Errorf("course status counts: %w", err)
	}
	return rows, nil
}

// CategoryEnrollments totals enrollments made inside w per category.
func (r *CourseMetricsRepository) CategoryEnrollments(ctx context.Context, w Window) ([]models.CategoryEnrollment, error) {
	const query = `SELECT COALESCE(c.category, 'uncategorized') AS category, COUNT(e.student_id) AS total_enrollments
FROM course c
LEFT JOIN enroll e ON e.course_id = c.course_id AND e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
GROUP BY 1
ORDER BY total_enrollments DESC, category`
	var rows []models.CategoryEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, w.From, w.To); err != nil {
		return nil, fmt.Errorf("course category enrollments: %w", err)
	}
	return rows, nil
}

// DifficultyStats aggregates enrollments made inside w per difficulty level.
func (r *CourseMetricsRepository) DifficultyStats(ctx context.Context, w Window) ([]models.DifficultyStat, error) {
	const query = `SELECT COALESCE(c.difficulty_level, 'unknown') AS difficulty_level,
  COUNT(e.student_id) AS total_enrollments,
  ROUND(COALESCE(AVG(e.progress_rate), 0)::numeric, 2) AS avg_completion_rate
FROM course c
LEFT JOIN enroll e ON e.course_id = c.course_id AND e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
GROUP BY 1
ORDER BY 1`
	var rows []models.DifficultyStat
	if err := r.db.SelectContext(ctx, &rows, query, w.From, w.To); err != nil {
		return nil, fmt.Errorf("course difficulty stats: %w", err)
	}
	return rows, nil
}

// MonthlyCreations returns the course creation series from since onwards.
func (r *CourseMetricsRepository) MonthlyCreations(ctx context.Context, since time.Time) ([]models.MonthCount, error) {
	const query = `SELECT date_trunc('month', creation_date)::date AS month, COUNT(*) AS count
FROM course
WHERE creation_date >= $1
GROUP BY 1
ORDER BY 1`
	var rows []models.MonthCount
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("course monthly creations: %w", err)
	}
	return rows, nil
}
