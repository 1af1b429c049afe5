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

const instructorWindowQuery = `WITH registered AS (
  SELECT i.id, COALESCE(i.course_count, 0) AS course_count, u.birth_date, u.registration_date
  FROM instructor i
  JOIN "user" u ON u.id = i.id
  WHERE u.registration_date < $2::date + 1
),
ages AS (
  SELECT DATE_PART('year', AGE($2::date, birth_date)) AS age
  FROM registered
  WHERE birth_date IS NOT NULL
)
SELECT
  (SELECT COUNT(*) FROM registered) AS total_instructors,
  (SELECT COUNT(*) FROM registered WHERE registration_date >= $1) AS registration_count,
  (SELECT COUNT(DISTINCT creator_id) FROM course WHERE COALESCE(price, 0) = 0 AND creation_date < $2::date + 1) AS instructors_with_free_course,
  (SELECT COUNT(DISTINCT creator_id) FROM course WHERE price > 0 AND creation_date < $2::date + 1) AS instructors_with_paid_course,
  COALESCE((SELECT ROUND(AVG(course_count)::numeric, 2) FROM registered), 0) AS avg_courses_per_instructor,
  (SELECT ROUND(AVG(age)::numeric, 2) FROM ages) AS avg_age,
  (SELECT MIN(age)::int FROM ages) AS youngest_age,
  (SELECT MAX(age)::int FROM ages) AS oldest_age`

const instructorTopQuery = `SELECT i.id, u.first_name || ' ' || u.last_name AS full_name, i.i_rating AS rating
FROM instructor i
JOIN "user" u ON u.id = i.id
WHERE u.registration_date >= $1 AND u.registration_date < $2::date + 1
ORDER BY i.i_rating DESC NULLS LAST, i.id
LIMIT $3`

const instructorByIDsQuery = `SELECT i.id, u.first_name || ' ' || u.last_name AS full_name, i.i_rating AS rating
FROM instructor i
JOIN "user" u ON u.id = i.id
WHERE i.id = ANY($1)`

const instructorMostActiveQuery = `SELECT c.creator_id AS id, u.first_name || ' ' || u.last_name AS full_name, COUNT(*) AS total_courses
FROM course c
JOIN "user" u ON u.id = c.creator_id
WHERE c.creation_date >= $1 AND c.creation_date < $2::date + 1
GROUP BY c.creator_id, u.first_name, u.last_name
ORDER BY total_courses DESC, c.creator_id
LIMIT 1`

const instructorMostPopularQuery = `SELECT c.creator_id AS id, u.first_name || ' ' || u.last_name AS full_name, COUNT(e.student_id) AS total_enrollments
FROM enroll e
JOIN course c ON c.course_id = e.course_id
JOIN "user" u ON u.id = c.creator_id
WHERE e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
GROUP BY c.creator_id, u.first_name, u.last_name
ORDER BY total_enrollments DESC, c.creator_id
LIMIT 1`

// InstructorMetricsRepository computes instructor aggregates from the user, instructor, course and enroll tables.
type InstructorMetricsRepository struct {
	db *sqlx.DB
}

// NewInstructorMetricsRepository constructs the repository.
func NewInstructorMetricsRepository(db *sqlx.DB) *InstructorMetricsRepository {
	return &InstructorMetricsRepository{db: db}
}

// EarliestActivity returns the first instructor registration date.
func (r *InstructorMetricsRepository) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return earliest(ctx, r.db, `SELECT MIN(u.registration_date) FROM "user" u JOIN instructor i ON i.id = u.id`)
}

// ComputeSnapshot aggregates every instructor registered up to asOf.
func (r *InstructorMetricsRepository) ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.InstructorMetrics, error) {
	return r.compute(ctx, SnapshotWindow(asOf))
}

// ComputeMonth reports registrations inside month; totals and ages are as of its last day.
func (r *InstructorMetricsRepository) ComputeMonth(ctx context.Context, month time.Time) (*models.InstructorMetrics, error) {
	return r.compute(ctx, MonthWindow(month))
}

func (r *InstructorMetricsRepository) compute(ctx context.Context, w Window) (*models.InstructorMetrics, error) {
	var m models.InstructorMetrics
	if err := r.db.GetContext(ctx, &m, instructorWindowQuery, w.From, w.To); err != nil {
		return nil, fmt.Errorf("compute instructor metrics: %w", err)
	}
	top, err := r.TopInstructors(ctx, w, storedTopN)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(top))
	for i, t := range top {
		ids[i] = t.ID
	}
	m.SetTopIDs(ids)

	active, err := r.MostActive(ctx, w)
	if err != nil {
		return nil, err
	}
	if active != nil {
		m.MostActiveInstructorID = &active.ID
	}
	popular, err := r.MostPopular(ctx, w)
	if err != nil {
		return nil, err
	}
	if popular != nil {
		m.MostPopularInstructorID = &popular.ID
	}
	return &m, nil
}

// TopInstructors ranks instructors registered inside w by rating.
func (r *InstructorMetricsRepository) TopInstructors(ctx context.Context, w Window, limit int) ([]models.InstructorRank, error) {
	if limit <= 0 {
		limit = storedTopN
	}
	var rows []models.InstructorRank
	if err := r.db.SelectContext(ctx, &rows, instructorTopQuery, w.From, w.To, limit); err != nil {
		return nil, fmt.Errorf("top instructors: %w", err)
	}
	return rows, nil
}

// MostActive returns the instructor who created most courses inside w, or nil.
func (r *InstructorMetricsRepository) MostActive(ctx context.Context, w Window) (*models.InstructorActivity, error) {
	var row models.InstructorActivity
	if err := r.db.GetContext(ctx, &row, instructorMostActiveQuery, w.From, w.To); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("most active instructor: %w", err)
	}
	return &row, nil
}

// MostPopular returns the instructor whose courses gained most enrollments inside w, or nil.
func (r *InstructorMetricsRepository) MostPopular(ctx context.Context, w Window) (*models.InstructorPopularity, error) {
	var row models.InstructorPopularity
	if err := r.db.GetContext(ctx, &row, instructorMostPopularQuery, w.From, w.To); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("most popular instructor: %w", err)
	}
	return &row, nil
}

// InstructorsByIDs resolves instructor references. Deleted instructors are absent from the map.
func (r *InstructorMetricsRepository) InstructorsByIDs(ctx context.Context, ids []string) (map[string]models.InstructorRank, error) {
	out := make(map[string]models.InstructorRank, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.InstructorRank
	if err := r.db.SelectContext(ctx, &rows, instructorByIDsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("instructors by ids: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// MonthlyRegistrations returns the instructor registration series from since onwards.
func (r *InstructorMetricsRepository) MonthlyRegistrations(ctx context.Context, since time.Time) ([]models.MonthCount, error) {
	const query = `SELECT date_trunc('month', u.registration_date)::date AS month, COUNT(*) AS count
FROM "user" u
JOIN instructor i ON i.id = u.id
WHERE u.registration_date >= $1
GROUP BY 1
ORDER BY 1`
	var rows []models.MonthCount
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("instructor monthly registrations: %w", err)
	}
	return rows, nil
}
