package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-report-api/internal/models"
)

const studentWindowQuery = `WITH window_students AS (
  SELECT s.id, s.major, s.account_status, COALESCE(s.certificate_count, 0) AS certificate_count, u.birth_date
  FROM student s
  JOIN "user" u ON u.id = s.id
  WHERE u.registration_date >= $1 AND u.registration_date < $2::date + 1
),
window_enrolls AS (
  SELECT ws.id, COUNT(e.course_id) AS enroll_cnt, AVG(e.progress_rate) AS avg_progress
  FROM window_students ws
  LEFT JOIN enroll e ON e.student_id = ws.id AND e.enroll_date >= $1 AND e.enroll_date < $2::date + 1
  GROUP BY ws.id
),
major AS (
  SELECT major, COUNT(*) AS major_count
  FROM window_students
  WHERE major IS NOT NULL
  GROUP BY major
  ORDER BY major_count DESC, major
  LIMIT 1
),
ages AS (
  SELECT DATE_PART('year', AGE($2::date, birth_date)) AS age
  FROM window_students
  WHERE birth_date IS NOT NULL
)
SELECT
  (SELECT COUNT(*) FROM student s JOIN "user" u ON u.id = s.id WHERE u.registration_date < $2::date + 1) AS total_students,
  (SELECT COUNT(*) FROM window_students WHERE account_status = 'active') AS active_student_count,
  (SELECT COUNT(*) FROM window_students) AS registration_count,
  COALESCE((SELECT ROUND(AVG(enroll_cnt)::numeric, 2) FROM window_enrolls), 0) AS avg_enrollments_per_student,
  COALESCE((SELECT ROUND(AVG(certificate_count)::numeric, 2) FROM window_students), 0) AS avg_certificate_per_student,
  COALESCE((SELECT ROUND(AVG(avg_progress)::numeric, 2) FROM window_enrolls), 0) AS avg_completion_rate,
  (SELECT major FROM major) AS most_common_major,
  COALESCE((SELECT major_count FROM major), 0) AS most_common_major_count,
  (SELECT ROUND(AVG(age)::numeric, 2) FROM ages) AS avg_age,
  (SELECT MIN(age)::int FROM ages) AS youngest_age,
  (SELECT MAX(age)::int FROM ages) AS oldest_age`

// studentScoreSelect ranks by certificates x2 + enrollments x0.5 + average progress x0.1.
const studentScoreSelect = `SELECT st.id, u.first_name || ' ' || u.last_name AS full_name, s.major,
  ROUND(st.certificate_count * 2 + st.enroll_cnt * 0.5 + st.avg_progress * 0.1, 2) AS achievement_score
FROM stats st
JOIN student s ON s.id = st.id
JOIN "user" u ON u.id = st.id`

const studentTopQuery = `WITH stats AS (
  SELECT s.id, COALESCE(s.certificate_count, 0) AS certificate_count,
         COUNT(e.course_id) AS enroll_cnt,
         COALESCE(ROUND(AVG(e.progress_rate)::numeric, 2), 0) AS avg_progress
  FROM student s
  JOIN "user" u ON u.id = s.id
  LEFT JOIN enroll e ON e.student_id = s.id
  WHERE u.registration_date >= $1 AND u.registration_date < $2::date + 1
  GROUP BY s.id, s.certificate_count
)
` + studentScoreSelect + `
ORDER BY achievement_score DESC, st.id
LIMIT $3`

const studentByIDsQuery = `WITH stats AS (
  SELECT s.id, COALESCE(s.certificate_count, 0) AS certificate_count,
         COUNT(e.course_id) AS enroll_cnt,
         COALESCE(ROUND(AVG(e.progress_rate)::numeric, 2), 0) AS avg_progress
  FROM student s
  LEFT JOIN enroll e ON e.student_id = s.id
  WHERE s.id = ANY($1)
  GROUP BY s.id, s.certificate_count
)
` + studentScoreSelect

// StudentMetricsRepository computes student aggregates from the user, student and enroll tables.
type StudentMetricsRepository struct {
	db *sqlx.DB
}

// NewStudentMetricsRepository constructs the repository.
func NewStudentMetricsRepository(db *sqlx.DB) *StudentMetricsRepository {
	return &StudentMetricsRepository{db: db}
}

// EarliestActivity returns the first student registration date.
func (r *StudentMetricsRepository) EarliestActivity(ctx context.Context) (*time.Time, error) {
	return earliest(ctx, r.db, `SELECT MIN(u.registration_date) FROM "user" u JOIN student s ON s.id = u.id`)
}

// ComputeSnapshot aggregates every student registered up to asOf.
func (r *StudentMetricsRepository) ComputeSnapshot(ctx context.Context, asOf time.Time) (*models.StudentMetrics, error) {
	return r.compute(ctx, SnapshotWindow(asOf))
}

// ComputeMonth aggregates students registered in month; total_students is cumulative to its last day.
func (r *StudentMetricsRepository) ComputeMonth(ctx context.Context, month time.Time) (*models.StudentMetrics, error) {
	return r.compute(ctx, MonthWindow(month))
}

func (r *StudentMetricsRepository) compute(ctx context.Context, w Window) (*models.StudentMetrics, error) {
	var m models.StudentMetrics
	if err := r.db.GetContext(ctx, &m, studentWindowQuery, w.From, w.To); err != nil {
		return nil, fmt.Errorf("compute student metrics: %w", err)
	}
	top, err := r.TopStudents(ctx, w, storedTopN)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(top))
	for i, s := range top {
		ids[i] = s.ID
	}
	m.SetTopIDs(ids)
	return &m, nil
}

// TopStudents ranks students registered inside w by achievement score.
func (r *StudentMetricsRepository) TopStudents(ctx context.Context, w Window, limit int) ([]models.StudentRank, error) {
	if limit <= 0 {
		limit = storedTopN
	}
	var rows []models.StudentRank
	if err := r.db.SelectContext(ctx, &rows, studentTopQuery, w.From, w.To, limit); err != nil {
		return nil, fmt.Errorf("top students: %w", err)
	}
	return rows, nil
}

// StudentsByIDs resolves leaderboard references. Deleted students are absent from the map.
func (r *StudentMetricsRepository) StudentsByIDs(ctx context.Context, ids []string) (map[string]models.StudentRank, error) {
	out := make(map[string]models.StudentRank, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.StudentRank
	if err := r.db.SelectContext(ctx, &rows, studentByIDsQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("students by ids: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// MonthlyRegistrations returns the full student registration series.
func (r *StudentMetricsRepository) MonthlyRegistrations(ctx context.Context) ([]models.MonthCount, error) {
	const query = `SELECT date_trunc('month', u.registration_date)::date AS month, COUNT(*) AS count
FROM "user" u
JOIN student s ON s.id = u.id
WHERE u.registration_date IS NOT NULL
GROUP BY 1
ORDER BY 1`
	var rows []models.MonthCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("student monthly registrations: %w", err)
	}
	return rows, nil
}
