package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-report-api/internal/models"
)

const reportColumns = `report_id, report_type, description, time_range_start, time_range_end, parent_report_id, summary, creation_date`

const (
	insertRootQuery = `INSERT INTO report (report_id, report_type, description, time_range_start, time_range_end, summary)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (report_type, time_range_start, time_range_end) WHERE parent_report_id IS NULL DO NOTHING
RETURNING report_id`
	selectRootIDQuery = `SELECT report_id FROM report
WHERE report_type = $1 AND time_range_start = $2 AND time_range_end = $3 AND parent_report_id IS NULL`
	insertChildQuery = `INSERT INTO report (report_id, report_type, description, time_range_start, time_range_end, parent_report_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (parent_report_id, time_range_start) WHERE parent_report_id IS NOT NULL DO NOTHING
RETURNING report_id`
	selectChildIDQuery = `SELECT report_id FROM report
WHERE parent_report_id = $1 AND time_range_start = $2`
)

// metricTable describes the 1:1 metrics table of an entity.
type metricTable struct {
	name    string
	columns []string
}

var metricTables = map[models.Entity]metricTable{
	models.EntityStudent:    {name: "student_report", columns: (&models.StudentMetrics{}).Columns()},
	models.EntityCourse:     {name: "course_report", columns: (&models.CourseMetrics{}).Columns()},
	models.EntityInstructor: {name: "instructor_report", columns: (&models.InstructorMetrics{}).Columns()},
}

func (t metricTable) selectList() string {
	return "report_id, " + strings.Join(t.columns, ", ")
}

func (t metricTable) insertQuery() string {
	cols := append([]string{"report_id"}, t.columns...)
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (report_id) DO NOTHING",
		t.name, strings.Join(cols, ", "), strings.Join(named, ", "))
}

func tableFor(entity models.Entity) (metricTable, error) {
	t, ok := metricTables[entity]
	if !ok {
		return metricTable{}, fmt.Errorf("unknown report entity %q", entity)
	}
	return t, nil
}

// ReportRepository is the report cache store: headers plus their metrics rows.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetByID returns a header by its identifier. Missing rows yield sql.ErrNoRows.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM report WHERE report_id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &report, nil
}

// SaveSnapshot get-or-creates a general report header, stores its metrics row when absent
// and links the admin, all in one transaction. It returns the ID that is actually stored.
func (r *ReportRepository) SaveSnapshot(ctx context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error) {
	var stored string
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		id, _, err := getOrCreate(ctx, tx,
			insertRootQuery, []interface{}{header.ID, header.Type, header.Description, header.RangeStart, header.RangeEnd, header.Summary},
			selectRootIDQuery, []interface{}{header.Type, header.RangeStart, header.RangeEnd},
		)
		if err != nil {
			return err
		}
		if err := insertMetrics(ctx, tx, id, metrics); err != nil {
			return err
		}
		if err := linkAdmin(ctx, tx, adminID, id); err != nil {
			return err
		}
		stored = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

// EnsureParent get-or-creates a ranged parent header and links the admin.
func (r *ReportRepository) EnsureParent(ctx context.Context, header *models.Report, adminID string) (string, error) {
	var stored string
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		id, _, err := getOrCreate(ctx, tx,
			insertRootQuery, []interface{}{header.ID, header.Type, header.Description, header.RangeStart, header.RangeEnd, header.Summary},
			selectRootIDQuery, []interface{}{header.Type, header.RangeStart, header.RangeEnd},
		)
		if err != nil {
			return err
		}
		if err := linkAdmin(ctx, tx, adminID, id); err != nil {
			return err
		}
		stored = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

// SaveChild get-or-creates the monthly child of header.ParentReportID, stores its metrics
// row when absent and links the admin. It returns the stored child ID.
func (r *ReportRepository) SaveChild(ctx context.Context, header *models.Report, metrics models.EntityMetrics, adminID string) (string, error) {
	if !header.IsChild() {
		return "", fmt.Errorf("save child report: missing parent id")
	}
	var stored string
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		id, _, err := getOrCreate(ctx, tx,
			insertChildQuery, []interface{}{header.ID, header.Type, header.Description, header.RangeStart, header.RangeEnd, *header.ParentReportID},
			selectChildIDQuery, []interface{}{*header.ParentReportID, header.RangeStart},
		)
		if err != nil {
			return err
		}
		if err := insertMetrics(ctx, tx, id, metrics); err != nil {
			return err
		}
		if err := linkAdmin(ctx, tx, adminID, id); err != nil {
			return err
		}
		stored = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

// ListChildren returns the monthly children of a parent ordered by month.
// Children without a metrics row are skipped so callers treat them as missing.
func (r *ReportRepository) ListChildren(ctx context.Context, parentID string, entity models.Entity) ([]models.MonthlyChildNode, error) {
	query := `SELECT ` + reportColumns + ` FROM report WHERE parent_report_id = $1 ORDER BY time_range_start`
	var headers []models.Report
	if err := r.db.SelectContext(ctx, &headers, query, parentID); err != nil {
		return nil, fmt.Errorf("list child reports: %w", err)
	}
	if len(headers) == 0 {
		return nil, nil
	}
	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	rows, err := loadMetrics(ctx, r.db, entity, ids)
	if err != nil {
		return nil, err
	}
	children := make([]models.MonthlyChildNode, 0, len(headers))
	for _, h := range headers {
		m, ok := rows[h.ID]
		if !ok {
			continue
		}
		children = append(children, models.MonthlyChildNode{Report: h, Metrics: m, ParentID: parentID})
	}
	return children, nil
}

// FindMonthMetrics returns the stored metrics of any child of reportType covering month,
// regardless of its parent. It returns nil when no such month has been computed.
func (r *ReportRepository) FindMonthMetrics(ctx context.Context, reportType models.ReportType, month time.Time) (models.EntityMetrics, error) {
	table, err := tableFor(reportType.Entity())
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT r.report_id FROM report r
JOIN %s m ON m.report_id = r.report_id
WHERE r.report_type = $1 AND r.time_range_start = $2 AND r.parent_report_id IS NOT NULL
ORDER BY r.creation_date, r.report_id
LIMIT 1`, table.name)
	var id string
	if err := r.db.GetContext(ctx, &id, query, reportType, month); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find cached month: %w", err)
	}
	rows, err := loadMetrics(ctx, r.db, reportType.Entity(), []string{id})
	if err != nil {
		return nil, err
	}
	return rows[id], nil
}

// GetMetrics returns the metrics row of a report, or nil when it is missing.
func (r *ReportRepository) GetMetrics(ctx context.Context, entity models.Entity, reportID string) (models.EntityMetrics, error) {
	rows, err := loadMetrics(ctx, r.db, entity, []string{reportID})
	if err != nil {
		return nil, err
	}
	m, ok := rows[reportID]
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (r *ReportRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit report tx: %w", err)
	}
	return nil
}

// getOrCreate runs an insert-or-do-nothing returning the new ID and falls back to
// selecting the row that won the uniqueness constraint.
func getOrCreate(ctx context.Context, q sqlx.QueryerContext, insert string, insertArgs []interface{}, lookup string, lookupArgs []interface{}) (string, bool, error) {
	var id string
	err := sqlx.GetContext(ctx, q, &id, insert, insertArgs...)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("insert report header: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, &id, lookup, lookupArgs...); err != nil {
		return "", false, fmt.Errorf("select existing report header: %w", err)
	}
	return id, false, nil
}

func insertMetrics(ctx context.Context, tx *sqlx.Tx, reportID string, metrics models.EntityMetrics) error {
	table, err := tableFor(metrics.Entity())
	if err != nil {
		return err
	}
	metrics.SetReportID(reportID)
	if _, err := tx.NamedExecContext(ctx, table.insertQuery(), metrics); err != nil {
		return fmt.Errorf("insert %s: %w", table.name, err)
	}
	return nil
}

func loadMetrics(ctx context.Context, q sqlx.QueryerContext, entity models.Entity, ids []string) (map[string]models.EntityMetrics, error) {
	table, err := tableFor(entity)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE report_id = ANY($1)`, table.selectList(), table.name)
	out := make(map[string]models.EntityMetrics, len(ids))
	switch entity {
	case models.EntityStudent:
		var rows []models.StudentMetrics
		if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
			return nil, fmt.Errorf("load %s: %w", table.name, err)
		}
		for i := range rows {
			out[rows[i].ReportID] = &rows[i]
		}
	case models.EntityCourse:
		var rows []models.CourseMetrics
		if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
			return nil, fmt.Errorf("load %s: %w", table.name, err)
		}
		for i := range rows {
			out[rows[i].ReportID] = &rows[i]
		}
	case models.EntityInstructor:
		var rows []models.InstructorMetrics
		if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
			return nil, fmt.Errorf("load %s: %w", table.name, err)
		}
		for i := range rows {
			out[rows[i].ReportID] = &rows[i]
		}
	}
	return out, nil
}
