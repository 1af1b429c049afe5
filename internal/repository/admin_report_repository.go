package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-report-api/internal/models"
)

const linkAdminQuery = `INSERT INTO admin_report (admin_id, report_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

// AdminReportRepository is the ledger of which admin generated which report.
type AdminReportRepository struct {
	db *sqlx.DB
}

// NewAdminReportRepository constructs the repository.
func NewAdminReportRepository(db *sqlx.DB) *AdminReportRepository {
	return &AdminReportRepository{db: db}
}

// ListForAdmin returns the parent-level reports linked to adminID, newest first.
func (r *AdminReportRepository) ListForAdmin(ctx context.Context, adminID string) ([]models.ReportListItem, error) {
	const query = `SELECT r.report_id, r.report_type, r.time_range_start, r.time_range_end, r.creation_date
FROM report r
JOIN admin_report ar ON ar.report_id = r.report_id
WHERE ar.admin_id = $1 AND r.parent_report_id IS NULL
ORDER BY r.creation_date DESC, r.report_id`
	var items []models.ReportListItem
	if err := r.db.SelectContext(ctx, &items, query, adminID); err != nil {
		return nil, fmt.Errorf("list admin reports: %w", err)
	}
	return items, nil
}

func linkAdmin(ctx context.Context, exec sqlx.ExecerContext, adminID, reportID string) error {
	if _, err := exec.ExecContext(ctx, linkAdminQuery, adminID, reportID); err != nil {
		return fmt.Errorf("link admin report: %w", err)
	}
	return nil
}
