package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-report-api/internal/models"
	appErrors "github.com/noah-isme/lms-report-api/pkg/errors"
	"github.com/noah-isme/lms-report-api/pkg/export"
	"github.com/noah-isme/lms-report-api/pkg/months"
)

type reportNodeLoader interface {
	Node(ctx context.Context, entity models.Entity, reportID string) (models.ReportNode, error)
}

// ExportFile is a rendered report download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders stored reports as CSV or PDF attachments.
type ExportService struct {
	reports reportNodeLoader
	logger  *zap.Logger
	render  func(format export.Format) export.Renderer
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportNodeLoader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{reports: reports, logger: logger, render: export.ForFormat}
}

// Export renders the report identified by reportID in the requested format.
func (s *ExportService) Export(ctx context.Context, entity models.Entity, reportID, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	node, err := s.reports.Node(ctx, entity, reportID)
	if err != nil {
		return nil, err
	}
	dataset, err := buildDataset(node)
	if err != nil {
		return nil, appErrors.Internal(err)
	}
	body, err := s.render(format).Render(dataset)
	if err != nil {
		s.logger.Error("render export failed", zap.String("report_id", reportID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Internal(err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", node.Header().Type, sanitizeFilename(reportID), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// buildDataset lays out one row per month for ranged parents and a single row otherwise.
func buildDataset(node models.ReportNode) (export.Dataset, error) {
	header := node.Header()
	dataset := export.Dataset{
		Title:    fmt.Sprintf("%s report %s", strings.ReplaceAll(string(header.Type), "_", " "), header.ID),
		Subtitle: fmt.Sprintf("%s to %s", header.RangeStart.Format(dateLayout), header.RangeEnd.Format(dateLayout)),
	}
	switch n := node.(type) {
	case models.RangedParentNode:
		if len(n.Children) == 0 {
			dataset.Headers = []string{"month"}
			return dataset, nil
		}
		dataset.Headers = append([]string{"month"}, n.Children[0].Metrics.Columns()...)
		for _, child := range n.Children {
			dataset.Rows = append(dataset.Rows, append([]string{months.Label(child.Report.RangeStart)}, child.Metrics.Values()...))
		}
	case models.SnapshotNode:
		dataset.Headers = append([]string{"report_id"}, n.Metrics.Columns()...)
		dataset.Rows = [][]string{append([]string{header.ID}, n.Metrics.Values()...)}
	case models.MonthlyChildNode:
		dataset.Headers = append([]string{"month"}, n.Metrics.Columns()...)
		dataset.Rows = [][]string{append([]string{months.Label(header.RangeStart)}, n.Metrics.Values()...)}
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report node %T", node)
	}
	return dataset, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
