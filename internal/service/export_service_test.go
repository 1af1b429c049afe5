package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-report-api/internal/dto"
	"github.com/noah-isme/lms-report-api/internal/models"
)

func TestExportRangedParentCSV(t *testing.T) {
	store := newFakeStore()
	students := &fakeStudents{registrations: map[string]int{"2024-01": 3, "2024-02": 2}}
	reports := newReportServiceForTest(t, store, students, nil, nil, nil)
	ranged, err := reports.StudentRanged(context.Background(), dto.ReportQuery{AdminID: "A1", Start: "2024-01", End: "2024-02"})
	require.NoError(t, err)

	svc := NewExportService(reports, zap.NewNop())
	file, err := svc.Export(context.Background(), models.EntityStudent, ranged.ReportID, "csv")
	require.NoError(t, err)

	assert.Equal(t, "student_ranged_"+ranged.ReportID+".csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "month,total_students,active_student_count,registration_count"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01,3,0,3,"))
	assert.True(t, strings.HasPrefix(lines[2], "2024-02,5,0,2,"))
}

func TestExportSnapshotPDF(t *testing.T) {
	reports := newReportServiceForTest(t, newFakeStore(), nil, nil, &fakeInstructors{}, nil)
	general, err := reports.InstructorGeneral(context.Background(), dto.ReportQuery{AdminID: "A1"})
	require.NoError(t, err)

	svc := NewExportService(reports, zap.NewNop())
	file, err := svc.Export(context.Background(), models.EntityInstructor, general.ReportID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	reports := newReportServiceForTest(t, newFakeStore(), nil, nil, nil, nil)
	svc := NewExportService(reports, zap.NewNop())

	_, err := svc.Export(context.Background(), models.EntityStudent, "SG000001", "xlsx")
	requireAppError(t, err, http.StatusBadRequest, `unsupported export format "xlsx"`)
}

func TestExportUnknownReport(t *testing.T) {
	reports := newReportServiceForTest(t, newFakeStore(), nil, nil, nil, nil)
	svc := NewExportService(reports, zap.NewNop())

	_, err := svc.Export(context.Background(), models.EntityCourse, "CG000404", "csv")
	requireAppError(t, err, http.StatusNotFound, "course report not found")
}

func TestBuildDatasetSnapshotRow(t *testing.T) {
	node := models.SnapshotNode{
		Report:  models.Report{ID: "SG000001", Type: models.ReportTypeStudentGeneral},
		Metrics: &models.StudentMetrics{TotalStudents: 7},
	}
	dataset, err := buildDataset(node)
	require.NoError(t, err)
	assert.Equal(t, "report_id", dataset.Headers[0])
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, []string{"SG000001", "7"}, dataset.Rows[0][:2])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
}
