//go:build integration

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-report-api/internal/repository"
	"github.com/noah-isme/lms-report-api/internal/service"
	"github.com/noah-isme/lms-report-api/migrations"
)

const collaboratorSchema = `
CREATE TABLE "user" (
  id VARCHAR(8) PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  birth_date DATE NULL,
  registration_date TIMESTAMP NULL
);
CREATE TABLE student (
  id VARCHAR(8) PRIMARY KEY REFERENCES "user" (id),
  major TEXT NULL,
  account_status TEXT NULL,
  certificate_count INTEGER NULL
);
CREATE TABLE instructor (
  id VARCHAR(8) PRIMARY KEY REFERENCES "user" (id),
  course_count INTEGER NULL,
  i_rating NUMERIC(3, 2) NULL
);
CREATE TABLE course (
  course_id VARCHAR(8) PRIMARY KEY,
  title TEXT NOT NULL,
  price NUMERIC(10, 2) NULL,
  creator_id VARCHAR(8) NULL REFERENCES instructor (id),
  creation_date TIMESTAMP NOT NULL,
  status TEXT NULL,
  category TEXT NULL,
  difficulty_level TEXT NULL
);
CREATE TABLE enroll (
  student_id VARCHAR(8) REFERENCES student (id),
  course_id VARCHAR(8) REFERENCES course (course_id),
  enroll_date TIMESTAMP NOT NULL,
  progress_rate NUMERIC(5, 2) NOT NULL DEFAULT 0,
  PRIMARY KEY (student_id, course_id)
);`

type integrationEnvelope struct {
	Success    bool            `json:"success"`
	ReportType string          `json:"report_type"`
	ReportID   string          `json:"report_id"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type rangedStudentData struct {
	ParentReportID string `json:"parent_report_id"`
	MonthlyStats   []struct {
		Month             string `json:"month"`
		ReportID          string `json:"report_id"`
		TotalStudents     int    `json:"total_students"`
		RegistrationCount int    `json:"registration_count"`
	} `json:"monthly_stats"`
}

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "lms",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=lms sslmode=disable", host, port.Port())
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, collaboratorSchema)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, db.DB, "up"))
	return db
}

func seedStudents(t *testing.T, db *sqlx.DB) {
	t.Helper()
	registrations := map[string]string{
		"S0000001": "2024-01-05",
		"S0000002": "2024-01-12",
		"S0000003": "2024-01-31 23:30:00",
		"S0000004": "2024-02-03",
		"S0000005": "2024-02-29",
	}
	for id, registered := range registrations {
		db.MustExec(`INSERT INTO "user" (id, first_name, last_name, birth_date, registration_date) VALUES ($1, 'Student', $1, '2000-06-01', $2)`, id, registered)
		db.MustExec(`INSERT INTO student (id, major, account_status, certificate_count) VALUES ($1, 'informatics', 'active', 1)`, id)
	}
}

func newIntegrationRouter(t *testing.T, db *sqlx.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reports, err := service.NewReportService(service.ReportServiceParams{
		Store:       repository.NewReportRepository(db),
		Ledger:      repository.NewAdminReportRepository(db),
		Students:    repository.NewStudentMetricsRepository(db),
		Courses:     repository.NewCourseMetricsRepository(db),
		Instructors: repository.NewInstructorMetricsRepository(db),
		Logger:      zap.NewNop(),
	})
	require.NoError(t, err)
	r := gin.New()
	NewReportHandler(reports, service.NewExportService(reports, zap.NewNop())).RegisterRoutes(r.Group("/api"), nil, nil)
	return r
}

func getEnvelope(t *testing.T, r http.Handler, target string) (int, integrationEnvelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var env integrationEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestStudentRangedAgainstPostgres(t *testing.T) {
	db := startPostgres(t)
	seedStudents(t, db)
	r := newIntegrationRouter(t, db)
	const target = "/api/report/student/ranged?admin_id=A0000001&start=2024-01&end=2024-03"

	code, env := getEnvelope(t, r, target)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Equal(t, "student_ranged", env.ReportType)

	var data rangedStudentData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.MonthlyStats, 3)
	assert.Equal(t, []int{3, 2, 0}, []int{
		data.MonthlyStats[0].RegistrationCount,
		data.MonthlyStats[1].RegistrationCount,
		data.MonthlyStats[2].RegistrationCount,
	})
	for i := 1; i < len(data.MonthlyStats); i++ {
		assert.GreaterOrEqual(t, data.MonthlyStats[i].TotalStudents, data.MonthlyStats[i-1].TotalStudents)
	}

	t.Run("repeat returns the same parent without new rows", func(t *testing.T) {
		code, again := getEnvelope(t, r, target)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, env.ReportID, again.ReportID)

		var headers, children int
		require.NoError(t, db.Get(&headers, `SELECT COUNT(*) FROM report WHERE parent_report_id IS NULL AND report_type = 'student_ranged'`))
		require.NoError(t, db.Get(&children, `SELECT COUNT(*) FROM report WHERE parent_report_id = $1`, env.ReportID))
		assert.Equal(t, 1, headers)
		assert.Equal(t, 3, children)

		var links int
		require.NoError(t, db.Get(&links, `SELECT COUNT(*) FROM admin_report WHERE admin_id = 'A0000001' AND report_id = $1`, env.ReportID))
		assert.Equal(t, 1, links)
	})

	t.Run("cached month is copied into a new range", func(t *testing.T) {
		db.MustExec(`UPDATE student_report SET registration_count = 999 WHERE report_id = $1`, data.MonthlyStats[0].ReportID)

		code, other := getEnvelope(t, r, "/api/report/student/ranged?admin_id=A0000002&start=2024-01&end=2024-02")
		require.Equal(t, http.StatusOK, code, other.Message)
		assert.NotEqual(t, env.ReportID, other.ReportID)

		var otherData rangedStudentData
		require.NoError(t, json.Unmarshal(other.Data, &otherData))
		require.Len(t, otherData.MonthlyStats, 2)
		assert.Equal(t, 999, otherData.MonthlyStats[0].RegistrationCount)
		assert.Equal(t, 2, otherData.MonthlyStats[1].RegistrationCount)
	})

	t.Run("inverted range writes nothing", func(t *testing.T) {
		var before, after int
		require.NoError(t, db.Get(&before, `SELECT COUNT(*) FROM report`))
		code, bad := getEnvelope(t, r, "/api/report/student/ranged?admin_id=A0000001&start=2024-03&end=2024-01")
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "end < start", bad.Message)
		require.NoError(t, db.Get(&after, `SELECT COUNT(*) FROM report`))
		assert.Equal(t, before, after)
	})

	t.Run("list and fetch", func(t *testing.T) {
		code, list := getEnvelope(t, r, "/api/report/list?admin_id=A0000001")
		require.Equal(t, http.StatusOK, code)
		var listData struct {
			Reports []struct {
				ReportID string `json:"report_id"`
			} `json:"reports"`
		}
		require.NoError(t, json.Unmarshal(list.Data, &listData))
		require.Len(t, listData.Reports, 1)
		assert.Equal(t, env.ReportID, listData.Reports[0].ReportID)

		code, fetched := getEnvelope(t, r, "/api/report/student/"+env.ReportID)
		require.Equal(t, http.StatusOK, code, fetched.Message)
		assert.Equal(t, env.ReportID, fetched.ReportID)

		code, missing := getEnvelope(t, r, "/api/report/course/"+env.ReportID)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "course report not found", missing.Message)
	})
}

func TestGeneralReportsAgainstPostgres(t *testing.T) {
	db := startPostgres(t)
	seedStudents(t, db)
	r := newIntegrationRouter(t, db)

	for _, entity := range []string{"student", "course", "instructor"} {
		t.Run(entity, func(t *testing.T) {
			code, first := getEnvelope(t, r, "/api/report/"+entity+"/general?admin_id=A0000001")
			require.Equal(t, http.StatusOK, code, first.Message)
			assert.Equal(t, entity+"_general", first.ReportType)

			code, second := getEnvelope(t, r, "/api/report/"+entity+"/general?admin_id=A0000001")
			require.Equal(t, http.StatusOK, code)
			assert.Equal(t, first.ReportID, second.ReportID)
		})
	}
}
