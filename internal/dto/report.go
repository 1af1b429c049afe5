package dto

import (
	"time"

	"github.com/noah-isme/lms-report-api/internal/models"
)

// ReportQuery is bound from the query string of generate and list endpoints.
type ReportQuery struct {
	AdminID string `form:"admin_id" validate:"required,max=8"`
	Start   string `form:"start" validate:"omitempty,yearmonth"`
	End     string `form:"end" validate:"omitempty,yearmonth"`
}

// ReportResult is what every report operation hands back to the transport layer.
type ReportResult struct {
	ReportType models.ReportType
	ReportID   string
	Data       interface{}
}

// MonthRange labels a covered span as "YYYY-MM" bounds.
type MonthRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ReportHeader is the identity block shared by single-row detail payloads.
type ReportHeader struct {
	ReportID       string            `json:"report_id"`
	ReportType     models.ReportType `json:"report_type"`
	TimeRangeStart string            `json:"time_range_start"`
	TimeRangeEnd   string            `json:"time_range_end"`
	ParentReportID *string           `json:"parent_report_id"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// EntityRef resolves a weak reference. Available is false when the entity no longer exists.
type EntityRef struct {
	ID        string      `json:"id"`
	Available bool        `json:"available"`
	Details   interface{} `json:"details,omitempty"`
}

// ReportSummary is one row of the admin report list.
type ReportSummary struct {
	ReportID       string            `json:"report_id"`
	ReportType     models.ReportType `json:"report_type"`
	TimeRangeStart string            `json:"time_range_start"`
	TimeRangeEnd   string            `json:"time_range_end"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// ReportList wraps the admin report list.
type ReportList struct {
	Reports []ReportSummary `json:"reports"`
}

// StudentGeneralData is the student snapshot payload.
type StudentGeneralData struct {
	Range MonthRange `json:"range"`
	*models.StudentMetrics
	MonthlyRegistrations map[string]int       `json:"monthly_registrations"`
	TopStudents          []models.StudentRank `json:"top_students"`
}

// StudentMonth is one entry of a student monthly series.
type StudentMonth struct {
	Month string `json:"month"`
	*models.StudentMetrics
}

// StudentRangedData is returned by the ranged endpoint and by fetch of a ranged parent.
type StudentRangedData struct {
	ParentReportID string                 `json:"parent_report_id"`
	Range          MonthRange             `json:"range"`
	Summary        *models.StudentMetrics `json:"summary,omitempty"`
	MonthlyStats   []StudentMonth         `json:"monthly_stats"`
	TopStudents    []models.StudentRank   `json:"top_students"`
}

// StudentDetailData is returned by fetch of a snapshot or a monthly child.
type StudentDetailData struct {
	ReportHeader
	Metrics              *models.StudentMetrics `json:"metrics"`
	TopStudents          []EntityRef            `json:"top_students"`
	MonthlyRegistrations map[string]int         `json:"monthly_registrations"`
}

// CourseHighlights names the range-wide standout courses.
type CourseHighlights struct {
	MostPopularCourse   *models.CourseHighlight `json:"most_popular_course"`
	MostCompletedCourse *models.CourseHighlight `json:"most_completed_course"`
}

// CourseGeneralData is the course snapshot payload.
type CourseGeneralData struct {
	Range MonthRange `json:"range"`
	*models.CourseMetrics
	Highlights CourseHighlights `json:"highlights"`
	models.CourseBreakdowns
}

// CourseMonth is one entry of a course monthly series.
type CourseMonth struct {
	Month string `json:"month"`
	*models.CourseMetrics
}

// CourseRangedData is returned by the ranged endpoint and by fetch of a ranged parent.
type CourseRangedData struct {
	ParentReportID  string                `json:"parent_report_id"`
	Range           MonthRange            `json:"range"`
	SnapshotMetrics *models.CourseMetrics `json:"snapshot_metrics"`
	MonthlyMetrics  []CourseMonth         `json:"monthly_metrics"`
	Highlights      CourseHighlights      `json:"highlights"`
	models.CourseBreakdowns
}

// CourseDetailData is returned by fetch of a snapshot or a monthly child.
type CourseDetailData struct {
	ReportHeader
	Metrics                *models.CourseMetrics    `json:"metrics"`
	MostPopularCourse      *EntityRef               `json:"most_popular_course"`
	MostCompletedCourse    *EntityRef               `json:"most_completed_course"`
	Breakdowns             *models.CourseBreakdowns `json:"breakdowns,omitempty"`
	CoursesCreatedLastYear map[string]int           `json:"courses_created_last_year"`
}

// InstructorHighlights names the most active and most popular instructor of a span.
type InstructorHighlights struct {
	MostActiveInstructor  *models.InstructorActivity   `json:"most_active_instructor"`
	MostPopularInstructor *models.InstructorPopularity `json:"most_popular_instructor"`
}

// InstructorGeneralData is the instructor snapshot payload.
type InstructorGeneralData struct {
	Range MonthRange `json:"range"`
	*models.InstructorMetrics
	TopInstructors []models.InstructorRank `json:"top_instructors"`
	InstructorHighlights
	MonthlyRegistrations map[string]int `json:"monthly_registrations"`
}

// InstructorMonth is one entry of an instructor monthly series.
type InstructorMonth struct {
	Month string `json:"month"`
	*models.InstructorMetrics
}

// InstructorRangedData is returned by the ranged endpoint and by fetch of a ranged parent.
type InstructorRangedData struct {
	ParentReportID string                  `json:"parent_report_id"`
	Range          MonthRange              `json:"range"`
	MonthlyStats   []InstructorMonth       `json:"monthly_stats"`
	TopInstructors []models.InstructorRank `json:"top_instructors"`
	Highlights     InstructorHighlights    `json:"highlights"`
}

// InstructorDetailData is returned by fetch of a snapshot or a monthly child.
type InstructorDetailData struct {
	ReportHeader
	Metrics               *models.InstructorMetrics `json:"metrics"`
	TopInstructors        []EntityRef               `json:"top_instructors"`
	MostPopularInstructor *EntityRef                `json:"most_popular_instructor"`
	MostActiveInstructor  *EntityRef                `json:"most_active_instructor"`
	MonthlyRegistrations  map[string]int            `json:"monthly_registrations"`
}
