package models

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/lms-report-api/pkg/reportid"
)

// Entity is the subject a report aggregates over.
type Entity string

const (
	EntityStudent    Entity = "student"
	EntityCourse     Entity = "course"
	EntityInstructor Entity = "instructor"
)

// Valid reports whether e is a supported entity.
func (e Entity) Valid() bool {
	switch e {
	case EntityStudent, EntityCourse, EntityInstructor:
		return true
	}
	return false
}

// GeneralType returns the snapshot report type for the entity.
func (e Entity) GeneralType() ReportType {
	return ReportType(string(e) + "_general")
}

// RangedType returns the ranged report type for the entity.
func (e Entity) RangedType() ReportType {
	return ReportType(string(e) + "_ranged")
}

// ReportType enumerates stored report kinds.
type ReportType string

const (
	ReportTypeStudentGeneral    ReportType = "student_general"
	ReportTypeStudentRanged     ReportType = "student_ranged"
	ReportTypeCourseGeneral     ReportType = "course_general"
	ReportTypeCourseRanged      ReportType = "course_ranged"
	ReportTypeInstructorGeneral ReportType = "instructor_general"
	ReportTypeInstructorRanged  ReportType = "instructor_ranged"
)

// Entity returns the entity encoded in the type name.
func (t ReportType) Entity() Entity {
	name, _, _ := strings.Cut(string(t), "_")
	return Entity(name)
}

// Ranged reports whether t is a ranged (monthly) report type.
func (t ReportType) Ranged() bool {
	return strings.HasSuffix(string(t), "_ranged")
}

// IDPrefix returns the advisory two-letter prefix for newly generated IDs.
func (t ReportType) IDPrefix() string {
	switch t {
	case ReportTypeStudentGeneral:
		return reportid.PrefixStudentGeneral
	case ReportTypeStudentRanged:
		return reportid.PrefixStudentRanged
	case ReportTypeCourseGeneral:
		return reportid.PrefixCourseGeneral
	case ReportTypeCourseRanged:
		return reportid.PrefixCourseRanged
	case ReportTypeInstructorGeneral:
		return reportid.PrefixInstructorGeneral
	default:
		return reportid.PrefixInstructorRanged
	}
}

// Report is the header row of the report cache store. Rows are immutable once inserted.
type Report struct {
	ID             string             `db:"report_id" json:"report_id"`
	Type           ReportType         `db:"report_type" json:"report_type"`
	Description    string             `db:"description" json:"description"`
	RangeStart     time.Time          `db:"time_range_start" json:"time_range_start"`
	RangeEnd       time.Time          `db:"time_range_end" json:"time_range_end"`
	ParentReportID *string            `db:"parent_report_id" json:"parent_report_id"`
	Summary        types.NullJSONText `db:"summary" json:"-"`
	CreatedAt      time.Time          `db:"creation_date" json:"creation_date"`
}

// IsChild reports whether the row is a monthly child of a ranged parent.
func (r Report) IsChild() bool {
	return r.ParentReportID != nil && *r.ParentReportID != ""
}

// ReportListItem is one parent-level report linked to an admin.
type ReportListItem struct {
	ReportID       string     `db:"report_id" json:"report_id"`
	ReportType     ReportType `db:"report_type" json:"report_type"`
	TimeRangeStart time.Time  `db:"time_range_start" json:"-"`
	TimeRangeEnd   time.Time  `db:"time_range_end" json:"-"`
	GeneratedAt    time.Time  `db:"creation_date" json:"generated_at"`
}

// ReportNode is the application-level shape of a stored report:
// a SnapshotNode, a RangedParentNode or a MonthlyChildNode.
type ReportNode interface {
	Header() Report
	reportNode()
}

// SnapshotNode is a general report with its single metrics row.
type SnapshotNode struct {
	Report  Report
	Metrics EntityMetrics
}

// RangedParentNode is a ranged header owning one child per covered month.
type RangedParentNode struct {
	Report   Report
	Children []MonthlyChildNode
}

// MonthlyChildNode is one month of a ranged report.
type MonthlyChildNode struct {
	Report   Report
	Metrics  EntityMetrics
	ParentID string
}

func (n SnapshotNode) Header() Report     { return n.Report }
func (n RangedParentNode) Header() Report { return n.Report }
func (n MonthlyChildNode) Header() Report { return n.Report }

func (SnapshotNode) reportNode()     {}
func (RangedParentNode) reportNode() {}
func (MonthlyChildNode) reportNode() {}
