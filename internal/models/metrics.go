package models

import (
	"strconv"
)

// EntityMetrics is a metrics row stored 1:1 with a report header.
type EntityMetrics interface {
	Entity() Entity
	ID() string
	SetReportID(id string)
	// Columns and Values give the positional export record for the row.
	Columns() []string
	Values() []string
}

// StudentMetrics mirrors student_report.
type StudentMetrics struct {
	ReportID                 string   `db:"report_id" json:"report_id,omitempty"`
	TotalStudents            int      `db:"total_students" json:"total_students"`
	ActiveStudentCount       int      `db:"active_student_count" json:"active_student_count"`
	RegistrationCount        int      `db:"registration_count" json:"registration_count"`
	AvgEnrollmentsPerStudent float64  `db:"avg_enrollments_per_student" json:"avg_enrollments_per_student"`
	AvgCertificatePerStudent float64  `db:"avg_certificate_per_student" json:"avg_certificate_per_student"`
	AvgCompletionRate        float64  `db:"avg_completion_rate" json:"avg_completion_rate"`
	MostCommonMajor          *string  `db:"most_common_major" json:"most_common_major"`
	MostCommonMajorCount     int      `db:"most_common_major_count" json:"most_common_major_count"`
	AvgAge                   *float64 `db:"avg_age" json:"avg_age"`
	YoungestAge              *int     `db:"youngest_age" json:"youngest_age"`
	OldestAge                *int     `db:"oldest_age" json:"oldest_age"`
	Top1ID                   *string  `db:"top1_id" json:"top1_id"`
	Top2ID                   *string  `db:"top2_id" json:"top2_id"`
	Top3ID                   *string  `db:"top3_id" json:"top3_id"`
}

func (m *StudentMetrics) Entity() Entity       { return EntityStudent }
func (m *StudentMetrics) ID() string           { return m.ReportID }
func (m *StudentMetrics) SetReportID(id string) { m.ReportID = id }

// TopIDs returns the non-empty leaderboard references in rank order.
func (m *StudentMetrics) TopIDs() []string {
	return compactIDs(m.Top1ID, m.Top2ID, m.Top3ID)
}

// SetTopIDs stores up to three ranked IDs.
func (m *StudentMetrics) SetTopIDs(ids []string) {
	m.Top1ID, m.Top2ID, m.Top3ID = idAt(ids, 0), idAt(ids, 1), idAt(ids, 2)
}

func (m *StudentMetrics) Columns() []string {
	return []string{
		"total_students", "active_student_count", "registration_count",
		"avg_enrollments_per_student", "avg_certificate_per_student", "avg_completion_rate",
		"most_common_major", "most_common_major_count",
		"avg_age", "youngest_age", "oldest_age",
		"top1_id", "top2_id", "top3_id",
	}
}

func (m *StudentMetrics) Values() []string {
	return []string{
		itoa(m.TotalStudents), itoa(m.ActiveStudentCount), itoa(m.RegistrationCount),
		ftoa(m.AvgEnrollmentsPerStudent), ftoa(m.AvgCertificatePerStudent), ftoa(m.AvgCompletionRate),
		str(m.MostCommonMajor), itoa(m.MostCommonMajorCount),
		fptr(m.AvgAge), iptr(m.YoungestAge), iptr(m.OldestAge),
		str(m.Top1ID), str(m.Top2ID), str(m.Top3ID),
	}
}

// CourseMetrics mirrors course_report.
type CourseMetrics struct {
	ReportID                   string  `db:"report_id" json:"report_id,omitempty"`
	TotalCourses               int     `db:"total_courses" json:"total_courses"`
	NewCourseCount             int     `db:"new_course_count" json:"new_course_count"`
	FreeCourseCount            int     `db:"free_course_count" json:"free_course_count"`
	PaidCourseCount            int     `db:"paid_course_count" json:"paid_course_count"`
	EnrollCount                int     `db:"enroll_count" json:"enroll_count"`
	FreeEnrollCount            int     `db:"free_enroll_count" json:"free_enroll_count"`
	PaidEnrollCount            int     `db:"paid_enroll_count" json:"paid_enroll_count"`
	AvgEnrollPerCourse         float64 `db:"avg_enroll_per_course" json:"avg_enroll_per_course"`
	TotalRevenue               float64 `db:"total_revenue" json:"total_revenue"`
	AvgCompletionRate          float64 `db:"avg_completion_rate" json:"avg_completion_rate"`
	MostPopularCourseID        *string `db:"most_popular_course_id" json:"most_popular_course_id"`
	MostPopularEnrollmentCount *int    `db:"most_popular_enrollment_count" json:"most_popular_enrollment_count"`
	MostCompletedCourseID      *string `db:"most_completed_course_id" json:"most_completed_course_id"`
	MostCompletedCount         *int    `db:"most_completed_count" json:"most_completed_count"`
}

func (m *CourseMetrics) Entity() Entity       { return EntityCourse }
func (m *CourseMetrics) ID() string           { return m.ReportID }
func (m *CourseMetrics) SetReportID(id string) { m.ReportID = id }

func (m *CourseMetrics) Columns() []string {
	return []string{
		"total_courses", "new_course_count", "free_course_count", "paid_course_count",
		"enroll_count", "free_enroll_count", "paid_enroll_count",
		"avg_enroll_per_course", "total_revenue", "avg_completion_rate",
		"most_popular_course_id", "most_popular_enrollment_count",
		"most_completed_course_id", "most_completed_count",
	}
}

func (m *CourseMetrics) Values() []string {
	return []string{
		itoa(m.TotalCourses), itoa(m.NewCourseCount), itoa(m.FreeCourseCount), itoa(m.PaidCourseCount),
		itoa(m.EnrollCount), itoa(m.FreeEnrollCount), itoa(m.PaidEnrollCount),
		ftoa(m.AvgEnrollPerCourse), ftoa(m.TotalRevenue), ftoa(m.AvgCompletionRate),
		str(m.MostPopularCourseID), iptr(m.MostPopularEnrollmentCount),
		str(m.MostCompletedCourseID), iptr(m.MostCompletedCount),
	}
}

// InstructorMetrics mirrors instructor_report.
type InstructorMetrics struct {
	ReportID                  string   `db:"report_id" json:"report_id,omitempty"`
	TotalInstructors          int      `db:"total_instructors" json:"total_instructors"`
	RegistrationCount         int      `db:"registration_count" json:"registration_count"`
	InstructorsWithFreeCourse int      `db:"instructors_with_free_course" json:"instructors_with_free_course"`
	InstructorsWithPaidCourse int      `db:"instructors_with_paid_course" json:"instructors_with_paid_course"`
	AvgCoursesPerInstructor   float64  `db:"avg_courses_per_instructor" json:"avg_courses_per_instructor"`
	AvgAge                    *float64 `db:"avg_age" json:"avg_age"`
	YoungestAge               *int     `db:"youngest_age" json:"youngest_age"`
	OldestAge                 *int     `db:"oldest_age" json:"oldest_age"`
	MostPopularInstructorID   *string  `db:"most_popular_instructor_id" json:"most_popular_instructor_id"`
	MostActiveInstructorID    *string  `db:"most_active_instructor_id" json:"most_active_instructor_id"`
	Top1ID                    *string  `db:"top1_id" json:"top1_id"`
	Top2ID                    *string  `db:"top2_id" json:"top2_id"`
	Top3ID                    *string  `db:"top3_id" json:"top3_id"`
}

func (m *InstructorMetrics) Entity() Entity       { return EntityInstructor }
func (m *InstructorMetrics) ID() string           { return m.ReportID }
func (m *InstructorMetrics) SetReportID(id string) { m.ReportID = id }

// TopIDs returns the non-empty leaderboard references in rank order.
func (m *InstructorMetrics) TopIDs() []string {
	return compactIDs(m.Top1ID, m.Top2ID, m.Top3ID)
}

// SetTopIDs stores up to three ranked IDs.
func (m *InstructorMetrics) SetTopIDs(ids []string) {
	m.Top1ID, m.Top2ID, m.Top3ID = idAt(ids, 0), idAt(ids, 1), idAt(ids, 2)
}

func (m *InstructorMetrics) Columns() []string {
	return []string{
		"total_instructors", "registration_count",
		"instructors_with_free_course", "instructors_with_paid_course", "avg_courses_per_instructor",
		"avg_age", "youngest_age", "oldest_age",
		"most_popular_instructor_id", "most_active_instructor_id",
		"top1_id", "top2_id", "top3_id",
	}
}

func (m *InstructorMetrics) Values() []string {
	return []string{
		itoa(m.TotalInstructors), itoa(m.RegistrationCount),
		itoa(m.InstructorsWithFreeCourse), itoa(m.InstructorsWithPaidCourse), ftoa(m.AvgCoursesPerInstructor),
		fptr(m.AvgAge), iptr(m.YoungestAge), iptr(m.OldestAge),
		str(m.MostPopularInstructorID), str(m.MostActiveInstructorID),
		str(m.Top1ID), str(m.Top2ID), str(m.Top3ID),
	}
}

func compactIDs(ptrs ...*string) []string {
	out := make([]string, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return out
}

func idAt(ids []string, i int) *string {
	if i >= len(ids) || ids[i] == "" {
		return nil
	}
	id := ids[i]
	return &id
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func iptr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func fptr(p *float64) string {
	if p == nil {
		return ""
	}
	return ftoa(*p)
}
