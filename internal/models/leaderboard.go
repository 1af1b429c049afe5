package models

import "time"

// StudentRank is a leaderboard entry scored by certificates, enrollments and progress.
type StudentRank struct {
	ID               string  `db:"id" json:"id"`
	FullName         string  `db:"full_name" json:"full_name"`
	Major            *string `db:"major" json:"major"`
	AchievementScore float64 `db:"achievement_score" json:"achievement_score"`
}

// InstructorRank is a leaderboard entry ordered by rating.
type InstructorRank struct {
	ID       string   `db:"id" json:"id"`
	FullName string   `db:"full_name" json:"full_name"`
	Rating   *float64 `db:"rating" json:"rating"`
}

// InstructorActivity counts courses created by an instructor.
type InstructorActivity struct {
	ID           string `db:"id" json:"id"`
	FullName     string `db:"full_name" json:"full_name"`
	TotalCourses int    `db:"total_courses" json:"total_courses"`
}

// InstructorPopularity counts enrollments across an instructor's courses.
type InstructorPopularity struct {
	ID               string `db:"id" json:"id"`
	FullName         string `db:"full_name" json:"full_name"`
	TotalEnrollments int    `db:"total_enrollments" json:"total_enrollments"`
}

// CourseHighlight describes a most popular or most completed course.
type CourseHighlight struct {
	CourseID        string   `db:"course_id" json:"course_id"`
	Title           string   `db:"title" json:"title"`
	Price           float64  `db:"price" json:"price"`
	PaymentType     string   `db:"payment_type" json:"payment_type"`
	InstructorID    *string  `db:"instructor_id" json:"instructor_id"`
	InstructorName  *string  `db:"instructor_name" json:"instructor_name"`
	EnrollmentCount int      `db:"enrollment_count" json:"enrollment_count"`
	CompletionCount int      `db:"completion_count" json:"completion_count"`
	CompletionRatio *float64 `db:"completion_ratio" json:"completion_ratio"`
}

// CategoryEnrollment totals enrollments per course category.
type CategoryEnrollment struct {
	Category         string `db:"category" json:"category"`
	TotalEnrollments int    `db:"total_enrollments" json:"total_enrollments"`
}

// DifficultyStat aggregates enrollments and progress per difficulty level.
type DifficultyStat struct {
	DifficultyLevel   string  `db:"difficulty_level" json:"difficulty_level"`
	TotalEnrollments  int     `db:"total_enrollments" json:"total_enrollments"`
	AvgCompletionRate float64 `db:"avg_completion_rate" json:"avg_completion_rate"`
}

// MonthCount is one point of a monthly series.
type MonthCount struct {
	Month time.Time `db:"month"`
	Count int       `db:"count"`
}

// StatusCount counts courses by moderation status.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// CourseBreakdowns holds the categorical tables persisted in report.summary for course snapshots.
type CourseBreakdowns struct {
	StatusCounts           map[string]int       `json:"status_counts"`
	CategoryEnrollments    []CategoryEnrollment `json:"category_enrollments"`
	DifficultyStats        []DifficultyStat     `json:"difficulty_stats"`
	CoursesCreatedLastYear map[string]int       `json:"courses_created_last_year,omitempty"`
}
