package model

import (
	"time"

	"github.com/google/uuid"
)

// Review is a student's multi-dimensional rating of one course.
// Ratings are 1..5; Difficulty and Workload are informational, not quality scores.
type Review struct {
	ID            uuid.UUID `json:"id"`
	CourseID      int       `json:"course_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Overall       int       `json:"overall"`
	Difficulty    int       `json:"difficulty"`
	Workload      int       `json:"workload"`
	Teaching      int       `json:"teaching"`
	GradeReceived *string   `json:"grade_received,omitempty"`
	TermTaken     *string   `json:"term_taken,omitempty"`
	UpvoteCount   int       `json:"upvote_count"`
	DownvoteCount int       `json:"downvote_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// GradeDistribution is one term's letter-grade counts for a course.
type GradeDistribution struct {
	ID       int    `json:"id"`
	CourseID int    `json:"course_id"`
	TermCode string `json:"term_code"`
	A        int    `json:"a"`
	AB       int    `json:"ab"`
	B        int    `json:"b"`
	BC       int    `json:"bc"`
	C        int    `json:"c"`
	D        int    `json:"d"`
	F        int    `json:"f"`
}

// GradeCounts is the merged distribution across terms and courses.
type GradeCounts struct {
	A  int `json:"a"`
	AB int `json:"ab"`
	B  int `json:"b"`
	BC int `json:"bc"`
	C  int `json:"c"`
	D  int `json:"d"`
	F  int `json:"f"`
}

// RatingAverages holds mean review scores; nil when there are no reviews.
type RatingAverages struct {
	Overall    *float64 `json:"overall"`
	Difficulty *float64 `json:"difficulty"`
	Workload   *float64 `json:"workload"`
	Teaching   *float64 `json:"teaching"`
}

// CourseStats is the aggregate over every course in a cross-list group.
type CourseStats struct {
	CourseIDs   []int          `json:"course_ids"`
	ReviewCount int            `json:"review_count"`
	Ratings     RatingAverages `json:"ratings"`
	Grades      GradeCounts    `json:"grades"`
	GradedTotal int            `json:"graded_total"`
	GPA         *float64       `json:"gpa"`
}

// ReviewPageQuery pages the review list of a course page.
type ReviewPageQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1,max=100000"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// DepartmentExpandQuery is the query string for department expansion.
type DepartmentExpandQuery struct {
	Q string `form:"q" binding:"required,min=1,max=64"`
}
