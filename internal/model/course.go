package model

import "time"

// CourseLevel classifies a course by its catalog level.
type CourseLevel string

const (
	CourseLevelElementary   CourseLevel = "ELEMENTARY"
	CourseLevelIntermediate CourseLevel = "INTERMEDIATE"
	CourseLevelAdvanced     CourseLevel = "ADVANCED"
)

// Course represents one stored catalog offering. Code is the short code
// persisted by ingestion (e.g. "CS 577"), not the official display code.
type Course struct {
	ID               int         `json:"id"`
	Code             string      `json:"code"`
	Name             string      `json:"name"`
	MinCredits       int         `json:"min_credits"`
	MaxCredits       int         `json:"max_credits"`
	Level            CourseLevel `json:"level"`
	AvgGPA           *float64    `json:"avg_gpa,omitempty"`
	AvgRating        *float64    `json:"avg_rating,omitempty"`
	CrossListGroupID *string     `json:"cross_list_group_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// CourseSummary is a course annotated with its official display code.
type CourseSummary struct {
	Course
	OfficialCode string `json:"official_code"`
}

// CrossListGroup marks several Course rows as the same class taught under
// different departments. DisplayCode is recomputed on every membership change.
type CrossListGroup struct {
	ID          string    `json:"id"`
	DisplayCode string    `json:"display_code"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CoursePage is everything rendered for a canonical course.
type CoursePage struct {
	Course  CourseSummary   `json:"course"`
	Title   string          `json:"title"`
	Members []CourseSummary `json:"members"`
	Stats   CourseStats     `json:"stats"`
}

// CourseSearchQuery is the query string for course search.
type CourseSearchQuery struct {
	Q     string `form:"q" binding:"required,min=1,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CourseSearchResult is one search hit.
type CourseSearchResult struct {
	Terms   []string        `json:"terms"`
	Courses []CourseSummary `json:"courses"`
}

// SyncCrossListGroupRequest replaces a cross-list group's membership.
type SyncCrossListGroupRequest struct {
	CanonicalCourseID int   `json:"canonical_course_id" binding:"required,min=1"`
	MemberCourseIDs   []int `json:"member_course_ids" binding:"required,min=1,dive,min=1"`
}
