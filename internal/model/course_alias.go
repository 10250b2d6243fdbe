package model

import (
	"time"

	"github.com/google/uuid"
)

// CourseCodeAlias maps one stored code string to the course that should be
// treated as its canonical identity. SourceCode is unique.
type CourseCodeAlias struct {
	SourceCode        string     `json:"source_code"`
	CanonicalCourseID int        `json:"canonical_course_id"`
	SourceCourseUUID  *uuid.UUID `json:"source_course_uuid,omitempty"`
	SourceSubjectCode *string    `json:"source_subject_code,omitempty"`
	Source            string     `json:"source"`
	LastSeenAt        time.Time  `json:"last_seen_at"`
}

// UpsertAliasRequest is the payload for writing a single alias.
type UpsertAliasRequest struct {
	SourceCode        string     `json:"source_code" binding:"required,min=2,max=64"`
	CanonicalCourseID int        `json:"canonical_course_id" binding:"required,min=1"`
	SourceCourseUUID  *uuid.UUID `json:"source_course_uuid" binding:"omitempty"`
	SourceSubjectCode *string    `json:"source_subject_code" binding:"omitempty,max=16"`
	Source            string     `json:"source" binding:"omitempty,max=64"`
}

// BatchAliasRequest enqueues many aliases for the ingest worker.
type BatchAliasRequest struct {
	Aliases []UpsertAliasRequest `json:"aliases" binding:"required,min=1,max=5000,dive"`
}

// ToAlias converts the request into an alias row stamped at now.
func (r UpsertAliasRequest) ToAlias(now time.Time) CourseCodeAlias {
	return CourseCodeAlias{
		SourceCode:        r.SourceCode,
		CanonicalCourseID: r.CanonicalCourseID,
		SourceCourseUUID:  r.SourceCourseUUID,
		SourceSubjectCode: r.SourceSubjectCode,
		Source:            r.Source,
		LastSeenAt:        now,
	}
}

// Resolution is the outcome of resolving a requested course id.
// Redirect is set when the request must be sent to CanonicalID instead.
type Resolution struct {
	RequestedID int     `json:"requested_id"`
	CanonicalID int     `json:"canonical_id"`
	Redirect    bool    `json:"redirect"`
	Course      *Course `json:"-"`
}
