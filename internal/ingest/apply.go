package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/coursetalk/coursetalk-backend/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const aliasChunkSize = 500

// CourseLookup finds courses by stored code.
type CourseLookup interface {
	GetByCode(ctx context.Context, code string) (*model.Course, error)
}

// Report summarizes one ingestion run.
type Report struct {
	Groups     int      `json:"groups"`
	Aliases    int      `json:"aliases"`
	Skipped    int      `json:"skipped"`
	Backfilled int64    `json:"backfilled"`
	Problems   []string `json:"problems,omitempty"`
}

func (r *Report) skip(format string, args ...interface{}) {
	r.Skipped++
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Applier writes a manifest through the alias ingest service. Runs are
// expected to be exclusive; it does no locking of its own.
type Applier struct {
	courses    CourseLookup
	ingest     service.AliasIngestService
	normalizer *coursecode.Normalizer
	source     string
	log        zerolog.Logger
}

func NewApplier(courses CourseLookup, ingest service.AliasIngestService, normalizer *coursecode.Normalizer, source string, log zerolog.Logger) *Applier {
	return &Applier{
		courses:    courses,
		ingest:     ingest,
		normalizer: normalizer,
		source:     source,
		log:        log.With().Str("component", "catalog_ingest").Logger(),
	}
}

// Apply syncs every group, then upserts the alias rows in chunks. Rows
// that reference unknown courses are skipped and reported. Store failures
// abort the run.
func (a *Applier) Apply(ctx context.Context, m *Manifest, backfill bool) (*Report, error) {
	report := &Report{}
	source := a.source
	if source == "" {
		source = m.Source
	}

	for _, g := range m.Groups {
		if err := a.applyGroup(ctx, g, report); err != nil {
			return report, err
		}
	}

	reqs := make([]model.UpsertAliasRequest, 0, len(m.Aliases))
	for i, e := range m.Aliases {
		req, ok, err := a.aliasRequest(ctx, e, source)
		if err != nil {
			return report, err
		}
		if !ok {
			report.skip("alias row %d (%s): canonical course %q not found", i+1, e.SourceCode, e.Canonical)
			continue
		}
		reqs = append(reqs, req)
	}

	for start := 0; start < len(reqs); start += aliasChunkSize {
		end := start + aliasChunkSize
		if end > len(reqs) {
			end = len(reqs)
		}
		n, err := a.ingest.EnqueueAliases(ctx, reqs[start:end])
		if err != nil {
			return report, fmt.Errorf("write aliases %d-%d: %w", start+1, end, err)
		}
		report.Aliases += n
	}

	if backfill {
		n, err := a.ingest.BackfillSelfAliases(ctx, service.AliasSourceBackfill)
		if err != nil {
			return report, fmt.Errorf("backfill self aliases: %w", err)
		}
		report.Backfilled = n
	}

	a.log.Info().
		Int("groups", report.Groups).
		Int("aliases", report.Aliases).
		Int("skipped", report.Skipped).
		Int64("backfilled", report.Backfilled).
		Msg("Catalog applied")
	return report, nil
}

func (a *Applier) applyGroup(ctx context.Context, g GroupEntry, report *Report) error {
	if strings.TrimSpace(g.ID) == "" {
		report.skip("group with canonical %q has no id", g.Canonical)
		return nil
	}

	canonical, err := a.lookup(ctx, g.Canonical)
	if err != nil {
		return err
	}
	if canonical == nil {
		report.skip("group %s: canonical course %q not found", g.ID, g.Canonical)
		return nil
	}

	memberIDs := []int{canonical.ID}
	for _, code := range g.Members {
		c, err := a.lookup(ctx, code)
		if err != nil {
			return err
		}
		if c == nil {
			report.skip("group %s: member %q not found", g.ID, code)
			continue
		}
		memberIDs = append(memberIDs, c.ID)
	}

	group, err := a.ingest.SyncCrossListGroup(ctx, g.ID, model.SyncCrossListGroupRequest{
		CanonicalCourseID: canonical.ID,
		MemberCourseIDs:   memberIDs,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidGroup) || errors.Is(err, service.ErrCourseNotFound) {
			report.skip("group %s: %v", g.ID, err)
			return nil
		}
		return fmt.Errorf("sync group %s: %w", g.ID, err)
	}

	report.Groups++
	a.log.Debug().Str("group_id", group.ID).Str("display_code", group.DisplayCode).Msg("Group synced")
	return nil
}

func (a *Applier) aliasRequest(ctx context.Context, e AliasEntry, source string) (model.UpsertAliasRequest, bool, error) {
	c, err := a.lookup(ctx, e.Canonical)
	if err != nil || c == nil {
		return model.UpsertAliasRequest{}, false, err
	}

	req := model.UpsertAliasRequest{
		SourceCode:        e.SourceCode,
		CanonicalCourseID: c.ID,
		Source:            source,
	}
	if e.SubjectCode != "" {
		subject := e.SubjectCode
		req.SourceSubjectCode = &subject
	}
	if e.CourseUUID != "" {
		id, err := uuid.Parse(e.CourseUUID)
		if err != nil {
			a.log.Warn().Str("source_code", e.SourceCode).Str("course_uuid", e.CourseUUID).Msg("ignoring malformed course uuid")
		} else {
			req.SourceCourseUUID = &id
		}
	}
	return req, true, nil
}

// lookup tries the code as given, then its stored spelling, so manifests
// may use either "CS 240" or "COMP SCI 240". A miss returns nil, nil.
func (a *Applier) lookup(ctx context.Context, code string) (*model.Course, error) {
	normalized := coursecode.Normalize(code)
	if normalized == "" {
		return nil, nil
	}

	candidates := []string{normalized}
	if a.normalizer != nil {
		if stored := a.normalizer.ToStoredCode(normalized); stored != normalized {
			candidates = append(candidates, stored)
		}
	}

	for _, candidate := range candidates {
		c, err := a.courses.GetByCode(ctx, candidate)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("look up course %q: %w", candidate, err)
		}
	}
	return nil, nil
}
