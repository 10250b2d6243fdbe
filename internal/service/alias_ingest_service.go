package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Provenance values written to course_code_aliases.source.
const (
	AliasSourceAdmin     = "admin"
	AliasSourceCrossList = "cross_list"
	AliasSourceBackfill  = "self_backfill"
)

// AliasIngestService is the only writer of aliases and cross-list groups.
// Every successful write starts a new resolution cache generation.
type AliasIngestService interface {
	GetAlias(ctx context.Context, sourceCode string) (*model.CourseCodeAlias, error)
	ListAliases(ctx context.Context, courseID int) ([]model.CourseCodeAlias, error)
	UpsertAlias(ctx context.Context, req model.UpsertAliasRequest) (*model.CourseCodeAlias, error)
	EnqueueAliases(ctx context.Context, reqs []model.UpsertAliasRequest) (int, error)
	SyncCrossListGroup(ctx context.Context, groupID string, req model.SyncCrossListGroupRequest) (*model.CrossListGroup, error)
	BackfillSelfAliases(ctx context.Context, source string) (int64, error)
}

type aliasIngestService struct {
	courseRepo    repository.CourseRepository
	aliasRepo     repository.AliasRepository
	crossListRepo repository.CrossListRepository
	queue         AliasQueue
	cache         ResolutionCache
	normalizer    *coursecode.Normalizer
	now           func() time.Time
	log           zerolog.Logger
}

// NewAliasIngestService creates a new AliasIngestService. A nil cache
// disables invalidation; a nil queue makes EnqueueAliases write directly.
func NewAliasIngestService(
	courseRepo repository.CourseRepository,
	aliasRepo repository.AliasRepository,
	crossListRepo repository.CrossListRepository,
	queue AliasQueue,
	cache ResolutionCache,
	normalizer *coursecode.Normalizer,
	log zerolog.Logger,
) AliasIngestService {
	if cache == nil {
		cache = NopResolutionCache{}
	}
	return &aliasIngestService{
		courseRepo:    courseRepo,
		aliasRepo:     aliasRepo,
		crossListRepo: crossListRepo,
		queue:         queue,
		cache:         cache,
		normalizer:    normalizer,
		now:           time.Now,
		log:           log.With().Str("component", "alias_ingest_service").Logger(),
	}
}

func (s *aliasIngestService) GetAlias(ctx context.Context, sourceCode string) (*model.CourseCodeAlias, error) {
	alias, err := s.aliasRepo.GetBySourceCode(ctx, coursecode.Normalize(sourceCode))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAliasNotFound
	}
	if err != nil {
		return nil, storeError("get alias", err)
	}
	return alias, nil
}

func (s *aliasIngestService) ListAliases(ctx context.Context, courseID int) ([]model.CourseCodeAlias, error) {
	aliases, err := s.aliasRepo.ListByCanonical(ctx, courseID)
	if err != nil {
		return nil, storeError("list aliases", err)
	}
	if aliases == nil {
		aliases = []model.CourseCodeAlias{}
	}
	return aliases, nil
}

func (s *aliasIngestService) UpsertAlias(ctx context.Context, req model.UpsertAliasRequest) (*model.CourseCodeAlias, error) {
	alias, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.courseRepo.GetByID(ctx, alias.CanonicalCourseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, storeError("get canonical course", err)
	}

	if err := s.aliasRepo.Upsert(ctx, &alias); err != nil {
		return nil, storeError("upsert alias", err)
	}
	s.invalidate(ctx)

	s.log.Info().
		Str("source_code", alias.SourceCode).
		Int("canonical_id", alias.CanonicalCourseID).
		Str("source", alias.Source).
		Msg("Alias upserted")
	return &alias, nil
}

// EnqueueAliases validates the batch and hands it to the ingest worker.
// Nothing is queued unless every row is valid.
func (s *aliasIngestService) EnqueueAliases(ctx context.Context, reqs []model.UpsertAliasRequest) (int, error) {
	aliases := make([]model.CourseCodeAlias, 0, len(reqs))
	canonical := make(map[int]struct{})
	for _, r := range reqs {
		a, err := s.prepare(r)
		if err != nil {
			return 0, err
		}
		aliases = append(aliases, a)
		canonical[a.CanonicalCourseID] = struct{}{}
	}
	if len(aliases) == 0 {
		return 0, nil
	}

	ids := make([]int, 0, len(canonical))
	for id := range canonical {
		ids = append(ids, id)
	}
	courses, err := s.courseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, storeError("get canonical courses", err)
	}
	if len(courses) != len(ids) {
		return 0, ErrCourseNotFound
	}

	if s.queue == nil {
		if err := s.aliasRepo.BulkUpsert(ctx, aliases); err != nil {
			return 0, storeError("bulk upsert aliases", err)
		}
		s.invalidate(ctx)
		return len(aliases), nil
	}

	if err := s.queue.Push(ctx, aliases); err != nil {
		return 0, storeError("enqueue aliases", err)
	}
	s.log.Info().Int("count", len(aliases)).Msg("Aliases queued for ingest")
	return len(aliases), nil
}

// SyncCrossListGroup makes the given courses the exact membership of
// groupID and recomputes its display code. Member codes are aliased to the
// canonical course in the same transaction as the membership change.
func (s *aliasIngestService) SyncCrossListGroup(ctx context.Context, groupID string, req model.SyncCrossListGroupRequest) (*model.CrossListGroup, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || req.CanonicalCourseID <= 0 {
		return nil, ErrInvalidGroup
	}

	seen := map[int]bool{req.CanonicalCourseID: true}
	ids := []int{req.CanonicalCourseID}
	for _, id := range req.MemberCourseIDs {
		if id <= 0 {
			return nil, ErrInvalidGroup
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	courses, err := s.courseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeError("get group members", err)
	}
	if len(courses) != len(ids) {
		return nil, ErrCourseNotFound
	}

	previous, err := s.courseRepo.ListByCrossListGroup(ctx, groupID)
	if err != nil {
		return nil, storeError("list previous members", err)
	}

	// Members point at the canonical course; courses that left the group
	// become their own canonical again.
	now := s.now()
	aliases := make([]model.CourseCodeAlias, 0, len(courses)+len(previous))
	for _, c := range previous {
		if seen[c.ID] {
			continue
		}
		aliases = append(aliases, model.CourseCodeAlias{
			SourceCode:        coursecode.Normalize(c.Code),
			CanonicalCourseID: c.ID,
			Source:            AliasSourceCrossList,
			LastSeenAt:        now,
		})
	}
	for _, c := range courses {
		aliases = append(aliases, model.CourseCodeAlias{
			SourceCode:        coursecode.Normalize(c.Code),
			CanonicalCourseID: req.CanonicalCourseID,
			Source:            AliasSourceCrossList,
			LastSeenAt:        now,
		})
	}

	group := &model.CrossListGroup{
		ID:          groupID,
		DisplayCode: s.displayCode(req.CanonicalCourseID, courses),
	}
	if err := s.crossListRepo.ReplaceMembers(ctx, group, ids, aliases); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, storeError("replace group members", err)
	}
	s.invalidate(ctx)

	s.log.Info().
		Str("group_id", group.ID).
		Str("display_code", group.DisplayCode).
		Int("members", len(ids)).
		Msg("Cross-list group synced")
	return group, nil
}

func (s *aliasIngestService) BackfillSelfAliases(ctx context.Context, source string) (int64, error) {
	if source == "" {
		source = AliasSourceBackfill
	}
	n, err := s.aliasRepo.BackfillSelfAliases(ctx, source)
	if err != nil {
		return 0, storeError("backfill self aliases", err)
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	s.log.Info().Int64("inserted", n).Msg("Self aliases backfilled")
	return n, nil
}

// displayCode puts the canonical member first and the rest in official
// code order.
func (s *aliasIngestService) displayCode(canonicalID int, courses []model.Course) string {
	var head string
	rest := make([]string, 0, len(courses))
	for _, c := range courses {
		code := s.normalizer.ToOfficialCode(coursecode.Normalize(c.Code))
		if c.ID == canonicalID {
			head = code
			continue
		}
		rest = append(rest, code)
	}
	sort.Strings(rest)

	codes := []string{head}
	for _, c := range rest {
		if c != codes[len(codes)-1] && c != head {
			codes = append(codes, c)
		}
	}
	return strings.Join(codes, titleSeparator)
}

func (s *aliasIngestService) prepare(req model.UpsertAliasRequest) (model.CourseCodeAlias, error) {
	a := req.ToAlias(s.now())
	a.SourceCode = coursecode.Normalize(a.SourceCode)
	if a.SourceCode == "" {
		return a, ErrInvalidAlias
	}
	if a.CanonicalCourseID <= 0 {
		return a, ErrCourseNotFound
	}
	if a.Source == "" {
		a.Source = AliasSourceAdmin
	}
	if a.SourceSubjectCode != nil {
		subject := strings.TrimSpace(*a.SourceSubjectCode)
		a.SourceSubjectCode = &subject
	}
	return a, nil
}

func (s *aliasIngestService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to bump catalog generation")
	}
}
