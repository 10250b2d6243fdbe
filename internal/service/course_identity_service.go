package service

import (
	"context"
	"errors"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/rs/zerolog"
)

// CourseIdentityService decides, per request, whether a course id is the
// canonical identity of its class or must redirect to another course.
//
// A course whose code has no alias row and a course whose alias row points
// at itself are both canonical; only an alias pointing elsewhere redirects.
type CourseIdentityService struct {
	courseRepo repository.CourseRepository
	aliasRepo  repository.AliasRepository
	cache      ResolutionCache
	log        zerolog.Logger
}

// NewCourseIdentityService creates a new CourseIdentityService. A nil cache disables caching.
func NewCourseIdentityService(
	courseRepo repository.CourseRepository,
	aliasRepo repository.AliasRepository,
	cache ResolutionCache,
	log zerolog.Logger,
) *CourseIdentityService {
	if cache == nil {
		cache = NopResolutionCache{}
	}
	return &CourseIdentityService{
		courseRepo: courseRepo,
		aliasRepo:  aliasRepo,
		cache:      cache,
		log:        log.With().Str("component", "course_identity_service").Logger(),
	}
}

// CanonicalCourseID looks sourceCode up in the alias table. ok is false when
// the code has never been registered.
func (s *CourseIdentityService) CanonicalCourseID(ctx context.Context, sourceCode string) (int, bool, error) {
	alias, err := s.aliasRepo.GetBySourceCode(ctx, coursecode.Normalize(sourceCode))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeError("get alias", err)
	}
	return alias.CanonicalCourseID, true, nil
}

// Resolve runs the identity check for requestedID. The returned Resolution
// has Redirect set when the caller must send the user to CanonicalID;
// otherwise Course holds the row to render.
func (s *CourseIdentityService) Resolve(ctx context.Context, requestedID int) (*model.Resolution, error) {
	// Read the generation before any store read so a concurrent ingestion
	// run can only retire what we cache, never be shadowed by it.
	generation, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn().Err(genErr).Msg("resolution cache unavailable")
	}

	if genErr == nil {
		canonicalID, ok, err := s.cache.Get(ctx, generation, requestedID)
		if err != nil {
			s.log.Warn().Err(err).Int("course_id", requestedID).Msg("resolution cache read failed")
		} else if ok && canonicalID != requestedID {
			return &model.Resolution{RequestedID: requestedID, CanonicalID: canonicalID, Redirect: true}, nil
		}
	}

	course, err := s.courseRepo.GetByID(ctx, requestedID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, storeError("get course", err)
	}

	canonicalID, ok, err := s.CanonicalCourseID(ctx, course.Code)
	if err != nil {
		return nil, err
	}
	if !ok {
		canonicalID = course.ID
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, generation, requestedID, canonicalID); err != nil {
			s.log.Warn().Err(err).Int("course_id", requestedID).Msg("resolution cache write failed")
		}
	}

	if canonicalID != requestedID {
		s.log.Debug().
			Int("course_id", requestedID).
			Str("code", course.Code).
			Int("canonical_id", canonicalID).
			Msg("Redirecting alias course")
		return &model.Resolution{RequestedID: requestedID, CanonicalID: canonicalID, Redirect: true}, nil
	}

	return &model.Resolution{RequestedID: requestedID, CanonicalID: requestedID, Course: course}, nil
}
