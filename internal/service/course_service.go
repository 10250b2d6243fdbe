package service

import (
	"context"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/rs/zerolog"
)

// CourseService serves the read side of the catalog: course pages, group
// reviews and alias-expanded search.
type CourseService interface {
	// GetPage resolves id and, when it is canonical, builds its page.
	// A redirecting Resolution comes back with a nil page.
	GetPage(ctx context.Context, id int) (*model.Resolution, *model.CoursePage, error)
	GetReviews(ctx context.Context, id int) (*model.Resolution, []model.Review, error)
	Search(ctx context.Context, query string, limit int) (*model.CourseSearchResult, error)
	ExpandDepartment(token string) []string
}

type courseService struct {
	identity    *CourseIdentityService
	aggregator  *CrossListAggregator
	courseRepo  repository.CourseRepository
	normalizer  *coursecode.Normalizer
	searchLimit int
	log         zerolog.Logger
}

// NewCourseService creates a new CourseService. searchLimit caps and
// defaults the number of search results.
func NewCourseService(
	identity *CourseIdentityService,
	aggregator *CrossListAggregator,
	courseRepo repository.CourseRepository,
	normalizer *coursecode.Normalizer,
	searchLimit int,
	log zerolog.Logger,
) CourseService {
	if searchLimit <= 0 {
		searchLimit = 25
	}
	return &courseService{
		identity:    identity,
		aggregator:  aggregator,
		courseRepo:  courseRepo,
		normalizer:  normalizer,
		searchLimit: searchLimit,
		log:         log.With().Str("component", "course_service").Logger(),
	}
}

func (s *courseService) GetPage(ctx context.Context, id int) (*model.Resolution, *model.CoursePage, error) {
	res, err := s.identity.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if res.Redirect {
		return res, nil, nil
	}

	page, err := s.aggregator.Page(ctx, res.Course)
	if err != nil {
		return nil, nil, err
	}
	return res, page, nil
}

func (s *courseService) GetReviews(ctx context.Context, id int) (*model.Resolution, []model.Review, error) {
	res, err := s.identity.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if res.Redirect {
		return res, nil, nil
	}

	reviews, err := s.aggregator.GroupReviews(ctx, res.Course)
	if err != nil {
		return nil, nil, err
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	return res, reviews, nil
}

func (s *courseService) Search(ctx context.Context, query string, limit int) (*model.CourseSearchResult, error) {
	if coursecode.Normalize(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 || limit > s.searchLimit {
		limit = s.searchLimit
	}

	terms := s.normalizer.ExpandSearch(query)
	courses, err := s.courseRepo.Search(ctx, s.storedTerms(terms), limit)
	if err != nil {
		return nil, storeError("search courses", err)
	}

	result := &model.CourseSearchResult{
		Terms:   terms,
		Courses: make([]model.CourseSummary, 0, len(courses)),
	}
	for _, c := range courses {
		result.Courses = append(result.Courses, s.aggregator.summary(c))
	}

	s.log.Debug().
		Str("query", query).
		Int("terms", len(terms)).
		Int("hits", len(result.Courses)).
		Msg("Course search")
	return result, nil
}

func (s *courseService) ExpandDepartment(token string) []string {
	return s.normalizer.ExpandDepartment(token)
}

// storedTerms adds the stored spelling of every term so codes typed in
// official form match the code column directly.
func (s *courseService) storedTerms(terms []string) []string {
	out := make([]string, 0, len(terms)*2)
	seen := make(map[string]bool, len(terms)*2)
	for _, t := range terms {
		for _, v := range []string{t, s.normalizer.ToStoredCode(t)} {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
