package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// titleSeparator joins member codes in an aggregated heading.
const titleSeparator = " / "

// CrossListAggregator merges the courses of one cross-list group into a
// single display identity.
type CrossListAggregator struct {
	courseRepo    repository.CourseRepository
	crossListRepo repository.CrossListRepository
	reviewRepo    repository.ReviewRepository
	normalizer    *coursecode.Normalizer
	log           zerolog.Logger
}

// NewCrossListAggregator creates a new CrossListAggregator.
func NewCrossListAggregator(
	courseRepo repository.CourseRepository,
	crossListRepo repository.CrossListRepository,
	reviewRepo repository.ReviewRepository,
	normalizer *coursecode.Normalizer,
	log zerolog.Logger,
) *CrossListAggregator {
	return &CrossListAggregator{
		courseRepo:    courseRepo,
		crossListRepo: crossListRepo,
		reviewRepo:    reviewRepo,
		normalizer:    normalizer,
		log:           log.With().Str("component", "cross_list_aggregator").Logger(),
	}
}

// Members returns the canonical course and every course sharing its
// cross-list group, ordered by id. A course outside any group is its own
// only member.
func (a *CrossListAggregator) Members(ctx context.Context, canonical *model.Course) ([]model.Course, error) {
	if canonical.CrossListGroupID == nil {
		return []model.Course{*canonical}, nil
	}

	courses, err := a.courseRepo.ListByCrossListGroup(ctx, *canonical.CrossListGroupID)
	if err != nil {
		return nil, storeError("list group members", err)
	}

	// The canonical row is always a member even if the group moved under us.
	seen := map[int]bool{canonical.ID: true}
	members := []model.Course{*canonical}
	for _, c := range courses {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		members = append(members, c)
	}

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// AggregateDisplayTitle returns the heading for canonical: its own official
// code, or every member's official code joined by " / ".
func (a *CrossListAggregator) AggregateDisplayTitle(ctx context.Context, canonical *model.Course) (string, error) {
	members, err := a.Members(ctx, canonical)
	if err != nil {
		return "", err
	}
	return a.displayTitle(ctx, canonical, members)
}

// AggregateReviewStatistics merges reviews and grade distributions across the
// group. A review or grade row reachable from two members counts once.
func (a *CrossListAggregator) AggregateReviewStatistics(ctx context.Context, canonical *model.Course) (*model.CourseStats, error) {
	members, err := a.Members(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return a.stats(ctx, members)
}

// GroupReviews returns the de-duplicated reviews of every member, newest first.
func (a *CrossListAggregator) GroupReviews(ctx context.Context, canonical *model.Course) ([]model.Review, error) {
	members, err := a.Members(ctx, canonical)
	if err != nil {
		return nil, err
	}

	reviews, err := a.reviewRepo.ListByCourseIDs(ctx, courseIDs(members))
	if err != nil {
		return nil, storeError("list reviews", err)
	}
	reviews = uniqueReviews(reviews)

	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}

// Page builds the full render payload for canonical with one member fetch.
func (a *CrossListAggregator) Page(ctx context.Context, canonical *model.Course) (*model.CoursePage, error) {
	members, err := a.Members(ctx, canonical)
	if err != nil {
		return nil, err
	}

	title, err := a.displayTitle(ctx, canonical, members)
	if err != nil {
		return nil, err
	}

	stats, err := a.stats(ctx, members)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.CourseSummary, 0, len(members))
	for _, m := range members {
		summaries = append(summaries, a.summary(m))
	}

	return &model.CoursePage{
		Course:  a.summary(*canonical),
		Title:   title,
		Members: summaries,
		Stats:   *stats,
	}, nil
}

func (a *CrossListAggregator) summary(c model.Course) model.CourseSummary {
	return model.CourseSummary{Course: c, OfficialCode: a.officialCode(c.Code)}
}

func (a *CrossListAggregator) officialCode(code string) string {
	return a.normalizer.ToOfficialCode(coursecode.Normalize(code))
}

func (a *CrossListAggregator) displayTitle(ctx context.Context, canonical *model.Course, members []model.Course) (string, error) {
	if canonical.CrossListGroupID == nil {
		return a.officialCode(canonical.Code), nil
	}

	var displayCode string
	group, err := a.crossListRepo.GetByID(ctx, *canonical.CrossListGroupID)
	switch {
	case err == nil:
		displayCode = group.DisplayCode
	case errors.Is(err, repository.ErrNotFound):
		a.log.Warn().
			Str("group_id", *canonical.CrossListGroupID).
			Int("course_id", canonical.ID).
			Msg("Course references a missing cross-list group")
	default:
		return "", storeError("get cross-list group", err)
	}

	codes := make([]string, 0, len(members))
	for _, m := range members {
		codes = append(codes, a.officialCode(m.Code))
	}
	return strings.Join(a.orderCodes(codes, displayCode), titleSeparator), nil
}

// orderCodes de-duplicates codes and orders them by their position in
// displayCode, then lexicographically for codes displayCode does not name.
func (a *CrossListAggregator) orderCodes(codes []string, displayCode string) []string {
	rank := make(map[string]int)
	if displayCode != "" {
		for i, part := range strings.Split(displayCode, "/") {
			official := a.officialCode(part)
			if official == "" {
				continue
			}
			if _, ok := rank[official]; !ok {
				rank[official] = i
			}
		}
	}

	seen := make(map[string]bool, len(codes))
	unique := make([]string, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		unique = append(unique, c)
	}

	sort.Slice(unique, func(i, j int) bool {
		ri, iok := rank[unique[i]]
		rj, jok := rank[unique[j]]
		switch {
		case iok && jok:
			if ri != rj {
				return ri < rj
			}
		case iok:
			return true
		case jok:
			return false
		}
		return unique[i] < unique[j]
	})
	return unique
}

func (a *CrossListAggregator) stats(ctx context.Context, members []model.Course) (*model.CourseStats, error) {
	ids := courseIDs(members)

	reviews, err := a.reviewRepo.ListByCourseIDs(ctx, ids)
	if err != nil {
		return nil, storeError("list reviews", err)
	}

	grades, err := a.reviewRepo.ListGradesByCourseIDs(ctx, ids)
	if err != nil {
		return nil, storeError("list grade distributions", err)
	}

	stats := summarize(uniqueReviews(reviews), uniqueGrades(grades))
	stats.CourseIDs = ids
	return &stats, nil
}

func courseIDs(courses []model.Course) []int {
	ids := make([]int, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	sort.Ints(ids)
	return ids
}

func uniqueReviews(reviews []model.Review) []model.Review {
	seen := make(map[uuid.UUID]bool, len(reviews))
	out := reviews[:0:0]
	for _, r := range reviews {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

func uniqueGrades(grades []model.GradeDistribution) []model.GradeDistribution {
	seen := make(map[int]bool, len(grades))
	out := grades[:0:0]
	for _, g := range grades {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		out = append(out, g)
	}
	return out
}
