package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/coursecode"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/rs/zerolog"
)

// ── Fixtures ──

const (
	alphaID = 1
	betaID  = 2
	soloID  = 3
	csID    = 10
	mathID  = 11
)

func strPtr(s string) *string { return &s }

func catalogCourses() []model.Course {
	return []model.Course{
		{ID: alphaID, Code: "E2EALPHA 349", Name: "Alias Course", CrossListGroupID: strPtr("G1")},
		{ID: betaID, Code: "E2EBETA 349", Name: "Canonical Course", CrossListGroupID: strPtr("G1")},
		{ID: soloID, Code: "E2ESOLO 310", Name: "Solo Course"},
		{ID: csID, Code: "CS 240", Name: "Introduction to Discrete Mathematics", CrossListGroupID: strPtr("G2")},
		{ID: mathID, Code: "MATH 240", Name: "Introduction to Discrete Mathematics", CrossListGroupID: strPtr("G2")},
	}
}

func catalogAliases() []model.CourseCodeAlias {
	now := time.Now()
	return []model.CourseCodeAlias{
		{SourceCode: "E2EALPHA 349", CanonicalCourseID: betaID, Source: "fixture", LastSeenAt: now},
		{SourceCode: "E2EBETA 349", CanonicalCourseID: betaID, Source: "fixture", LastSeenAt: now},
		{SourceCode: "E2ESOLO 310", CanonicalCourseID: soloID, Source: "fixture", LastSeenAt: now},
		{SourceCode: "MATH 240", CanonicalCourseID: csID, Source: "fixture", LastSeenAt: now},
	}
}

func catalogGroups() []model.CrossListGroup {
	return []model.CrossListGroup{
		{ID: "G1", DisplayCode: "E2EBETA 349 / E2EALPHA 349"},
		{ID: "G2", DisplayCode: "COMP SCI 240 / MATH 240"},
	}
}

func testNormalizer(t *testing.T) *coursecode.Normalizer {
	t.Helper()
	aliases, err := coursecode.DefaultDepartmentAliases()
	if err != nil {
		t.Fatalf("load department aliases: %v", err)
	}
	return coursecode.NewNormalizer(aliases)
}

type testCatalog struct {
	courses    *mockCourseRepo
	aliases    *mockAliasRepo
	crossLists *mockCrossListRepo
	reviews    *mockReviewRepo
	cache      *mockResolutionCache
	normalizer *coursecode.Normalizer
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	courses := newMockCourseRepo(catalogCourses()...)
	aliases := newMockAliasRepo(catalogAliases()...)
	return &testCatalog{
		courses:    courses,
		aliases:    aliases,
		crossLists: newMockCrossListRepo(courses, aliases, catalogGroups()...),
		reviews:    &mockReviewRepo{},
		cache:      newMockResolutionCache(),
		normalizer: testNormalizer(t),
	}
}

func (tc *testCatalog) identity() *CourseIdentityService {
	return NewCourseIdentityService(tc.courses, tc.aliases, tc.cache, zerolog.Nop())
}

// ── Resolve ──

func TestResolve_AliasRedirectsToCanonical(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	res, err := svc.Resolve(context.Background(), alphaID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Redirect {
		t.Fatal("expected redirect for alias course")
	}
	if res.CanonicalID != betaID {
		t.Errorf("expected canonical %d, got %d", betaID, res.CanonicalID)
	}
	if res.Course != nil {
		t.Error("redirect should not carry a course to render")
	}
}

func TestResolve_SelfAliasRenders(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	res, err := svc.Resolve(context.Background(), soloID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect {
		t.Fatal("self alias must not redirect")
	}
	if res.Course == nil || res.Course.ID != soloID {
		t.Fatalf("expected course %d to render, got %+v", soloID, res.Course)
	}
}

func TestResolve_NoAliasRowRenders(t *testing.T) {
	tc := newTestCatalog(t)
	delete(tc.aliases.aliases, "E2ESOLO 310")
	svc := tc.identity()

	res, err := svc.Resolve(context.Background(), soloID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect || res.CanonicalID != soloID {
		t.Fatalf("course without alias row should be canonical, got %+v", res)
	}
}

func TestResolve_CanonicalIsIdempotent(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	for _, id := range []int{betaID, soloID, csID} {
		for i := 0; i < 3; i++ {
			res, err := svc.Resolve(context.Background(), id)
			if err != nil {
				t.Fatalf("resolve %d: %v", id, err)
			}
			if res.Redirect || res.CanonicalID != id {
				t.Fatalf("canonical course %d resolved to %+v", id, res)
			}
		}
	}
}

func TestResolve_AliasConverges(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	for _, id := range []int{alphaID, mathID} {
		first, err := svc.Resolve(context.Background(), id)
		if err != nil {
			t.Fatalf("resolve %d: %v", id, err)
		}
		for i := 0; i < 3; i++ {
			again, err := svc.Resolve(context.Background(), id)
			if err != nil {
				t.Fatalf("resolve %d: %v", id, err)
			}
			if again.CanonicalID != first.CanonicalID {
				t.Fatalf("alias %d moved from %d to %d", id, first.CanonicalID, again.CanonicalID)
			}
		}

		// The redirect target itself must render.
		target, err := svc.Resolve(context.Background(), first.CanonicalID)
		if err != nil {
			t.Fatalf("resolve target %d: %v", first.CanonicalID, err)
		}
		if target.Redirect {
			t.Fatalf("redirect target %d redirects again", first.CanonicalID)
		}
	}
}

func TestResolve_NormalizesLookupKey(t *testing.T) {
	tc := newTestCatalog(t)
	tc.courses.courses[alphaID].Code = "  e2ealpha   349 "
	svc := tc.identity()

	res, err := svc.Resolve(context.Background(), alphaID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Redirect || res.CanonicalID != betaID {
		t.Fatalf("expected redirect to %d, got %+v", betaID, res)
	}
}

func TestResolve_NotFound(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	_, err := svc.Resolve(context.Background(), 999)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	tc := newTestCatalog(t)
	driverErr := errors.New("connection refused")
	tc.aliases.err = driverErr
	svc := tc.identity()

	_, err := svc.Resolve(context.Background(), alphaID)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, driverErr) {
		t.Error("store error should unwrap to the driver error")
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.Op != "get alias" {
		t.Errorf("expected StoreError for get alias, got %#v", err)
	}
}

func TestResolve_UsesCacheWithinGeneration(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	if _, err := svc.Resolve(context.Background(), alphaID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := tc.courses.getByIDCalls

	res, err := svc.Resolve(context.Background(), alphaID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Redirect || res.CanonicalID != betaID {
		t.Fatalf("cached resolution wrong: %+v", res)
	}
	if tc.courses.getByIDCalls != calls {
		t.Error("cached redirect should not read the course store")
	}
}

func TestResolve_InvalidateRetiresCachedRedirect(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	if _, err := svc.Resolve(context.Background(), alphaID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ingestion moves E2EALPHA out of the group and bumps the generation.
	tc.aliases.aliases["E2EALPHA 349"] = model.CourseCodeAlias{SourceCode: "E2EALPHA 349", CanonicalCourseID: alphaID}
	if err := tc.cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	res, err := svc.Resolve(context.Background(), alphaID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect {
		t.Fatal("stale redirect served after generation bump")
	}
}

func TestResolve_CacheFailureIsBypassed(t *testing.T) {
	tc := newTestCatalog(t)
	tc.cache.err = errors.New("redis down")
	svc := tc.identity()

	res, err := svc.Resolve(context.Background(), alphaID)
	if err != nil {
		t.Fatalf("cache failure must not fail resolution: %v", err)
	}
	if !res.Redirect || res.CanonicalID != betaID {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestCanonicalCourseID_Miss(t *testing.T) {
	tc := newTestCatalog(t)
	svc := tc.identity()

	_, ok, err := svc.CanonicalCourseID(context.Background(), "NEVER 101")
	if err != nil {
		t.Fatalf("alias miss is not an error: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}
