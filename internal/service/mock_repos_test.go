package service

import (
	"context"
	"sort"

	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/coursetalk/coursetalk-backend/internal/repository"
)

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses      map[int]*model.Course
	err          error
	searched     [][]string
	getByIDCalls int
}

func newMockCourseRepo(courses ...model.Course) *mockCourseRepo {
	m := &mockCourseRepo{courses: make(map[int]*model.Course)}
	for i := range courses {
		c := courses[i]
		m.courses[c.ID] = &c
	}
	return m
}

func (m *mockCourseRepo) GetByID(_ context.Context, id int) (*model.Course, error) {
	m.getByIDCalls++
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockCourseRepo) GetByIDs(_ context.Context, ids []int) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.courses {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCourseRepo) ListByCrossListGroup(_ context.Context, groupID string) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Course
	for _, c := range m.courses {
		if c.CrossListGroupID != nil && *c.CrossListGroupID == groupID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockCourseRepo) Search(_ context.Context, terms []string, limit int) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.searched = append(m.searched, terms)
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	var out []model.Course
	for _, c := range m.courses {
		if want[c.Code] {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Mock AliasRepository ──

type mockAliasRepo struct {
	aliases map[string]model.CourseCodeAlias
	err     error
	bulkErr error
	bulks   int
}

func newMockAliasRepo(aliases ...model.CourseCodeAlias) *mockAliasRepo {
	m := &mockAliasRepo{aliases: make(map[string]model.CourseCodeAlias)}
	for _, a := range aliases {
		m.aliases[a.SourceCode] = a
	}
	return m
}

func (m *mockAliasRepo) GetBySourceCode(_ context.Context, sourceCode string) (*model.CourseCodeAlias, error) {
	if m.err != nil {
		return nil, m.err
	}
	if a, ok := m.aliases[sourceCode]; ok {
		return &a, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAliasRepo) ListByCanonical(_ context.Context, courseID int) ([]model.CourseCodeAlias, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.CourseCodeAlias
	for _, a := range m.aliases {
		if a.CanonicalCourseID == courseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceCode < out[j].SourceCode })
	return out, nil
}

func (m *mockAliasRepo) Upsert(_ context.Context, alias *model.CourseCodeAlias) error {
	if m.err != nil {
		return m.err
	}
	m.aliases[alias.SourceCode] = *alias
	return nil
}

func (m *mockAliasRepo) BulkUpsert(_ context.Context, aliases []model.CourseCodeAlias) error {
	if m.bulkErr != nil {
		return m.bulkErr
	}
	m.bulks++
	for _, a := range aliases {
		m.aliases[a.SourceCode] = a
	}
	return nil
}

func (m *mockAliasRepo) BackfillSelfAliases(_ context.Context, _ string) (int64, error) {
	return 0, m.err
}

// ── Mock CrossListRepository ──

type mockCrossListRepo struct {
	groups  map[string]*model.CrossListGroup
	courses *mockCourseRepo
	aliases *mockAliasRepo
	err     error
}

func newMockCrossListRepo(courses *mockCourseRepo, aliases *mockAliasRepo, groups ...model.CrossListGroup) *mockCrossListRepo {
	m := &mockCrossListRepo{groups: make(map[string]*model.CrossListGroup), courses: courses, aliases: aliases}
	for i := range groups {
		g := groups[i]
		m.groups[g.ID] = &g
	}
	return m
}

func (m *mockCrossListRepo) GetByID(_ context.Context, groupID string) (*model.CrossListGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	if g, ok := m.groups[groupID]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

// ReplaceMembers validates everything before mutating, like a rolled back
// transaction. The alias repo's bulkErr fails the whole write.
func (m *mockCrossListRepo) ReplaceMembers(_ context.Context, group *model.CrossListGroup, courseIDs []int, aliases []model.CourseCodeAlias) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range courseIDs {
		if _, ok := m.courses.courses[id]; !ok {
			return repository.ErrNotFound
		}
	}
	if m.aliases.bulkErr != nil {
		return m.aliases.bulkErr
	}

	cp := *group
	m.groups[group.ID] = &cp

	keep := make(map[int]bool, len(courseIDs))
	for _, id := range courseIDs {
		keep[id] = true
	}
	for _, c := range m.courses.courses {
		if c.CrossListGroupID != nil && *c.CrossListGroupID == group.ID && !keep[c.ID] {
			c.CrossListGroupID = nil
		}
	}
	for _, id := range courseIDs {
		gid := group.ID
		m.courses.courses[id].CrossListGroupID = &gid
	}
	for _, a := range aliases {
		m.aliases.aliases[a.SourceCode] = a
	}
	return nil
}

// ── Mock ReviewRepository ──

type mockReviewRepo struct {
	reviews []model.Review
	grades  []model.GradeDistribution
	err     error
}

func (m *mockReviewRepo) ListByCourseIDs(_ context.Context, courseIDs []int) ([]model.Review, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[int]bool, len(courseIDs))
	for _, id := range courseIDs {
		want[id] = true
	}
	var out []model.Review
	for _, r := range m.reviews {
		if want[r.CourseID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) ListGradesByCourseIDs(_ context.Context, courseIDs []int) ([]model.GradeDistribution, error) {
	if m.err != nil {
		return nil, m.err
	}
	want := make(map[int]bool, len(courseIDs))
	for _, id := range courseIDs {
		want[id] = true
	}
	var out []model.GradeDistribution
	for _, g := range m.grades {
		if want[g.CourseID] {
			out = append(out, g)
		}
	}
	return out, nil
}

// ── Mock ResolutionCache ──

type mockResolutionCache struct {
	generation int64
	entries    map[int64]map[int]int
	err        error
}

func newMockResolutionCache() *mockResolutionCache {
	return &mockResolutionCache{entries: make(map[int64]map[int]int)}
}

func (m *mockResolutionCache) Generation(context.Context) (int64, error) {
	return m.generation, m.err
}

func (m *mockResolutionCache) Get(_ context.Context, generation int64, courseID int) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	id, ok := m.entries[generation][courseID]
	return id, ok, nil
}

func (m *mockResolutionCache) Set(_ context.Context, generation int64, courseID, canonicalID int) error {
	if m.err != nil {
		return m.err
	}
	if m.entries[generation] == nil {
		m.entries[generation] = make(map[int]int)
	}
	m.entries[generation][courseID] = canonicalID
	return nil
}

func (m *mockResolutionCache) Invalidate(context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.generation++
	return nil
}

// ── Mock AliasQueue ──

type mockAliasQueue struct {
	pushed []model.CourseCodeAlias
	err    error
}

func (m *mockAliasQueue) Push(_ context.Context, aliases []model.CourseCodeAlias) error {
	if m.err != nil {
		return m.err
	}
	m.pushed = append(m.pushed, aliases...)
	return nil
}
