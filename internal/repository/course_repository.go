package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CourseRepository interface {
	GetByID(ctx context.Context, id int) (*model.Course, error)
	GetByIDs(ctx context.Context, ids []int) ([]model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	ListByCrossListGroup(ctx context.Context, groupID string) ([]model.Course, error)
	Search(ctx context.Context, terms []string, limit int) ([]model.Course, error)
}

type courseRepository struct {
	db *pgxpool.Pool
}

func NewCourseRepository(db *pgxpool.Pool) CourseRepository {
	return &courseRepository{db: db}
}

var courseColumns = []string{
	"id", "code", "name", "min_credits", "max_credits", "level",
	"avg_gpa", "avg_rating", "cross_list_group_id", "created_at", "updated_at",
}

func scanCourse(row pgx.Row, c *model.Course) error {
	return row.Scan(&c.ID, &c.Code, &c.Name, &c.MinCredits, &c.MaxCredits, &c.Level,
		&c.AvgGPA, &c.AvgRating, &c.CrossListGroupID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *courseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	c := &model.Course{}
	if err := scanCourse(r.db.QueryRow(ctx, query, args...), c); err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *courseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"code": code}).ToSql()
	if err != nil {
		return nil, err
	}
	c := &model.Course{}
	if err := scanCourse(r.db.QueryRow(ctx, query, args...), c); err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *courseRepository) GetByIDs(ctx context.Context, ids []int) ([]model.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, psql.Select(courseColumns...).
		From("courses").
		Where(sq.Eq{"id": ids}).
		OrderBy("code ASC"))
}

// ListByCrossListGroup returns every course currently assigned to groupID.
func (r *courseRepository) ListByCrossListGroup(ctx context.Context, groupID string) ([]model.Course, error) {
	return r.list(ctx, psql.Select(courseColumns...).
		From("courses").
		Where(sq.Eq{"cross_list_group_id": groupID}).
		OrderBy("code ASC"))
}

// Search matches courses whose code or name contains any of terms. Callers
// pass stored spellings alongside official ones; official codes are never
// persisted.
func (r *courseRepository) Search(ctx context.Context, terms []string, limit int) ([]model.Course, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	or := sq.Or{}
	for _, t := range terms {
		pattern := containsPattern(t)
		or = append(or, sq.ILike{"code": pattern}, sq.ILike{"name": pattern})
	}

	return r.list(ctx, psql.Select(courseColumns...).
		From("courses").
		Where(or).
		OrderBy("code ASC").
		Limit(uint64(limit)))
}

func (r *courseRepository) list(ctx context.Context, b sq.SelectBuilder) ([]model.Course, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build course query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := scanCourse(rows, &c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
