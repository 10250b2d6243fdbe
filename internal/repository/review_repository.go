package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReviewRepository exposes the raw review and grade rows the aggregator sums.
// Review writes belong to the review CRUD screens and are not modelled here.
type ReviewRepository interface {
	ListByCourseIDs(ctx context.Context, courseIDs []int) ([]model.Review, error)
	ListGradesByCourseIDs(ctx context.Context, courseIDs []int) ([]model.GradeDistribution, error)
}

type reviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) ListByCourseIDs(ctx context.Context, courseIDs []int) ([]model.Review, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select(
		"id", "course_id", "title", "body", "overall", "difficulty", "workload", "teaching",
		"grade_received", "term_taken", "upvote_count", "downvote_count", "created_at",
	).
		From("reviews").
		Where(sq.Eq{"course_id": courseIDs}).
		OrderBy("created_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build review query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.CourseID, &rv.Title, &rv.Body, &rv.Overall, &rv.Difficulty,
			&rv.Workload, &rv.Teaching, &rv.GradeReceived, &rv.TermTaken, &rv.UpvoteCount,
			&rv.DownvoteCount, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *reviewRepository) ListGradesByCourseIDs(ctx context.Context, courseIDs []int) ([]model.GradeDistribution, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select("id", "course_id", "term_code", "a", "ab", "b", "bc", "c", "d", "f").
		From("grade_distributions").
		Where(sq.Eq{"course_id": courseIDs}).
		OrderBy("term_code ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build grade query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.GradeDistribution
	for rows.Next() {
		var g model.GradeDistribution
		if err := rows.Scan(&g.ID, &g.CourseID, &g.TermCode, &g.A, &g.AB, &g.B, &g.BC, &g.C, &g.D, &g.F); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
