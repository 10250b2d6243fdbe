package repository

import (
	"context"
	"fmt"

	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CrossListRepository interface {
	GetByID(ctx context.Context, groupID string) (*model.CrossListGroup, error)
	ReplaceMembers(ctx context.Context, group *model.CrossListGroup, courseIDs []int, aliases []model.CourseCodeAlias) error
}

type crossListRepository struct {
	db *pgxpool.Pool
}

func NewCrossListRepository(db *pgxpool.Pool) CrossListRepository {
	return &crossListRepository{db: db}
}

func (r *crossListRepository) GetByID(ctx context.Context, groupID string) (*model.CrossListGroup, error) {
	g := &model.CrossListGroup{}
	err := r.db.QueryRow(ctx,
		`SELECT id, display_code, updated_at FROM cross_list_groups WHERE id = $1`, groupID,
	).Scan(&g.ID, &g.DisplayCode, &g.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return g, nil
}

// ReplaceMembers upserts the group, makes courseIDs its exact membership and
// writes the member aliases in one transaction, so readers see either the
// old or the new group.
func (r *crossListRepository) ReplaceMembers(ctx context.Context, group *model.CrossListGroup, courseIDs []int, aliases []model.CourseCodeAlias) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO cross_list_groups (id, display_code, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET display_code = EXCLUDED.display_code, updated_at = NOW()
			RETURNING updated_at`,
			group.ID, group.DisplayCode,
		).Scan(&group.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upsert group: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE courses SET cross_list_group_id = NULL, updated_at = NOW()
			WHERE cross_list_group_id = $1 AND NOT (id = ANY($2::int[]))`,
			group.ID, courseIDs,
		); err != nil {
			return fmt.Errorf("detach members: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE courses SET cross_list_group_id = $1, updated_at = NOW()
			WHERE id = ANY($2::int[])`,
			group.ID, courseIDs,
		)
		if err != nil {
			return fmt.Errorf("attach members: %w", err)
		}
		if tag.RowsAffected() != int64(len(courseIDs)) {
			return fmt.Errorf("attach members: %w", ErrNotFound)
		}

		if err := bulkUpsertAliases(ctx, tx, aliases); err != nil {
			return fmt.Errorf("upsert group aliases: %w", err)
		}
		return nil
	})
}
