package repository

import (
	"context"
	"time"

	"github.com/coursetalk/coursetalk-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AliasRepository reads and writes course_code_aliases. source_code is the
// primary key, so one code never maps to two canonical courses.
type AliasRepository interface {
	GetBySourceCode(ctx context.Context, sourceCode string) (*model.CourseCodeAlias, error)
	ListByCanonical(ctx context.Context, courseID int) ([]model.CourseCodeAlias, error)
	Upsert(ctx context.Context, alias *model.CourseCodeAlias) error
	BulkUpsert(ctx context.Context, aliases []model.CourseCodeAlias) error
	BackfillSelfAliases(ctx context.Context, source string) (int64, error)
}

type aliasRepository struct {
	db *pgxpool.Pool
}

func NewAliasRepository(db *pgxpool.Pool) AliasRepository {
	return &aliasRepository{db: db}
}

const aliasSelect = `
	SELECT source_code, canonical_course_id, source_course_uuid, source_subject_code, source, last_seen_at
	FROM course_code_aliases`

func (r *aliasRepository) GetBySourceCode(ctx context.Context, sourceCode string) (*model.CourseCodeAlias, error) {
	a := &model.CourseCodeAlias{}
	err := r.db.QueryRow(ctx, aliasSelect+` WHERE source_code = $1`, sourceCode).Scan(
		&a.SourceCode, &a.CanonicalCourseID, &a.SourceCourseUUID, &a.SourceSubjectCode, &a.Source, &a.LastSeenAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *aliasRepository) ListByCanonical(ctx context.Context, courseID int) ([]model.CourseCodeAlias, error) {
	rows, err := r.db.Query(ctx, aliasSelect+` WHERE canonical_course_id = $1 ORDER BY source_code ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []model.CourseCodeAlias
	for rows.Next() {
		var a model.CourseCodeAlias
		if err := rows.Scan(&a.SourceCode, &a.CanonicalCourseID, &a.SourceCourseUUID, &a.SourceSubjectCode, &a.Source, &a.LastSeenAt); err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (r *aliasRepository) Upsert(ctx context.Context, a *model.CourseCodeAlias) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO course_code_aliases
			(source_code, canonical_course_id, source_course_uuid, source_subject_code, source, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_code) DO UPDATE SET
			canonical_course_id = EXCLUDED.canonical_course_id,
			source_course_uuid  = EXCLUDED.source_course_uuid,
			source_subject_code = EXCLUDED.source_subject_code,
			source              = EXCLUDED.source,
			last_seen_at        = EXCLUDED.last_seen_at`,
		a.SourceCode, a.CanonicalCourseID, a.SourceCourseUUID, a.SourceSubjectCode, a.Source, a.LastSeenAt)
	return err
}

// BulkUpsert writes a batch with one UNNEST statement. Later rows win when the
// batch repeats a source code, matching sequential Upsert calls.
func (r *aliasRepository) BulkUpsert(ctx context.Context, aliases []model.CourseCodeAlias) error {
	return bulkUpsertAliases(ctx, r.db, aliases)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func bulkUpsertAliases(ctx context.Context, db execer, aliases []model.CourseCodeAlias) error {
	if len(aliases) == 0 {
		return nil
	}

	latest := make(map[string]int, len(aliases))
	order := make([]string, 0, len(aliases))
	for i, a := range aliases {
		if _, seen := latest[a.SourceCode]; !seen {
			order = append(order, a.SourceCode)
		}
		latest[a.SourceCode] = i
	}

	n := len(order)
	codes := make([]string, 0, n)
	canonicalIDs := make([]int, 0, n)
	uuids := make([]*uuid.UUID, 0, n)
	subjects := make([]*string, 0, n)
	sources := make([]string, 0, n)
	seenAts := make([]time.Time, 0, n)

	for _, code := range order {
		a := aliases[latest[code]]
		codes = append(codes, a.SourceCode)
		canonicalIDs = append(canonicalIDs, a.CanonicalCourseID)
		uuids = append(uuids, a.SourceCourseUUID)
		subjects = append(subjects, a.SourceSubjectCode)
		sources = append(sources, a.Source)
		seenAts = append(seenAts, a.LastSeenAt)
	}

	query := `
		INSERT INTO course_code_aliases
			(source_code, canonical_course_id, source_course_uuid, source_subject_code, source, last_seen_at)
		SELECT u.source_code, u.canonical_course_id, u.source_course_uuid, u.source_subject_code, u.source, u.last_seen_at
		FROM UNNEST(
			$1::text[],
			$2::int[],
			$3::uuid[],
			$4::text[],
			$5::text[],
			$6::timestamptz[]
		) AS u (source_code, canonical_course_id, source_course_uuid, source_subject_code, source, last_seen_at)
		ON CONFLICT (source_code) DO UPDATE SET
			canonical_course_id = EXCLUDED.canonical_course_id,
			source_course_uuid  = EXCLUDED.source_course_uuid,
			source_subject_code = EXCLUDED.source_subject_code,
			source              = EXCLUDED.source,
			last_seen_at        = EXCLUDED.last_seen_at
	`

	_, err := db.Exec(ctx, query, codes, canonicalIDs, uuids, subjects, sources, seenAts)
	return err
}

// BackfillSelfAliases gives every course without an alias row a self-mapping
// keyed by its own stored code, normalized the same way lookups are.
func (r *aliasRepository) BackfillSelfAliases(ctx context.Context, source string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		WITH normalized AS (
			SELECT DISTINCT ON (code) code, id
			FROM (
				SELECT UPPER(regexp_replace(btrim(c.code), '\s+', ' ', 'g')) AS code, c.id
				FROM courses c
			) s
			ORDER BY code, id
		)
		INSERT INTO course_code_aliases (source_code, canonical_course_id, source, last_seen_at)
		SELECT n.code, n.id, $1, NOW()
		FROM normalized n
		WHERE NOT EXISTS (SELECT 1 FROM course_code_aliases a WHERE a.source_code = n.code)
		ON CONFLICT (source_code) DO NOTHING`, source)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
