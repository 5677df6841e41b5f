package repository

import (
	"context"
	"fmt"
	"time"

	"labor_pipeline_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type SearchResult struct {
	ID           uuid.UUID
	Type         string
	Title        string
	Subtitle     string
	Preview      string
	Status       string
	LinkID       string
	MatchedField string
	Score        float32
	CreatedAt    time.Time
	Total        int64
}

// GlobalSearch ranks candidates (name, cnic, phone, trade) and complaints
// (category, description) against query. Exact identifier prefixes outrank
// text matches so a pasted CNIC or phone number lands first.
func (r *Repository) GlobalSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		WITH search_query AS (
			SELECT websearch_to_tsquery('simple', $1) AS q,
			       '%' || regexp_replace($1, '[^0-9+]', '', 'g') || '%' AS digits
		),
		candidate_hits AS (
			SELECT
				c.id,
				'candidate'::text AS type,
				c.full_name AS title,
				coalesce(c.trade, '') AS subtitle,
				c.cnic AS preview,
				c.status,
				c.id::text AS link_id,
				CASE
					WHEN length(sq.digits) > 4 AND (replace(c.cnic, '-', '') LIKE replace(sq.digits, '-', '') OR coalesce(c.phone, '') LIKE sq.digits) THEN 'identifier'
					ELSE 'name'
				END AS matched_field,
				(
					CASE WHEN length(sq.digits) > 4 AND (replace(c.cnic, '-', '') LIKE replace(sq.digits, '-', '') OR coalesce(c.phone, '') LIKE sq.digits) THEN 1.0 ELSE 0 END
					+ ts_rank(
						setweight(to_tsvector('simple', c.full_name), 'A') ||
						setweight(to_tsvector('simple', coalesce(c.trade, '')), 'C'),
						sq.q
					)
				)::real AS score,
				c.created_at
			FROM candidates c
			CROSS JOIN search_query sq
			WHERE (
				to_tsvector('simple', c.full_name || ' ' || coalesce(c.trade, '')) @@ sq.q
				OR c.full_name ILIKE '%' || $1 || '%'
				OR (length(sq.digits) > 4 AND (replace(c.cnic, '-', '') LIKE replace(sq.digits, '-', '') OR coalesce(c.phone, '') LIKE sq.digits))
			)
		),
		complaint_hits AS (
			SELECT
				cp.id,
				'complaint'::text AS type,
				cp.category AS title,
				cp.priority AS subtitle,
				ts_headline('simple', cp.description, sq.q, 'MaxWords=18, MinWords=6, ShortWord=2, StartSel=[, StopSel=]') AS preview,
				cp.status,
				cp.id::text AS link_id,
				'description'::text AS matched_field,
				(ts_rank(
					setweight(to_tsvector('simple', cp.category), 'B') ||
					setweight(to_tsvector('simple', cp.description), 'C'),
					sq.q
				) * 0.8)::real AS score,
				cp.created_at
			FROM complaints cp
			CROSS JOIN search_query sq
			WHERE to_tsvector('simple', cp.category || ' ' || cp.description) @@ sq.q
		),
		hits AS (
			SELECT * FROM candidate_hits
			UNION ALL
			SELECT * FROM complaint_hits
		)
		SELECT id, type, title, subtitle, preview, status, link_id, matched_field, score, created_at,
		       COUNT(*) OVER() AS total
		FROM hits
		ORDER BY score DESC, created_at DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("global search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var s SearchResult
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &s.Subtitle, &s.Preview, &s.Status,
			&s.LinkID, &s.MatchedField, &s.Score, &s.CreatedAt, &s.Total); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
