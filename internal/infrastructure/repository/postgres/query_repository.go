package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// QueryRepository persists the append-only audit trail of LLM call attempts.
// Rows are never hard-deleted or rewritten; the only mutations are the
// single PENDING -> COMPLETE/FAILED finalization and the soft-delete flag.
type QueryRepository struct {
	db *sql.DB
}

func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030502)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ai_queries (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	identifier TEXT NOT NULL,
	model TEXT NOT NULL,
	query JSONB NOT NULL,
	status TEXT NOT NULL,
	result TEXT,
	is_validated BOOLEAN NOT NULL DEFAULT FALSE,
	usage JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	answered_at TIMESTAMPTZ,
	is_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_ai_queries_pair ON ai_queries(document_id, identifier, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ai_queries_document ON ai_queries(document_id, created_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QueryRepository) Create(ctx context.Context, query *domain.Query) error {
	promptJSON, err := json.Marshal(query.Prompt)
	if err != nil {
		return fmt.Errorf("marshal prompt: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO ai_queries (
	id, document_id, identifier, model, query, status, result, is_validated, usage, created_at, answered_at, is_deleted
) VALUES ($1,$2,$3,$4,$5,$6,NULL,FALSE,NULL,$7,NULL,FALSE)
`,
		query.ID, query.DocumentID, query.Identifier, query.Model, promptJSON, string(query.Status), query.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

func (r *QueryRepository) Complete(ctx context.Context, id string, completion domain.QueryCompletion) error {
	return r.finalize(ctx, id, string(domain.QueryComplete), completion.Model, completion.Result, completion.IsValidated, completion.Usage)
}

func (r *QueryRepository) Fail(ctx context.Context, id string, cause string) error {
	return r.finalize(ctx, id, string(domain.QueryFailed), "", &cause, false, nil)
}

// finalize performs the single permitted transition out of PENDING. The
// status guard in the WHERE clause makes a second finalization, or a
// finalization of a deleted row, a not-found error.
func (r *QueryRepository) finalize(ctx context.Context, id, status, model string, result *string, isValidated bool, usage *domain.Usage) error {
	var usageJSON any
	if usage != nil {
		raw, err := json.Marshal(usage)
		if err != nil {
			return fmt.Errorf("marshal usage: %w", err)
		}
		usageJSON = raw
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE ai_queries
SET status = $2, model = COALESCE(NULLIF($3, ''), model), result = $4, is_validated = $5, usage = $6, answered_at = $7
WHERE id = $1 AND is_deleted = FALSE AND status = $8
`, id, status, model, result, isValidated, usageJSON, time.Now().UTC(), string(domain.QueryPending))
	if err != nil {
		return fmt.Errorf("finalize query: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize query rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrQueryNotFound, "finalize query", fmt.Errorf("no live pending row for id %s", id))
	}
	return nil
}

const queryColumns = `id, document_id, identifier, model, query, status, result, is_validated, usage, created_at, answered_at`

func (r *QueryRepository) GetCurrent(ctx context.Context, documentID, identifier string) (*domain.Query, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+queryColumns+`
FROM ai_queries
WHERE document_id = $1 AND identifier = $2 AND is_deleted = FALSE
ORDER BY created_at DESC
LIMIT 1
`, documentID, identifier)

	query, err := scanQuery(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return query, nil
}

func (r *QueryRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Query, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+queryColumns+`
FROM ai_queries
WHERE document_id = $1 AND is_deleted = FALSE
ORDER BY created_at ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	return collectQueries(rows)
}

// LatestPerIdentifier keeps rank 1 of a per-identifier window ordered by
// creation time descending: the "current answer" for every identifier in one
// round trip.
func (r *QueryRepository) LatestPerIdentifier(ctx context.Context, documentID string, exclude ...string) ([]domain.Query, error) {
	args := []any{documentID}
	filter := ""
	if len(exclude) > 0 {
		placeholders := make([]string, 0, len(exclude))
		for _, identifier := range exclude {
			args = append(args, identifier)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		filter = fmt.Sprintf(" AND identifier NOT IN (%s)", strings.Join(placeholders, ","))
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+queryColumns+`
FROM (
	SELECT `+queryColumns+`,
		row_number() OVER (PARTITION BY identifier ORDER BY created_at DESC) AS rn
	FROM ai_queries
	WHERE document_id = $1 AND is_deleted = FALSE`+filter+`
) ranked
WHERE rn = 1
ORDER BY identifier
`, args...)
	if err != nil {
		return nil, fmt.Errorf("latest per identifier: %w", err)
	}
	defer rows.Close()

	return collectQueries(rows)
}

func (r *QueryRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE ai_queries
SET is_deleted = TRUE
WHERE id = $1 AND is_deleted = FALSE
`, id)
	if err != nil {
		return fmt.Errorf("soft delete query: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrQueryNotFound, "soft delete query", fmt.Errorf("no live row for id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*domain.Query, error) {
	var (
		query      domain.Query
		promptRaw  []byte
		status     string
		result     sql.NullString
		usageRaw   []byte
		answeredAt sql.NullTime
	)
	err := row.Scan(
		&query.ID, &query.DocumentID, &query.Identifier, &query.Model, &promptRaw,
		&status, &result, &query.IsValidated, &usageRaw, &query.CreatedAt, &answeredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan query: %w", err)
	}

	if err := json.Unmarshal(promptRaw, &query.Prompt); err != nil {
		return nil, fmt.Errorf("unmarshal prompt: %w", err)
	}
	if len(usageRaw) > 0 {
		var usage domain.Usage
		if err := json.Unmarshal(usageRaw, &usage); err != nil {
			return nil, fmt.Errorf("unmarshal usage: %w", err)
		}
		query.Usage = &usage
	}
	query.Status = domain.QueryStatus(status)
	if result.Valid {
		query.Result = &result.String
	}
	if answeredAt.Valid {
		t := answeredAt.Time
		query.AnsweredAt = &t
	}
	return &query, nil
}

func collectQueries(rows *sql.Rows) ([]domain.Query, error) {
	var out []domain.Query
	for rows.Next() {
		query, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *query)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return out, nil
}
