// Package postgres implements the PostRepository contract on PostgreSQL.
// The posts table is range-partitioned by month of published_on; partitions
// follow the posts_yYYYYmMM naming scheme and are created lazily before
// writes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/ADEMSU/insight-flow-rss/internal/domain/entity"
	"github.com/ADEMSU/insight-flow-rss/internal/repository"
)

const uniqueViolationCode = "23505"

const postColumns = `id, post_id, source_id, title, content, html_content, url,
blog_host, blog_host_type, published_on, published_at_assumed, simhash,
relevance, relevance_score, category, subcategory, classification_confidence,
summary, created_at, updated_at`

type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) repository.PostRepository {
	return &PostRepo{db: db}
}

// isUniqueViolation reports whether the error is a duplicate-key violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

const insertPostQuery = `
INSERT INTO posts (post_id, source_id, title, content, html_content, url,
	blog_host, blog_host_type, published_on, published_at_assumed, simhash,
	relevance, relevance_score, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`

// InsertBatch stores the given posts inside one transaction, ensuring the
// partition for every month the batch touches first. When the batch hits a
// duplicate post_id or url, it falls back to per-row inserts that skip
// conflicting rows, so re-running the same batch is idempotent.
func (repo *PostRepo) InsertBatch(ctx context.Context, posts []*entity.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	// A 24h crawl window can straddle a month boundary.
	for _, month := range distinctMonths(posts) {
		if err := repo.EnsurePartition(ctx, month); err != nil {
			return 0, fmt.Errorf("InsertBatch: %w", err)
		}
	}

	inserted, err := repo.insertAll(ctx, posts)
	if err == nil {
		return inserted, nil
	}
	if !isUniqueViolation(err) {
		return 0, fmt.Errorf("InsertBatch: %w", err)
	}
	return repo.insertPerRow(ctx, posts)
}

// distinctMonths returns one instant per calendar month present in posts,
// in first-seen order.
func distinctMonths(posts []*entity.Post) []time.Time {
	seen := make(map[string]bool, 1)
	months := make([]time.Time, 0, 1)
	for _, p := range posts {
		key := PartitionName(p.PublishedOn)
		if seen[key] {
			continue
		}
		seen[key] = true
		months = append(months, p.PublishedOn)
	}
	return months
}

func (repo *PostRepo) insertAll(ctx context.Context, posts []*entity.Post) (int, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insertAll: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range posts {
		if _, err := tx.ExecContext(ctx, insertPostQuery, insertArgs(p)...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insertAll: Commit: %w", err)
	}
	return len(posts), nil
}

// insertPerRow inserts posts one by one with ON CONFLICT DO NOTHING so that
// already-present rows are silently skipped.
func (repo *PostRepo) insertPerRow(ctx context.Context, posts []*entity.Post) (int, error) {
	const query = insertPostQuery + ` ON CONFLICT DO NOTHING`

	inserted := 0
	for _, p := range posts {
		res, err := repo.db.ExecContext(ctx, query, insertArgs(p)...)
		if err != nil {
			return inserted, fmt.Errorf("insertPerRow: post %s: %w", p.PostID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("insertPerRow: RowsAffected: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func insertArgs(p *entity.Post) []any {
	var sourceID any
	if p.SourceID != 0 {
		sourceID = p.SourceID
	}
	return []any{
		p.PostID, sourceID, p.Title, p.Content, nullString(p.HTMLContent),
		p.URL, p.BlogHost, int(p.HostType), p.PublishedOn,
		p.PublishedAtAssumed, nullString(p.Simhash),
		relevanceToBool(p.Relevance), p.RelevanceScore,
	}
}

func (repo *PostRepo) ExistingURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	const query = `SELECT url FROM posts WHERE url = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistingURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	existing := make(map[string]bool, len(urls))
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("ExistingURLs: Scan: %w", err)
		}
		existing[u] = true
	}
	return existing, rows.Err()
}

func (repo *PostRepo) SelectUnchecked(ctx context.Context, limit int) ([]*entity.Post, error) {
	query := `
SELECT ` + postColumns + `
FROM posts
WHERE relevance IS NULL
ORDER BY published_on DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return repo.selectPosts(ctx, "SelectUnchecked", query, args...)
}

func (repo *PostRepo) SelectRelevantUnclassified(ctx context.Context, limit int) ([]*entity.Post, error) {
	query := `
SELECT ` + postColumns + `
FROM posts
WHERE relevance = TRUE
  AND relevance_score >= 0.7
  AND category IS NULL
ORDER BY published_on DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return repo.selectPosts(ctx, "SelectRelevantUnclassified", query, args...)
}

func (repo *PostRepo) SelectByWindow(ctx context.Context, from, to time.Time, filters repository.WindowFilters) ([]*entity.Post, error) {
	query := `
SELECT ` + postColumns + `
FROM posts
WHERE published_on >= $1 AND published_on <= $2`
	args := []any{from, to}

	if filters.OnlyRelevant {
		query += ` AND relevance = TRUE`
	}
	if filters.MinScore > 0 {
		args = append(args, filters.MinScore)
		query += fmt.Sprintf(` AND relevance_score >= $%d`, len(args))
	}
	if filters.OnlyClassified {
		query += ` AND category IS NOT NULL`
	}
	query += ` ORDER BY published_on DESC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return repo.selectPosts(ctx, "SelectByWindow", query, args...)
}

func (repo *PostRepo) selectPosts(ctx context.Context, op, query string, args ...any) ([]*entity.Post, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	posts := make([]*entity.Post, 0, 100)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: Scan: %w", op, err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(rows *sql.Rows) (*entity.Post, error) {
	var (
		p           entity.Post
		sourceID    sql.NullInt64
		htmlContent sql.NullString
		simhash     sql.NullString
		relevance   sql.NullBool
		score       sql.NullFloat64
		category    sql.NullString
		subcategory sql.NullString
		confidence  sql.NullFloat64
		summary     sql.NullString
		hostType    int
	)
	if err := rows.Scan(&p.ID, &p.PostID, &sourceID, &p.Title, &p.Content,
		&htmlContent, &p.URL, &p.BlogHost, &hostType, &p.PublishedOn,
		&p.PublishedAtAssumed, &simhash, &relevance, &score, &category,
		&subcategory, &confidence, &summary, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.SourceID = sourceID.Int64
	p.HTMLContent = htmlContent.String
	p.Simhash = simhash.String
	p.HostType = entity.HostType(hostType)
	p.Relevance = relevanceFromBool(relevance)
	p.RelevanceScore = score.Float64
	p.Category = category.String
	p.Subcategory = subcategory.String
	p.ClassificationConfidence = confidence.Float64
	p.Summary = summary.String
	return &p, nil
}

func (repo *PostRepo) UpdateRelevanceBatch(ctx context.Context, updates map[string]repository.RelevanceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	const query = `
UPDATE posts
SET relevance = $1, relevance_score = $2, updated_at = NOW()
WHERE post_id = $3`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpdateRelevanceBatch: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for postID, u := range updates {
		res, err := tx.ExecContext(ctx, query, u.Relevant, u.Score, postID)
		if err != nil {
			return 0, fmt.Errorf("UpdateRelevanceBatch: post %s: %w", postID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("UpdateRelevanceBatch: RowsAffected: %w", err)
		}
		updated += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpdateRelevanceBatch: Commit: %w", err)
	}
	return updated, nil
}

// UpdateClassificationBatch writes classification results. The WHERE clause
// restates the lifecycle gate (relevant with score >= 0.7) so a stray update
// for a weak post cannot violate it.
func (repo *PostRepo) UpdateClassificationBatch(ctx context.Context, updates map[string]repository.ClassificationUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	const query = `
UPDATE posts
SET category = $1, subcategory = $2, classification_confidence = $3, updated_at = NOW()
WHERE post_id = $4 AND relevance = TRUE AND relevance_score >= 0.7`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpdateClassificationBatch: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for postID, u := range updates {
		res, err := tx.ExecContext(ctx, query,
			u.Category, nullString(u.Subcategory), u.Confidence, postID)
		if err != nil {
			return 0, fmt.Errorf("UpdateClassificationBatch: post %s: %w", postID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("UpdateClassificationBatch: RowsAffected: %w", err)
		}
		updated += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpdateClassificationBatch: Commit: %w", err)
	}
	return updated, nil
}

func (repo *PostRepo) UpdateSummaries(ctx context.Context, updates []repository.SummaryUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	const query = `
UPDATE posts
SET summary = $1, updated_at = NOW()
WHERE post_id = $2 AND category IS NOT NULL`

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpdateSummaries: BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	updated := 0
	for _, u := range updates {
		res, err := tx.ExecContext(ctx, query, u.Summary, u.PostID)
		if err != nil {
			return 0, fmt.Errorf("UpdateSummaries: post %s: %w", u.PostID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("UpdateSummaries: RowsAffected: %w", err)
		}
		updated += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpdateSummaries: Commit: %w", err)
	}
	return updated, nil
}

func (repo *PostRepo) DeleteIrrelevant(ctx context.Context) (int, error) {
	const query = `DELETE FROM posts WHERE relevance = FALSE`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("DeleteIrrelevant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteIrrelevant: RowsAffected: %w", err)
	}
	return int(n), nil
}

// EnsurePartition creates the monthly partition covering the given instant.
// The statement is idempotent; the partition name is derived from the month,
// e.g. posts_y2026m08 for August 2026.
func (repo *PostRepo) EnsurePartition(ctx context.Context, at time.Time) error {
	start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s PARTITION OF posts FOR VALUES FROM ('%s') TO ('%s')`,
		PartitionName(at),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
	if _, err := repo.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("EnsurePartition: %w", err)
	}
	return nil
}

// PartitionName returns the posts partition name for the month of t.
func PartitionName(t time.Time) string {
	return fmt.Sprintf("posts_y%04dm%02d", t.Year(), int(t.Month()))
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func relevanceToBool(r entity.Relevance) any {
	switch r {
	case entity.RelevanceTrue:
		return true
	case entity.RelevanceFalse:
		return false
	default:
		return nil
	}
}

func relevanceFromBool(b sql.NullBool) entity.Relevance {
	if !b.Valid {
		return entity.RelevanceUnknown
	}
	if b.Bool {
		return entity.RelevanceTrue
	}
	return entity.RelevanceFalse
}
