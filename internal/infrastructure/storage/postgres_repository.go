package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"threatwire/internal/domain"
	"threatwire/internal/ports"
)

// PostgresRepository persists articles, tags, and associations.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ArticleRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the tables and indexes the pipeline depends on.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id              BIGSERIAL PRIMARY KEY,
			title           TEXT NOT NULL,
			link            TEXT NOT NULL UNIQUE,
			source          TEXT NOT NULL DEFAULT '',
			published_at    TIMESTAMPTZ NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			content_hash    TEXT NOT NULL,
			summary         TEXT NOT NULL DEFAULT '',
			ai_summary      TEXT,
			impact          TEXT,
			in_wild         TEXT,
			age_description TEXT,
			remediation     TEXT,
			ai_retry_count  INT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS articles_created_at_idx ON articles (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS articles_content_hash_idx ON articles (content_hash)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS tags_name_lower_idx ON tags (lower(name))`,
		`CREATE TABLE IF NOT EXISTS article_tags (
			article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			tag_id     BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (article_id, tag_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ListRecentLinksAndHashes seeds the dedup index with every link and content
// hash stored since the duplicate-check window started.
func (r *PostgresRepository) ListRecentLinksAndHashes(ctx context.Context, since time.Time) ([]domain.LinkHash, error) {
	query, args, err := r.builder.
		Select("link", "content_hash").
		From("articles").
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent links: %w", err)
	}
	defer rows.Close()

	var result []domain.LinkHash
	for rows.Next() {
		var lh domain.LinkHash
		if err := rows.Scan(&lh.Link, &lh.Hash); err != nil {
			return nil, fmt.Errorf("scan link hash: %w", err)
		}
		result = append(result, lh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// ListTags returns every tag row.
func (r *PostgresRepository) ListTags(ctx context.Context) ([]domain.Tag, error) {
	query, args, err := r.builder.
		Select("id", "name", "COALESCE(description, '')").
		From("tags").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tags, nil
}

// InsertTag creates a tag, reusing an existing row on a case-insensitive
// name collision, and returns its id either way.
func (r *PostgresRepository) InsertTag(ctx context.Context, name string) (int64, error) {
	query, args, err := r.builder.
		Insert("tags").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT ((lower(name))) DO UPDATE SET name = tags.name RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	return id, nil
}

// InsertArticle stores a new article and returns its id. A conflicting link
// yields domain.ErrDuplicateArticle.
func (r *PostgresRepository) InsertArticle(ctx context.Context, article domain.Article) (int64, error) {
	query, args, err := r.builder.
		Insert("articles").
		Columns("title", "link", "source", "published_at", "content_hash", "summary",
			"ai_summary", "impact", "in_wild", "age_description", "remediation", "ai_retry_count").
		Values(article.Title, article.Link, article.Source, article.PublishedAt,
			article.ContentHash, article.Summary,
			nullIfEmpty(article.AISummary), nullIfEmpty(article.Impact),
			nullIfEmpty(string(article.InWild)), nullIfEmpty(article.AgeDescription),
			nullIfEmpty(article.Remediation), article.AIRetryCount).
		Suffix("ON CONFLICT (link) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrDuplicateArticle
		}
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

// InsertArticleTags links an article to tags; existing pairs are left alone.
func (r *PostgresRepository) InsertArticleTags(ctx context.Context, articleID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	insert := r.builder.
		Insert("article_tags").
		Columns("article_id", "tag_id")
	for _, tagID := range tagIDs {
		insert = insert.Values(articleID, tagID)
	}

	query, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article tags: %w", err)
	}
	return nil
}

// ListUnenriched returns articles still waiting for classification, skipping
// anything at or past the retry ceiling. Only rows created before the given
// time are selected, so a run never re-attempts articles it just stored.
func (r *PostgresRepository) ListUnenriched(ctx context.Context, before time.Time, limit, maxRetries int) ([]domain.Article, error) {
	query, args, err := r.selectArticles().
		Where(sq.Eq{"ai_summary": nil}).
		Where(sq.Lt{"created_at": before}).
		Where(sq.Lt{"ai_retry_count": maxRetries}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.queryArticles(ctx, query, args)
}

// UpdateEnrichment writes the classifier result onto an existing article.
func (r *PostgresRepository) UpdateEnrichment(ctx context.Context, id int64, result domain.Classification) error {
	query, args, err := r.builder.
		Update("articles").
		Set("ai_summary", result.Summary).
		Set("impact", nullIfEmpty(result.Impact)).
		Set("in_wild", string(result.InWild)).
		Set("age_description", nullIfEmpty(result.AgeDescription)).
		Set("remediation", nullIfEmpty(result.Remediation)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	return nil
}

// IncrementRetry bumps the per-article reprocessing counter.
func (r *PostgresRepository) IncrementRetry(ctx context.Context, id int64) error {
	query, args, err := r.builder.
		Update("articles").
		Set("ai_retry_count", sq.Expr("ai_retry_count + 1")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("increment retry: %w", err)
	}
	return nil
}

// ListRecentArticles returns the newest stored articles for tag backfill.
func (r *PostgresRepository) ListRecentArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	query, args, err := r.selectArticles().
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	return r.queryArticles(ctx, query, args)
}

// ListArticleTagIDs returns tag ids already linked to the article.
func (r *PostgresRepository) ListArticleTagIDs(ctx context.Context, articleID int64) ([]int64, error) {
	query, args, err := r.builder.
		Select("tag_id").
		From("article_tags").
		Where(sq.Eq{"article_id": articleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query article tags: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tag id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return ids, nil
}

func (r *PostgresRepository) selectArticles() sq.SelectBuilder {
	return r.builder.
		Select("id", "title", "link", "source", "published_at", "created_at",
			"content_hash", "summary", "COALESCE(ai_summary, '')", "COALESCE(impact, '')",
			"COALESCE(in_wild, '')", "COALESCE(age_description, '')",
			"COALESCE(remediation, '')", "ai_retry_count").
		From("articles")
}

func (r *PostgresRepository) queryArticles(ctx context.Context, query string, args []interface{}) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		var inWild string
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Source, &a.PublishedAt,
			&a.CreatedAt, &a.ContentHash, &a.Summary, &a.AISummary, &a.Impact,
			&inWild, &a.AgeDescription, &a.Remediation, &a.AIRetryCount); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		a.InWild = domain.InWildStatus(inWild)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
