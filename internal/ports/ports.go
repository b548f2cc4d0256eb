package ports

import (
	"context"
	"time"

	"threatwire/internal/domain"
)

// ArticleRepository persists articles, tags, and their associations. It is
// the source of truth for dedup state at the start of a run.
type ArticleRepository interface {
	ListRecentLinksAndHashes(ctx context.Context, since time.Time) ([]domain.LinkHash, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	InsertTag(ctx context.Context, name string) (int64, error)
	InsertArticle(ctx context.Context, article domain.Article) (int64, error)
	InsertArticleTags(ctx context.Context, articleID int64, tagIDs []int64) error
	ListUnenriched(ctx context.Context, before time.Time, limit, maxRetries int) ([]domain.Article, error)
	UpdateEnrichment(ctx context.Context, id int64, result domain.Classification) error
	IncrementRetry(ctx context.Context, id int64) error
	ListRecentArticles(ctx context.Context, limit int) ([]domain.Article, error)
	ListArticleTagIDs(ctx context.Context, articleID int64) ([]int64, error)
}

// Classifier produces structured threat metadata for an article, nil when
// the service is disabled or the article turned out to be promotional.
type Classifier interface {
	Enabled() bool
	Classify(ctx context.Context, title, summary string) (*domain.Classification, error)
}

// Notifier reports a finished run to an external channel.
type Notifier interface {
	PublishRunSummary(ctx context.Context, result *domain.RunResult) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
