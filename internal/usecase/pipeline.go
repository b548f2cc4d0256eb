package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"threatwire/internal/domain"
	"threatwire/internal/feed"
	"threatwire/internal/ingest"
	"threatwire/internal/metrics"
	"threatwire/internal/ports"
)

// ErrRunInProgress is returned when a trigger arrives while a run is active.
// Overlapping runs would share the dedup index, so the second caller backs off.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Settings carries the pipeline knobs. Zero values fall back to safe defaults.
type Settings struct {
	MaxNewPerRun     int
	CutoffDays       int
	DupWindowHours   int
	MaxRetries       int
	ReprocessLimit   int
	BackfillLimit    int
	FetchConcurrency int
}

func (s Settings) withDefaults() Settings {
	if s.MaxNewPerRun <= 0 {
		s.MaxNewPerRun = 30
	}
	if s.CutoffDays <= 0 {
		s.CutoffDays = 7
	}
	if s.DupWindowHours <= 0 {
		s.DupWindowHours = 72
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 2
	}
	if s.ReprocessLimit <= 0 {
		s.ReprocessLimit = 5
	}
	if s.BackfillLimit < 0 {
		s.BackfillLimit = 0
	}
	if s.FetchConcurrency <= 0 {
		s.FetchConcurrency = 4
	}
	return s
}

// PipelineDeps wires all driven adapters into the ingestion coordinator.
type PipelineDeps struct {
	Source     *feed.Source
	Feeds      []feed.Feed
	Repository ports.ArticleRepository
	Classifier ports.Classifier
	Filter     *ingest.SponsoredFilter
	Logger     *slog.Logger
	Settings   Settings
}

// Pipeline is the ingestion coordinator: it drives fetch, filter, dedup,
// classify, tag, and persist for every configured feed within one run.
type Pipeline struct {
	source     *feed.Source
	feeds      []feed.Feed
	repository ports.ArticleRepository
	classifier ports.Classifier
	filter     *ingest.SponsoredFilter
	logger     *slog.Logger
	settings   Settings

	runMu sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	filter := deps.Filter
	if filter == nil {
		filter = ingest.NewSponsoredFilter(nil)
	}
	return &Pipeline{
		source:     deps.Source,
		feeds:      deps.Feeds,
		repository: deps.Repository,
		classifier: deps.Classifier,
		filter:     filter,
		logger:     deps.Logger,
		settings:   deps.Settings.withDefaults(),
	}
}

type fetchOutcome struct {
	feed    feed.Feed
	items   []domain.FeedItem
	dropped int
	err     error
}

// Run executes one full ingestion pass. Per-feed and per-item failures are
// accumulated into the result; only being unable to seed run state aborts.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunResult, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	start := time.Now().UTC()
	res := &domain.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}

	dupSince := start.Add(-time.Duration(p.settings.DupWindowHours) * time.Hour)
	seed, err := p.repository.ListRecentLinksAndHashes(ctx, dupSince)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("seed dedup index: %w", err)
	}
	index := ingest.NewDedupIndex(seed)

	tags, err := p.repository.ListTags(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("seed tag cache: %w", err)
	}
	cache := ingest.NewTagCache(p.repository, tags)
	resolver := ingest.NewTagResolver(cache)

	p.info("run started", "run_id", res.RunID, "feeds", len(p.feeds),
		"seeded_links", index.Len(), "known_tags", len(tags))

	var accepted atomic.Int64
	cutoff := start.Add(-time.Duration(p.settings.CutoffDays) * 24 * time.Hour)

	feedCh := make(chan feed.Feed)
	outCh := make(chan fetchOutcome)

	var workers sync.WaitGroup
	for i := 0; i < p.settings.FetchConcurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for f := range feedCh {
				items, dropped, ferr := p.source.Fetch(ctx, f)
				outCh <- fetchOutcome{feed: f, items: items, dropped: dropped, err: ferr}
			}
		}()
	}

	// Feed producer: once the cap is reached, in-flight fetches finish but
	// no new feeds are started.
	go func() {
		defer close(feedCh)
		for _, f := range p.feeds {
			if accepted.Load() >= int64(p.settings.MaxNewPerRun) {
				return
			}
			select {
			case feedCh <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		close(outCh)
	}()

	// Single-writer checkpoint: all dedup and counter mutation happens here.
	for out := range outCh {
		p.consumeFeed(ctx, out, index, resolver, &accepted, cutoff, res)
	}

	p.reprocessUnenriched(ctx, start, resolver, res)
	p.backfillCompanies(ctx, cache, res)

	res.FinishedAt = time.Now().UTC()
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.RunDuration.Observe(res.FinishedAt.Sub(start).Seconds())
	metrics.ArticlesSkipped.Add(float64(res.Skipped))

	p.info("run finished", "run_id", res.RunID, "processed", res.Processed,
		"added", res.Added, "skipped", res.Skipped, "errors", len(res.Errors),
		"duration", res.FinishedAt.Sub(start).String())

	return res, nil
}

func (p *Pipeline) consumeFeed(ctx context.Context, out fetchOutcome, index *ingest.DedupIndex,
	resolver *ingest.TagResolver, accepted *atomic.Int64, cutoff time.Time, res *domain.RunResult) {

	if out.err != nil {
		metrics.FeedErrors.WithLabelValues(out.feed.Name).Inc()
		res.RecordError("fetch "+out.feed.Name, out.err)
		p.warn("feed failed", "feed", out.feed.Name, "error", out.err)
		return
	}

	// Malformed entries the fetcher dropped still count as processed.
	res.Processed += out.dropped
	res.Skipped += out.dropped

	for _, item := range out.items {
		res.Processed++

		if item.PublishedAt.Before(cutoff) {
			res.Skipped++
			continue
		}

		if p.filter.Sponsored(item.Title, item.Summary) {
			res.Skipped++
			p.debug("sponsored item skipped", "feed", out.feed.Name, "title", item.Title)
			continue
		}

		hash := ingest.ContentHash(item.Title, item.Summary)
		if index.SeenLink(item.Link) || index.SeenHash(hash) {
			res.Skipped++
			continue
		}

		if !tryAccept(accepted, int64(p.settings.MaxNewPerRun)) {
			// Over the cap: left for a future run, deliberately not
			// marked seen.
			res.Skipped++
			continue
		}

		index.Record(item.Link, hash)
		p.ingestItem(ctx, item, hash, resolver, res)
	}
}

// tryAccept is a compare-and-increment against the per-run cap. Reaching
// the cap is a normal stop signal, not an error.
func tryAccept(accepted *atomic.Int64, limit int64) bool {
	for {
		cur := accepted.Load()
		if cur >= limit {
			return false
		}
		if accepted.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (p *Pipeline) ingestItem(ctx context.Context, item domain.FeedItem, hash string,
	resolver *ingest.TagResolver, res *domain.RunResult) {

	article := domain.Article{
		Title:       item.Title,
		Link:        item.Link,
		Source:      item.Source,
		PublishedAt: item.PublishedAt,
		ContentHash: hash,
		Summary:     item.Summary,
	}

	var suggested []string
	result, err := p.classifier.Classify(ctx, item.Title, item.Summary)
	switch {
	case err != nil:
		// Not retried within this run; the article is stored unenriched
		// and picked up by a later reprocessing pass.
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		res.RecordError("classify "+item.Link, err)
		p.warn("classification failed", "link", item.Link, "error", err)
	case result != nil:
		metrics.ClassifierCalls.WithLabelValues("ok").Inc()
		article.AISummary = result.Summary
		article.Impact = result.Impact
		article.InWild = result.InWild
		article.AgeDescription = result.AgeDescription
		article.Remediation = result.Remediation
		suggested = result.Tags
	}

	id, err := p.repository.InsertArticle(ctx, article)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateArticle) {
			res.Skipped++
			return
		}
		// Dedup state already marked this link seen; losing the row for
		// this run beats storing it twice.
		res.RecordError("persist "+item.Link, err)
		p.warn("persist failed", "link", item.Link, "error", err)
		return
	}

	res.Added++
	metrics.ArticlesAdded.Inc()

	text := item.Title + " " + item.Summary + " " + article.AISummary
	tagIDs, err := resolver.Resolve(ctx, text, suggested)
	if err != nil {
		res.RecordError("tag "+item.Link, err)
	}
	if len(tagIDs) > 0 {
		if err := p.repository.InsertArticleTags(ctx, id, tagIDs); err != nil {
			res.RecordError("tag "+item.Link, err)
		}
	}
}

// reprocessUnenriched gives articles that missed classification another
// bounded chance, so enrichment catches up after transient outages. The
// batch is limited to articles stored before this run started; a failure
// from the main loop waits for a later run instead of being retried now.
func (p *Pipeline) reprocessUnenriched(ctx context.Context, runStart time.Time, resolver *ingest.TagResolver, res *domain.RunResult) {
	if !p.classifier.Enabled() {
		return
	}

	articles, err := p.repository.ListUnenriched(ctx, runStart, p.settings.ReprocessLimit, p.settings.MaxRetries)
	if err != nil {
		res.RecordError("reprocess", err)
		return
	}

	for _, article := range articles {
		result, cerr := p.classifier.Classify(ctx, article.Title, article.Summary)
		if result == nil {
			if cerr != nil {
				metrics.ClassifierCalls.WithLabelValues("error").Inc()
				res.RecordError("reprocess "+article.Link, cerr)
			}
			if rerr := p.repository.IncrementRetry(ctx, article.ID); rerr != nil {
				res.RecordError("reprocess "+article.Link, rerr)
			}
			continue
		}

		metrics.ClassifierCalls.WithLabelValues("ok").Inc()
		if uerr := p.repository.UpdateEnrichment(ctx, article.ID, *result); uerr != nil {
			res.RecordError("reprocess "+article.Link, uerr)
			continue
		}

		text := article.Title + " " + article.Summary + " " + result.Summary
		tagIDs, terr := resolver.Resolve(ctx, text, result.Tags)
		if terr != nil {
			res.RecordError("reprocess "+article.Link, terr)
		}
		if len(tagIDs) > 0 {
			if terr := p.repository.InsertArticleTags(ctx, article.ID, tagIDs); terr != nil {
				res.RecordError("reprocess "+article.Link, terr)
			}
		}
	}
}

// backfillCompanies extracts company-like names from recent articles and
// associates them as tags, guarded so already-linked tags are not re-added.
func (p *Pipeline) backfillCompanies(ctx context.Context, cache *ingest.TagCache, res *domain.RunResult) {
	if p.settings.BackfillLimit == 0 {
		return
	}

	articles, err := p.repository.ListRecentArticles(ctx, p.settings.BackfillLimit)
	if err != nil {
		res.RecordError("backfill", err)
		return
	}

	for _, article := range articles {
		names := ingest.ExtractCompanies(article.Title + " " + article.Summary + " " + article.AISummary)
		if len(names) == 0 {
			continue
		}

		linked, err := p.repository.ListArticleTagIDs(ctx, article.ID)
		if err != nil {
			res.RecordError("backfill", err)
			continue
		}
		existing := make(map[int64]struct{}, len(linked))
		for _, id := range linked {
			existing[id] = struct{}{}
		}

		var add []int64
		for _, name := range names {
			id, err := cache.GetOrCreate(ctx, name)
			if err != nil {
				res.RecordError("backfill", err)
				continue
			}
			if _, ok := existing[id]; ok {
				continue
			}
			existing[id] = struct{}{}
			add = append(add, id)
		}

		if len(add) > 0 {
			if err := p.repository.InsertArticleTags(ctx, article.ID, add); err != nil {
				res.RecordError("backfill", err)
			}
		}
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
