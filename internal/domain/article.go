package domain

import (
	"errors"
	"time"
)

// ErrDuplicateArticle is returned by storage when an insert races an
// existing row on the unique link index.
var ErrDuplicateArticle = errors.New("article already stored")

// InWildStatus is the tri-state exploitation indicator for a vulnerability article.
type InWildStatus string

const (
	InWildYes     InWildStatus = "Yes"
	InWildNo      InWildStatus = "No"
	InWildUnknown InWildStatus = "Unknown"
)

// NormalizeInWild coerces arbitrary classifier output into the allowed set.
func NormalizeInWild(value string) InWildStatus {
	switch InWildStatus(value) {
	case InWildYes, InWildNo, InWildUnknown:
		return InWildStatus(value)
	}
	return InWildUnknown
}

// FeedItem is a normalized entry pulled from a syndication feed.
type FeedItem struct {
	Title       string
	Link        string
	Source      string
	PublishedAt time.Time
	Summary     string
}

// Article is a deduplicated news item. Enrichment fields stay empty until
// the classifier has produced a result; AISummary == "" means unenriched.
type Article struct {
	ID             int64
	Title          string
	Link           string
	Source         string
	PublishedAt    time.Time
	CreatedAt      time.Time
	ContentHash    string
	Summary        string
	AISummary      string
	Impact         string
	InWild         InWildStatus
	AgeDescription string
	Remediation    string
	AIRetryCount   int
}

// Enriched reports whether the classifier has already produced a summary.
func (a Article) Enriched() bool {
	return a.AISummary != ""
}

// Tag is a named category. Names compare case-insensitively.
type Tag struct {
	ID          int64
	Name        string
	Description string
}

// LinkHash pairs the two dedup keys of a stored article.
type LinkHash struct {
	Link string
	Hash string
}

// Classification is the structured result of one classifier call.
type Classification struct {
	Summary        string
	Impact         string
	InWild         InWildStatus
	AgeDescription string
	Remediation    string
	Tags           []string
}

// RunResult aggregates counters for one pipeline execution. It is owned by
// a single coordinator invocation and discarded after reporting.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Added      int
	Skipped    int
	Errors     []string
}

// RecordError appends a stage-prefixed error to the run report.
func (r *RunResult) RecordError(stage string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, stage+": "+err.Error())
}
