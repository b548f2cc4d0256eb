package ingest

import (
	"crypto/sha256"
	"encoding/hex"

	"threatwire/pkg/textutil"
)

// summaryHashLen bounds how much of the summary participates in the content
// hash, so two feeds carrying the same story with different trailing blurbs
// still collapse to one article.
const summaryHashLen = 500

// ContentHash produces the deterministic digest used for same-story dedup
// across different source links.
func ContentHash(title, summary string) string {
	digest := sha256.Sum256([]byte(title + "|" + textutil.Truncate(summary, summaryHashLen)))
	return hex.EncodeToString(digest[:])
}
