package ingest

import "strings"

// defaultSponsoredKeywords is the built-in ad vocabulary. A hit here only
// costs a skipped article; the classifier stays the authoritative check for
// anything that slips through.
var defaultSponsoredKeywords = []string{
	"sponsored",
	"sponsored post",
	"advertisement",
	"affiliate",
	"promo code",
	"coupon",
	"discount",
	"% off",
	"black friday",
	"cyber monday",
	"deal of the day",
	"best deals",
	"lifetime deal",
	"limited time offer",
	"free trial offer",
	"webinar",
	"giveaway",
}

// SponsoredFilter drops obvious promotional items before any expensive work.
type SponsoredFilter struct {
	keywords []string
}

// NewSponsoredFilter builds the filter; extra keywords from config are added
// to the built-in list.
func NewSponsoredFilter(extra []string) *SponsoredFilter {
	keywords := make([]string, 0, len(defaultSponsoredKeywords)+len(extra))
	for _, kw := range defaultSponsoredKeywords {
		keywords = append(keywords, strings.ToLower(kw))
	}
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &SponsoredFilter{keywords: keywords}
}

// Sponsored reports whether the title or summary matches the ad vocabulary.
func (f *SponsoredFilter) Sponsored(title, summary string) bool {
	text := strings.ToLower(title + " " + summary)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
