package ingest

import (
	"regexp"
	"strings"
)

// companyExpr captures capitalized token runs, optionally ending with a
// corporate suffix. The stopword list below prunes sentence-initial noise.
var companyExpr = regexp.MustCompile(`\b([A-Z][A-Za-z0-9&.-]+(?: [A-Z][A-Za-z0-9&.-]+)*(?: (?:Inc|Corp|Corporation|Ltd|LLC|Labs|Systems|Software|Networks|Security|Technologies))?)\b`)

var companySuffixes = map[string]struct{}{
	"Inc": {}, "Corp": {}, "Corporation": {}, "Ltd": {}, "LLC": {},
	"Labs": {}, "Systems": {}, "Software": {}, "Networks": {},
	"Security": {}, "Technologies": {},
}

var companyStopwords = map[string]struct{}{
	"The": {}, "A": {}, "An": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"It": {}, "Its": {}, "In": {}, "On": {}, "At": {}, "For": {}, "With": {},
	"After": {}, "Before": {}, "New": {}, "Researchers": {}, "Hackers": {},
	"Attackers": {}, "Critical": {}, "Patch": {}, "Update": {}, "Warning": {},
	"Security": {}, "Vulnerability": {}, "Malware": {}, "Ransomware": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {},
	"Saturday": {}, "Sunday": {}, "January": {}, "February": {}, "March": {},
	"April": {}, "May": {}, "June": {}, "July": {}, "August": {},
	"September": {}, "October": {}, "November": {}, "December": {},
}

// ExtractCompanies pulls company-like names out of article text for the
// low-frequency tag backfill. The heuristic favors precision: a candidate
// needs either a corporate suffix or at least two capitalized words that
// are not all stopwords.
func ExtractCompanies(text string) []string {
	matches := companyExpr.FindAllString(text, -1)

	seen := make(map[string]struct{})
	var companies []string
	for _, m := range matches {
		name := strings.TrimSpace(m)
		if name == "" {
			continue
		}

		words := strings.Fields(name)
		if !looksLikeCompany(words) {
			continue
		}

		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		companies = append(companies, name)
	}
	return companies
}

func looksLikeCompany(words []string) bool {
	if len(words) == 0 {
		return false
	}

	last := strings.TrimSuffix(words[len(words)-1], ".")
	if _, ok := companySuffixes[last]; ok && len(words) > 1 {
		// Suffix alone is enough, as long as the leading word is real.
		if _, stop := companyStopwords[words[0]]; !stop {
			return true
		}
	}

	if len(words) < 2 {
		return false
	}

	for _, w := range words {
		if _, stop := companyStopwords[w]; stop {
			return false
		}
	}

	// All-caps acronym runs (e.g. "CVE") are identifiers, not companies.
	for _, w := range words {
		if w == strings.ToUpper(w) && len(w) > 1 {
			return false
		}
	}

	return true
}
