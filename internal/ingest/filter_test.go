package ingest

import "testing"

func TestSponsoredFilterCatchesAdVocabulary(t *testing.T) {
	t.Parallel()

	f := NewSponsoredFilter(nil)

	sponsored := []string{
		"50% Off VPN — Black Friday Deal",
		"Sponsored: the best password manager of 2026",
		"Get this lifetime deal on security training",
		"Exclusive webinar: zero trust in practice",
	}
	for _, title := range sponsored {
		if !f.Sponsored(title, "") {
			t.Errorf("expected sponsored: %q", title)
		}
	}
}

func TestSponsoredFilterPassesNews(t *testing.T) {
	t.Parallel()

	f := NewSponsoredFilter(nil)

	legitimate := []string{
		"Acme Corp Patches CVE-2024-1234",
		"New ransomware strain targets hospitals",
		"Critical RCE found in popular router firmware",
	}
	for _, title := range legitimate {
		if f.Sponsored(title, "Researchers disclosed details today.") {
			t.Errorf("false positive: %q", title)
		}
	}
}

func TestSponsoredFilterExtraKeywords(t *testing.T) {
	t.Parallel()

	f := NewSponsoredFilter([]string{"flash sale"})
	if !f.Sponsored("Huge Flash Sale on endpoint licenses", "") {
		t.Fatal("configured keyword not honored")
	}
}

func TestSponsoredFilterChecksSummary(t *testing.T) {
	t.Parallel()

	f := NewSponsoredFilter(nil)
	if !f.Sponsored("An ordinary headline", "Use promo code SAVE20 at checkout") {
		t.Fatal("summary keyword not honored")
	}
}
