package ingest

import "testing"

func TestExtractCompaniesWithSuffix(t *testing.T) {
	t.Parallel()

	got := ExtractCompanies("Palo Alto Networks fixes firewall bypass")
	if len(got) != 1 || got[0] != "Palo Alto Networks" {
		t.Fatalf("ExtractCompanies = %v", got)
	}
}

func TestExtractCompaniesMultiWord(t *testing.T) {
	t.Parallel()

	got := ExtractCompanies("breach at Acme Industries exposed records")
	if len(got) != 1 || got[0] != "Acme Industries" {
		t.Fatalf("ExtractCompanies = %v", got)
	}
}

func TestExtractCompaniesRejectsNoise(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"The Hacker News reported the incident",
		"CISA issued an advisory",
		"Critical Patch released on Tuesday",
		"lowercase only text here",
	} {
		if got := ExtractCompanies(text); len(got) != 0 {
			t.Errorf("ExtractCompanies(%q) = %v, want none", text, got)
		}
	}
}

func TestExtractCompaniesDeduplicates(t *testing.T) {
	t.Parallel()

	got := ExtractCompanies("Acme Industries confirmed. Acme Industries later denied.")
	if len(got) != 1 {
		t.Fatalf("ExtractCompanies = %v, want single entry", got)
	}
}
