package textutil

import "testing"

func TestCleanHTML(t *testing.T) {
	t.Parallel()

	got := CleanHTML(`<p>Critical flaw in <b>WidgetOS</b> &amp; friends</p>`)
	want := "Critical flaw in WidgetOS & friends"
	if got != want {
		t.Fatalf("CleanHTML = %q, want %q", got, want)
	}
}

func TestCleanHTMLPlainText(t *testing.T) {
	t.Parallel()

	got := CleanHTML("  plain   text\n\twith   gaps  ")
	if got != "plain text with gaps" {
		t.Fatalf("CleanHTML = %q", got)
	}
}

func TestCleanHTMLEmpty(t *testing.T) {
	t.Parallel()

	if got := CleanHTML("   "); got != "" {
		t.Fatalf("CleanHTML = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("abcdef", 3); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("Truncate = %q", got)
	}
}
