package generate

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func assertWellFormed(t *testing.T, lines []string) {
	t.Helper()
	if len(lines) != LineCount {
		t.Fatalf("got %d lines, want %d: %q", len(lines), LineCount, lines)
	}
	for i, l := range lines {
		if utf8.RuneCountInString(strings.TrimSpace(l)) <= minLineLength {
			t.Errorf("line %d too short: %q", i, l)
		}
	}
}

func TestNormalizeStripsMarkersAndKeepsOrder(t *testing.T) {
	raw := strings.Join([]string{
		"1. Your onboarding guide reads like it was written by people who ship.",
		"2) Saw the new pricing page and the clarity of the tiers stood out to me.",
		"- Loved the customer story about cutting support tickets in half last year.",
		"* Your careers page makes the engineering culture feel refreshingly honest.",
		"   3.   The product tour shows exactly how a small team gets value in a week.",
		"6. This sixth line should be dropped because only five are kept here.",
	}, "\n")

	got := Normalize(raw)
	want := []string{
		"Your onboarding guide reads like it was written by people who ship.",
		"Saw the new pricing page and the clarity of the tiers stood out to me.",
		"Loved the customer story about cutting support tickets in half last year.",
		"Your careers page makes the engineering culture feel refreshingly honest.",
		"The product tour shows exactly how a small team gets value in a week.",
	}
	assertWellFormed(t, got)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeDropsShortAndEmptyLines(t *testing.T) {
	raw := "Sure! Here you go:\n\n" +
		"exactly twenty chars\n" + // 20 runes, dropped
		"exactly twenty-one c\n" + // 20 runes, dropped
		"exactly twenty-one ch\n" + // 21 runes, kept
		"\r\n" +
		"Your blog post on remote hiring gave me a few ideas for our own team.\r\n"

	got := Normalize(raw)
	assertWellFormed(t, got)
	if got[0] != "exactly twenty-one ch" {
		t.Errorf("line 0 = %q", got[0])
	}
	if got[1] != "Your blog post on remote hiring gave me a few ideas for our own team." {
		t.Errorf("line 1 = %q", got[1])
	}
	for i := 2; i < LineCount; i++ {
		if got[i] != FallbackLines[i-2] {
			t.Errorf("line %d = %q, want fallback %q", i, got[i], FallbackLines[i-2])
		}
	}
}

func TestNormalizeEmptyInputIsAllFallback(t *testing.T) {
	got := Normalize("")
	assertWellFormed(t, got)
	for i := range got {
		if got[i] != FallbackLines[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], FallbackLines[i])
		}
	}
}

func TestNormalizeCountsRunesNotBytes(t *testing.T) {
	// 20 runes, more than 20 bytes.
	short := "ééééééééééééééééééé."
	got := Normalize(short)
	if got[0] != FallbackLines[0] {
		t.Errorf("expected 20-rune line to be dropped, got %q", got[0])
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := "only one usable line that is long enough to keep"
	a := Normalize(raw)
	b := Normalize(raw)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run differs at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestNormalizeAlwaysFive(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"- \n* \n1.\n",
		strings.Repeat("A reasonably long line about the prospect's work.\n", 12),
		"no newline but long enough to count as one line",
	}
	for _, in := range inputs {
		assertWellFormed(t, Normalize(in))
	}
}
