package domain

import (
	"reflect"
	"strings"
	"testing"
)

func findFlag(report RiskReport, category RiskCategory) *RiskFlag {
	for i := range report.Flags {
		if report.Flags[i].Category == category {
			return &report.Flags[i]
		}
	}
	return nil
}

func TestScoreContent_CleanTextIsUnflagged(t *testing.T) {
	t.Parallel()

	report := ScoreContent("a normal title", "a normal, safe story with no risk markers")

	if report.Flagged {
		t.Fatal("clean text should not be flagged")
	}
	if len(report.Flags) != 0 {
		t.Fatalf("flags = %v, want none", report.Flags)
	}
	if report.Score != 0 {
		t.Fatalf("score = %d, want 0", report.Score)
	}
}

func TestScoreContent_TitledName(t *testing.T) {
	t.Parallel()

	report := ScoreContent("Dr. Smith helped me", "")

	if !report.Flagged {
		t.Fatal("expected flagged = true")
	}
	if len(report.Flags) != 1 {
		t.Fatalf("flags = %+v, want exactly one", report.Flags)
	}
	flag := report.Flags[0]
	if flag.Category != CategoryNamedIndividual {
		t.Fatalf("category = %s, want %s", flag.Category, CategoryNamedIndividual)
	}
	if len(flag.Matches) != 1 || flag.Matches[0] != "Dr. Smith" {
		t.Fatalf("matches = %v, want [Dr. Smith]", flag.Matches)
	}
	if report.Score != int(SeverityReview) {
		t.Fatalf("score = %d, want %d", report.Score, SeverityReview)
	}
}

func TestScoreContent_RoleAndFacilityNames(t *testing.T) {
	t.Parallel()

	report := ScoreContent("", "Officer Jones took me to detox at Sunrise Valley Rehab Center last spring")

	flag := findFlag(report, CategoryNamedIndividual)
	if flag == nil {
		t.Fatalf("expected a named-individual flag, got %+v", report.Flags)
	}
	// One flag per family regardless of how many patterns hit.
	joined := strings.Join(flag.Matches, "|")
	if !strings.Contains(joined, "Officer Jones") {
		t.Fatalf("matches = %v, want Officer Jones included", flag.Matches)
	}
}

func TestScoreContent_OneFlagPerFamilyWithDedupedMatches(t *testing.T) {
	t.Parallel()

	body := "call me at 555-123-4567 or 555-123-4567, or mail me@example.com"
	report := ScoreContent("", body)

	flag := findFlag(report, CategoryEmbeddedContactInfo)
	if flag == nil {
		t.Fatalf("expected an embedded-contact-info flag, got %+v", report.Flags)
	}
	if len(report.Flags) != 1 {
		t.Fatalf("flags = %+v, want exactly one family", report.Flags)
	}
	seen := map[string]int{}
	for _, m := range flag.Matches {
		seen[m]++
		if seen[m] > 1 {
			t.Fatalf("match %q appears more than once: %v", m, flag.Matches)
		}
	}
	if flag.Severity != SeverityWarning {
		t.Fatalf("severity = %d, want %d", flag.Severity, SeverityWarning)
	}
}

func TestScoreContent_SpamSignals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"promotional phrasing", "BUY NOW and make money fast"},
		{"multiple urls", "see https://a.example.com and https://b.example.com"},
		{"repeated character run", "wow!!!!!!!!!!"},
		{"all caps run", "THIS IS AN ABSOLUTELY INCREDIBLE DEAL FOR YOU"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			report := ScoreContent("", tc.body)
			flag := findFlag(report, CategorySpamIndicator)
			if flag == nil {
				t.Fatalf("expected spam-indicator flag for %q, got %+v", tc.body, report.Flags)
			}
			if flag.Severity != SeverityWarning {
				t.Fatalf("severity = %d, want warning", flag.Severity)
			}
		})
	}
}

func TestScoreContent_TriggeringContentIsReviewSeverity(t *testing.T) {
	t.Parallel()

	report := ScoreContent("", "back then I wanted to kill myself every single day")

	flag := findFlag(report, CategoryTriggeringContent)
	if flag == nil {
		t.Fatalf("expected triggering-content flag, got %+v", report.Flags)
	}
	if flag.Severity != SeverityReview {
		t.Fatalf("severity = %d, want review", flag.Severity)
	}
}

func TestScoreContent_CaseInsensitive(t *testing.T) {
	t.Parallel()

	lower := ScoreContent("", "dr. smith was there")
	upper := ScoreContent("", "DR. SMITH WAS THERE")

	if findFlag(lower, CategoryNamedIndividual) == nil {
		t.Fatal("lowercase titled name should match")
	}
	if findFlag(upper, CategoryNamedIndividual) == nil {
		t.Fatal("uppercase titled name should match")
	}
}

func TestScoreContent_ScoreSumsSeverities(t *testing.T) {
	t.Parallel()

	report := ScoreContent("Dr. Smith", "call 555-123-4567, this shit works")

	want := int(SeverityReview) + int(SeverityWarning) + int(SeverityReview)
	if report.Score != want {
		t.Fatalf("score = %d, want %d (flags: %+v)", report.Score, want, report.Flags)
	}
}

func TestScoreContent_Deterministic(t *testing.T) {
	t.Parallel()

	body := "Dr. Smith told me to visit my website https://a.example https://b.example or call 555-123-4567"
	first := ScoreContent("title", body)
	second := ScoreContent("title", body)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reports differ between invocations:\n%+v\n%+v", first, second)
	}
}
