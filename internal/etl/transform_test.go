package etl_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"hi\nthere":         "hi there",
		"a\r\nb":            "a b",
		"a\rb":              "a b",
		"a\n\nb":            "a  b",
		"a\r\n\r\nb":        "a  b",
		"\n\rmixed\n":       "  mixed ",
		"no breaks at all":  "no breaks at all",
		"":                  "",
		"tab\tstays\tthere": "tab\tstays\tthere",
	}

	for input, want := range tests {
		if got := etl.CleanText(input); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestClean_Scenario(t *testing.T) {
	in := []models.Comment{
		models.NewComment("A", "hi\nthere", 2, "2023-01-01T00:00:00Z"),
		{Author: strPtr("B"), Likes: intPtr(0), PublishedAt: strPtr("2023-01-02T00:00:00Z")},
	}

	got, dropped := etl.Clean(in, zerolog.Nop())

	want := []models.Comment{models.NewComment("A", "hi there", 2, "2023-01-01T00:00:00Z")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cleaned mismatch (-want +got):\n%s", diff)
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", dropped)
	}
	if *in[0].Text != "hi\nthere" {
		t.Errorf("Clean modified its input: %q", *in[0].Text)
	}
}

func TestClean_DropsAnyNullField(t *testing.T) {
	in := []models.Comment{
		{Text: strPtr("x"), Likes: intPtr(1), PublishedAt: strPtr("t")},
		{Author: strPtr("a"), Text: strPtr("x"), PublishedAt: strPtr("t")},
		{Author: strPtr("a"), Text: strPtr("x"), Likes: intPtr(1)},
		{},
		models.NewComment("keep", "x", 0, "t"),
	}

	got, dropped := etl.Clean(in, zerolog.Nop())
	if dropped != 4 {
		t.Errorf("Expected 4 dropped, got %d", dropped)
	}
	if len(got) != 1 || *got[0].Author != "keep" {
		t.Errorf("Expected only the complete comment, got %#v", got)
	}
}

func TestClean_Properties(t *testing.T) {
	in := []models.Comment{
		models.NewComment("A", "line1\r\nline2", 1, "2023-01-01T00:00:00Z"),
		{Author: strPtr("B"), Likes: intPtr(0), PublishedAt: strPtr("2023-01-02T00:00:00Z")},
		models.NewComment("C", "plain", 3, "2023-01-03T00:00:00Z"),
		models.NewComment("A", "line1\r\nline2", 1, "2023-01-01T00:00:00Z"),
		{Author: strPtr("D"), Text: strPtr("multi\n"), PublishedAt: strPtr("2023-01-04T00:00:00Z")},
		models.NewComment("E", "\n", 9, "2023-01-05T00:00:00Z"),
	}

	once, _ := etl.Clean(in, zerolog.Nop())

	t.Run("no line breaks and no nulls", func(t *testing.T) {
		for i, c := range once {
			if !c.IsComplete() {
				t.Errorf("record %d has a null field", i)
			}
			if strings.ContainsAny(*c.Text, "\r\n") {
				t.Errorf("record %d still contains a line break: %q", i, *c.Text)
			}
		}
	})

	t.Run("order preserving subsequence", func(t *testing.T) {
		wantAuthors := []string{"A", "C", "A", "E"}
		gotAuthors := make([]string, 0, len(once))
		for _, c := range once {
			gotAuthors = append(gotAuthors, *c.Author)
		}
		if diff := cmp.Diff(wantAuthors, gotAuthors); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		twice, dropped := etl.Clean(once, zerolog.Nop())
		if dropped != 0 {
			t.Errorf("Expected no drops on second pass, got %d", dropped)
		}
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("second pass changed output (-first +second):\n%s", diff)
		}
	})
}

func TestClean_Empty(t *testing.T) {
	got, dropped := etl.Clean(nil, zerolog.Nop())
	if got == nil || len(got) != 0 || dropped != 0 {
		t.Errorf("Expected empty non-nil result, got %#v (dropped %d)", got, dropped)
	}
}
