package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/mocks"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/service"
)

func TestArtifactService_StreamComments(t *testing.T) {
	svcs, _, store := newTestServices(t, testConfig(), mocks.NewMockPipelineRunner())
	ctx := context.Background()

	comments := []models.Comment{
		models.NewComment("A", "hi there", 2, "2023-01-01T00:00:00Z"),
		models.NewComment("C", "<3 & more", 0, "2023-01-03T00:00:00Z"),
	}
	if err := store.WriteCSV(models.CleanedArtifact, comments); err != nil {
		t.Fatal(err)
	}

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svcs.Artifact.StreamComments(ctx, w, "cleaned", "json"); err != nil {
			t.Fatalf("StreamComments failed: %v", err)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %s", ct)
		}
		var got []models.Comment
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if diff := cmp.Diff(comments, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if !strings.Contains(w.Body.String(), "<3 & more") {
			t.Errorf("Expected unescaped text, got %s", w.Body.String())
		}
	})

	t.Run("ndjson", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svcs.Artifact.StreamComments(ctx, w, "cleaned", "ndjson"); err != nil {
			t.Fatalf("StreamComments failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(lines))
		}
		var first models.Comment
		if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
			t.Fatalf("line 1 is not JSON: %v", err)
		}
		if *first.Author != "A" {
			t.Errorf("Expected first author A, got %s", *first.Author)
		}
	})

	t.Run("csv", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svcs.Artifact.StreamComments(ctx, w, "cleaned", "csv"); err != nil {
			t.Fatalf("StreamComments failed: %v", err)
		}
		got, err := artifact.DecodeCSV(w.Body)
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if diff := cmp.Diff(comments, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestArtifactService_StreamComments_Errors(t *testing.T) {
	svcs, _, _ := newTestServices(t, testConfig(), mocks.NewMockPipelineRunner())
	ctx := context.Background()

	tests := []struct {
		name     string
		artifact string
		format   string
		want     error
	}{
		{"unknown artifact", "staging", "json", service.ErrInvalidArtifact},
		{"unknown format", "final", "xml", service.ErrInvalidFormat},
		{"not yet written", "final", "json", artifact.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			err := svcs.Artifact.StreamComments(ctx, w, tt.artifact, tt.format)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if w.Body.Len() != 0 {
				t.Errorf("Expected nothing written, got %q", w.Body.String())
			}
		})
	}
}

func TestArtifactService_Summary(t *testing.T) {
	svcs, _, store := newTestServices(t, testConfig(), mocks.NewMockPipelineRunner())

	store.WriteCSV(models.RawArtifact, []models.Comment{
		models.NewComment("A", "x", 1, "t"),
		models.NewComment("B", "y", 2, "t"),
	})
	store.WriteJSON(models.FinalArtifact, nil)

	infos, err := svcs.Artifact.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 artifacts, got %d", len(infos))
	}

	byName := map[string]models.ArtifactInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	if raw := byName["raw"]; !raw.Exists || raw.Records != 2 || raw.SizeBytes == 0 || raw.ModifiedAt == nil {
		t.Errorf("unexpected raw summary: %+v", raw)
	}
	if cleaned := byName["cleaned"]; cleaned.Exists {
		t.Errorf("cleaned should not exist: %+v", cleaned)
	}
	if final := byName["final"]; !final.Exists || final.Records != 0 {
		t.Errorf("unexpected final summary: %+v", final)
	}
}
