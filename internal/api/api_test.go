package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/api"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/mocks"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/service"
)

const testRunID = "3f6c1d2e-8a4b-4c1d-9e2f-0a1b2c3d4e5f"

type fakeDB struct {
	err error
}

func (f *fakeDB) HealthCheck(ctx context.Context) error { return f.err }

func setupTestRouter(db api.HealthChecker) (*gin.Engine, *mocks.MockRunService, *mocks.MockArtifactService) {
	gin.SetMode(gin.TestMode)

	mockRun := mocks.NewMockRunService()
	mockArtifact := mocks.NewMockArtifactService()

	services := &service.Services{
		Run:      mockRun,
		Artifact: mockArtifact,
	}

	router := api.NewRouter(services, db, zerolog.Nop())
	return router, mockRun, mockArtifact
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "youtube-comments-etl" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	router, _, _ := setupTestRouter(&fakeDB{err: errors.New("connection refused")})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["status"] != "unhealthy" {
		t.Errorf("Expected unhealthy, got %v", response["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(&fakeDB{})

	// generate at least one observation
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "youtube_comments_etl_http_requests_total") {
		t.Error("Expected HTTP request counter in exposition")
	}
}

func TestCreateRun(t *testing.T) {
	router, mockRun, _ := setupTestRouter(nil)

	req := httptest.NewRequest("POST", "/v1/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if mockRun.TriggerCount() != 1 || mockRun.Triggered[0] != models.TriggerManual {
		t.Errorf("Expected one manual trigger, got %v", mockRun.Triggered)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["run_id"] != "test-run-id" {
		t.Errorf("Expected run_id, got %v", response["run_id"])
	}
	if response["status_url"] != "/v1/runs/test-run-id" {
		t.Errorf("Expected status_url, got %v", response["status_url"])
	}
}

func TestCreateRun_Error(t *testing.T) {
	router, mockRun, _ := setupTestRouter(nil)
	mockRun.TriggerFunc = func(ctx context.Context, trigger models.Trigger) (*models.Run, error) {
		return nil, errors.New("database unavailable")
	}

	req := httptest.NewRequest("POST", "/v1/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}

func TestGetRun(t *testing.T) {
	router, mockRun, _ := setupTestRouter(nil)

	now := time.Now()
	mockRun.Runs[testRunID] = &models.RunResponse{
		Run: models.Run{
			ID:          testRunID,
			Trigger:     models.TriggerSchedule,
			VideoID:     "q8q3OFFfY6c",
			Status:      models.RunStatusFailed,
			FailedStage: "transform",
			Error:       "stage transform: artifact not found",
			CreatedAt:   now,
		},
		Stages: []models.StageRun{
			{Stage: "extract", Position: 1, Status: models.StageStatusSucceeded, RecordsIn: 2, RecordsOut: 2},
			{Stage: "transform", Position: 2, Status: models.StageStatusFailed},
			{Stage: "load", Position: 3, Status: models.StageStatusSkipped},
		},
	}

	req := httptest.NewRequest("GET", "/v1/runs/"+testRunID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.ID != testRunID {
		t.Errorf("Expected run_id %s, got %s", testRunID, response.ID)
	}
	if response.FailedStage != "transform" {
		t.Errorf("Expected failed_stage transform, got %q", response.FailedStage)
	}
	if len(response.Stages) != 3 || response.Stages[2].Status != models.StageStatusSkipped {
		t.Errorf("Expected three stages ending in skipped, got %+v", response.Stages)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	req := httptest.NewRequest("GET", "/v1/runs/"+testRunID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetRun_InvalidID(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	req := httptest.NewRequest("GET", "/v1/runs/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	router, mockRun, _ := setupTestRouter(nil)
	mockRun.Recent = []*models.Run{
		{ID: "b", Status: models.RunStatusRunning},
		{ID: "a", Status: models.RunStatusSucceeded},
	}

	tests := []struct {
		query     string
		status    int
		wantLimit int
	}{
		{"", http.StatusOK, 0},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=0", http.StatusBadRequest, -1},
		{"?limit=abc", http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			mockRun.LastLimit = -1
			req := httptest.NewRequest("GET", "/v1/runs"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}
			if mockRun.LastLimit != tt.wantLimit {
				t.Errorf("Expected limit %d passed to service, got %d", tt.wantLimit, mockRun.LastLimit)
			}
			if tt.status != http.StatusOK {
				return
			}

			var response struct {
				Runs  []models.Run `json:"runs"`
				Count int          `json:"count"`
			}
			json.Unmarshal(w.Body.Bytes(), &response)
			if response.Count != 2 || response.Runs[0].ID != "b" {
				t.Errorf("unexpected response: %+v", response)
			}
		})
	}
}

func TestListRuns_Empty(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	req := httptest.NewRequest("GET", "/v1/runs", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"runs":[]`) {
		t.Errorf("Expected empty array, got %s", w.Body.String())
	}
}

func TestStreamComments_Validation(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"defaults", "", http.StatusOK},
		{"raw csv", "?artifact=raw&format=csv", http.StatusOK},
		{"unknown artifact", "?artifact=staging", http.StatusBadRequest},
		{"unknown format", "?format=xml", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/comments"+tt.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestStreamComments_Defaults(t *testing.T) {
	router, _, mockArtifact := setupTestRouter(nil)

	var gotName, gotFormat string
	mockArtifact.StreamFunc = func(ctx context.Context, w http.ResponseWriter, name, format string) error {
		gotName, gotFormat = name, format
		fmt.Fprint(w, "[]")
		return nil
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/v1/comments", nil))

	if gotName != "final" || gotFormat != "json" {
		t.Errorf("Expected final/json defaults, got %s/%s", gotName, gotFormat)
	}
}

func TestStreamComments_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing artifact", fmt.Errorf("%w: comments_final.json", artifact.ErrNotFound), http.StatusNotFound},
		{"malformed artifact", fmt.Errorf("%w: line 3", artifact.ErrMalformed), http.StatusInternalServerError},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, mockArtifact := setupTestRouter(nil)
			mockArtifact.StreamFunc = func(ctx context.Context, w http.ResponseWriter, name, format string) error {
				return tt.err
			}

			req := httptest.NewRequest("GET", "/v1/comments?artifact=final", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil || response["error"] == nil {
				t.Errorf("Expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	router, _, mockArtifact := setupTestRouter(nil)
	mockArtifact.Artifacts = []models.ArtifactInfo{
		{Name: "raw", Exists: true, Records: 10, SizeBytes: 420},
		{Name: "cleaned", Exists: false},
		{Name: "final", Exists: false},
	}

	req := httptest.NewRequest("GET", "/v1/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Artifacts []models.ArtifactInfo `json:"artifacts"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if len(response.Artifacts) != 3 || response.Artifacts[0].Records != 10 {
		t.Errorf("unexpected stats: %+v", response.Artifacts)
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _, _ := setupTestRouter(nil)

	req := httptest.NewRequest("GET", "/v1/imports", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
