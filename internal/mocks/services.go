package mocks

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/service"
)

// MockRunService is a mock implementation of RunService
type MockRunService struct {
	Runs        map[string]*models.RunResponse
	Recent      []*models.Run
	TriggerFunc func(ctx context.Context, trigger models.Trigger) (*models.Run, error)
	ListError   error
	Triggered   []models.Trigger
	Executed    []*models.Run
	LastLimit   int
	mu          sync.Mutex
}

// Verify interface compliance
var _ service.RunService = (*MockRunService)(nil)

func NewMockRunService() *MockRunService {
	return &MockRunService{
		Runs: make(map[string]*models.RunResponse),
	}
}

func (m *MockRunService) TriggerRun(ctx context.Context, trigger models.Trigger) (*models.Run, error) {
	m.mu.Lock()
	m.Triggered = append(m.Triggered, trigger)
	m.mu.Unlock()

	if m.TriggerFunc != nil {
		return m.TriggerFunc(ctx, trigger)
	}
	return &models.Run{
		ID:        "test-run-id",
		Trigger:   trigger,
		VideoID:   "q8q3OFFfY6c",
		Status:    models.RunStatusPending,
		CreatedAt: time.Now(),
	}, nil
}

func (m *MockRunService) ExecuteRun(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Executed = append(m.Executed, run)
	run.Status = models.RunStatusSucceeded
	return nil
}

func (m *MockRunService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	return m.Runs[id], nil
}

func (m *MockRunService) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	m.LastLimit = limit
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Recent, nil
}

func (m *MockRunService) StartProcessor(ctx context.Context) {}

func (m *MockRunService) StopProcessor() {}

// TriggerCount returns how many runs were requested
func (m *MockRunService) TriggerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Triggered)
}

// MockArtifactService is a mock implementation of ArtifactService
type MockArtifactService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, name, format string) error
	Artifacts  []models.ArtifactInfo
}

// Verify interface compliance
var _ service.ArtifactService = (*MockArtifactService)(nil)

func NewMockArtifactService() *MockArtifactService {
	return &MockArtifactService{}
}

func (m *MockArtifactService) StreamComments(ctx context.Context, w http.ResponseWriter, name, format string) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, name, format)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("[]\n"))
	return nil
}

func (m *MockArtifactService) Summary(ctx context.Context) ([]models.ArtifactInfo, error) {
	return m.Artifacts, nil
}

// MockPipelineRunner is a mock implementation of PipelineRunner
type MockPipelineRunner struct {
	Stages  []string
	RunFunc func(ctx context.Context, obs etl.Observer) error
	mu      sync.Mutex
	Calls   int
}

// Verify interface compliance
var _ service.PipelineRunner = (*MockPipelineRunner)(nil)

func NewMockPipelineRunner() *MockPipelineRunner {
	return &MockPipelineRunner{
		Stages: []string{etl.StageExtract, etl.StageTransform, etl.StageLoad},
	}
}

func (m *MockPipelineRunner) Order() ([]string, error) {
	return m.Stages, nil
}

// Run reports every stage as succeeded unless RunFunc is set
func (m *MockPipelineRunner) Run(ctx context.Context, obs etl.Observer) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, obs)
	}
	for i, stage := range m.Stages {
		obs.StageStarted(ctx, stage, i+1)
		obs.StageFinished(ctx, stage, i+1, etl.Result{RecordsIn: 1, RecordsOut: 1}, time.Millisecond, nil)
	}
	return nil
}

// CallCount returns how many times Run was invoked
func (m *MockPipelineRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
