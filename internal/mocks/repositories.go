package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/repository"
)

// MockRunRepository is an in-memory implementation of RunRepository
type MockRunRepository struct {
	mu          sync.Mutex
	Runs        map[string]*models.Run
	Stages      map[string][]models.StageRun
	CreateError error
	UpdateError error
	StageError  error
	UpdateCalls int
}

// Verify interface compliance
var _ repository.RunRepository = (*MockRunRepository)(nil)

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{
		Runs:   make(map[string]*models.Run),
		Stages: make(map[string][]models.StageRun),
	}
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *run
	m.Runs[run.ID] = &stored
	return nil
}

func (m *MockRunRepository) Update(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored := *run
	m.Runs[run.ID] = &stored
	return nil
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]*models.Run, 0, len(m.Runs))
	for _, run := range m.Runs {
		copied := *run
		runs = append(runs, &copied)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MockRunRepository) GetPendingRuns(ctx context.Context) ([]*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []*models.Run
	for _, run := range m.Runs {
		if run.Status == models.RunStatusPending {
			copied := *run
			runs = append(runs, &copied)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	return runs, nil
}

func (m *MockRunRepository) MarkRunAsRunning(ctx context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[runID]
	if !ok || run.Status != models.RunStatusPending {
		return false, nil
	}
	now := time.Now()
	run.Status = models.RunStatusRunning
	run.StartedAt = &now
	return true, nil
}

func (m *MockRunRepository) FailInterruptedRuns(ctx context.Context, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, run := range m.Runs {
		if run.Status == models.RunStatusRunning {
			run.Status = models.RunStatusFailed
			run.Error = reason
			n++
		}
	}
	return n, nil
}

func (m *MockRunRepository) CreateStages(ctx context.Context, runID string, stages []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StageError != nil {
		return m.StageError
	}
	rows := make([]models.StageRun, 0, len(stages))
	for i, stage := range stages {
		rows = append(rows, models.StageRun{
			RunID:    runID,
			Stage:    stage,
			Position: i + 1,
			Status:   models.StageStatusPending,
		})
	}
	m.Stages[runID] = rows
	return nil
}

func (m *MockRunRepository) UpdateStage(ctx context.Context, stage *models.StageRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.Stages[stage.RunID]
	for i := range rows {
		if rows[i].Stage == stage.Stage {
			rows[i] = *stage
			return nil
		}
	}
	return nil
}

func (m *MockRunRepository) GetStages(ctx context.Context, runID string) ([]models.StageRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]models.StageRun, len(m.Stages[runID]))
	copy(rows, m.Stages[runID])
	return rows, nil
}

// Run returns a copy of a stored run for assertions
func (m *MockRunRepository) Run(id string) (models.Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return models.Run{}, false
	}
	return *run, true
}
