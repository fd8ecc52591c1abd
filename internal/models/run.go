package models

import (
	"time"
)

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// StageStatus represents the status of one stage within a run
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
)

// Trigger records what started a run
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// ValidTriggers defines allowed run triggers
var ValidTriggers = map[Trigger]bool{
	TriggerSchedule: true,
	TriggerManual:   true,
}

// Run is one execution of the extract/transform/load workflow
type Run struct {
	ID          string     `json:"run_id" db:"id"`
	Trigger     Trigger    `json:"trigger" db:"trigger"`
	VideoID     string     `json:"video_id" db:"video_id"`
	Status      RunStatus  `json:"status" db:"status"`
	FailedStage string     `json:"failed_stage,omitempty" db:"failed_stage"`
	Error       string     `json:"error,omitempty" db:"error"`
	DurationMs  int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// StageRun is the bookkeeping row for a single stage of a run
type StageRun struct {
	RunID       string      `json:"-" db:"run_id"`
	Stage       string      `json:"stage" db:"stage"`
	Position    int         `json:"position" db:"position"`
	Status      StageStatus `json:"status" db:"status"`
	RecordsIn   int         `json:"records_in" db:"records_in"`
	RecordsOut  int         `json:"records_out" db:"records_out"`
	Dropped     int         `json:"dropped" db:"dropped"`
	DurationMs  int64       `json:"duration_ms,omitempty" db:"duration_ms"`
	Error       string      `json:"error,omitempty" db:"error"`
	StartedAt   *time.Time  `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// RunResponse is the API response for run status
type RunResponse struct {
	Run
	Stages []StageRun `json:"stages"`
}

// ArtifactInfo describes one artifact on disk
type ArtifactInfo struct {
	Name       string     `json:"name"`
	Exists     bool       `json:"exists"`
	Records    int        `json:"records"`
	SizeBytes  int64      `json:"size_bytes"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}
