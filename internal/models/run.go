package models

import (
	"time"
)

// RunState represents the stage an orchestration run is in
type RunState string

const (
	RunStateFetching        RunState = "fetching"
	RunStateGenerating      RunState = "generating"
	RunStateImageGenerating RunState = "image_generating"
	RunStatePersisting      RunState = "persisting"
	RunStateDone            RunState = "done"
	RunStateFailed          RunState = "failed"
)

// FailureReason classifies why a run failed
type FailureReason string

const (
	ReasonSourceUnavailable   FailureReason = "SourceUnavailable"
	ReasonGenerationFailed    FailureReason = "GenerationFailed"
	ReasonAssetPersistFailed  FailureReason = "AssetPersistFailed"
	ReasonRecordPersistFailed FailureReason = "RecordPersistFailed"
	ReasonTimeout             FailureReason = "Timeout"

	// ReasonCancelled marks runs aborted by shutdown before they reached persisting
	ReasonCancelled FailureReason = "Cancelled"
)

// RunTrigger identifies what started a run
type RunTrigger string

const (
	TriggerSchedule  RunTrigger = "schedule"
	TriggerHTTP      RunTrigger = "http"
	TriggerRepublish RunTrigger = "republish"
)

// RunFailure describes a failed run
type RunFailure struct {
	Reason FailureReason `json:"reason"`
	Cause  string        `json:"cause"`
}

// RunResult is the outcome of one orchestration run
type RunResult struct {
	RunID         string      `json:"run_id"`
	Trigger       RunTrigger  `json:"trigger"`
	State         RunState    `json:"state"`
	Slug          string      `json:"slug,omitempty"`
	Post          *Post       `json:"post,omitempty"`
	Failure       *RunFailure `json:"failure,omitempty"`
	TitleAttempts int         `json:"title_attempts"`
	Shared        bool        `json:"shared,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	DurationMs    int64       `json:"duration_ms"`
}

// RunRequest carries per-run overrides from a trigger
type RunRequest struct {
	Trigger RunTrigger `json:"-"`
	Topic   string     `json:"topic,omitempty"`
}
