// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CycleStatus is the terminal status of one orchestrator cycle.
type CycleStatus string

const (
	CycleSuccess   CycleStatus = "success"
	CycleNoContent CycleStatus = "no_content"
	CycleError     CycleStatus = "error"
	CycleSkipped   CycleStatus = "skipped"
)

// CycleResult is the structured outcome record of one cycle, suitable for
// logging and health reporting.
type CycleResult struct {
	ID         string        `json:"id" yaml:"id"`
	Job        string        `json:"job" yaml:"job"`
	Status     CycleStatus   `json:"status" yaml:"status"`
	Message    string        `json:"message,omitempty" yaml:"message,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Attempts   int           `json:"attempts" yaml:"attempts"`

	Fetched   int `json:"fetched" yaml:"fetched"`
	Filtered  int `json:"filtered" yaml:"filtered"`
	New       int `json:"new" yaml:"new"`
	Analyzed  int `json:"analyzed" yaml:"analyzed"`
	Cached    int `json:"cached" yaml:"cached"`
	Published int `json:"published" yaml:"published"`

	Artifacts     map[string]string `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Notifications map[string]bool   `json:"notifications,omitempty" yaml:"notifications,omitempty"`
}
