// SPDX-License-Identifier: AGPL-3.0-only
package model

import "time"

// Run status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Run is the summary of one workflow invocation. The full conversation is
// not kept.
type Run struct {
	ID                 string    `json:"id"`
	Workflow           string    `json:"workflow"`
	Status             string    `json:"status"`
	Output             string    `json:"output,omitempty"`
	NotificationStatus string    `json:"notificationStatus,omitempty"`
	MessageCount       int       `json:"messageCount"`
	Error              string    `json:"error,omitempty"`
	ExitCode           int       `json:"exitCode"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	Duration           string    `json:"duration"`
}

// RunStore persists run summaries.
type RunStore interface {
	SaveRun(run *Run) error
	// GetRuns returns up to limit runs, most recent first. An empty
	// workflow matches every workflow.
	GetRuns(workflow string, limit int) ([]*Run, error)
	// GetLatestRun returns nil, nil when no run exists.
	GetLatestRun(workflow string) (*Run, error)
	Close() error
}
