// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"context"
	"time"
)

// JobStatus is the state of a scheduled job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job runs a workflow on a cron schedule.
type Job struct {
	ID        string    `json:"id"`
	Workflow  string    `json:"workflow"`
	Schedule  string    `json:"schedule"`
	Status    JobStatus `json:"status"`
	LastError string    `json:"lastError,omitempty"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Executor runs a workflow by name.
type Executor interface {
	Execute(ctx context.Context, workflow string, timeout time.Duration) error
}
