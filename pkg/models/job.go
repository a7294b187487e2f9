package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

const (
	JobTypeLibrarySync = "library_sync"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int         `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Type       string      `bun:",nullzero" json:"type"`
	Status     string      `bun:",nullzero" json:"status"`
	Data       string      `bun:",nullzero" json:"-"`
	DataParsed interface{} `bun:"-" json:"data"`
	Progress   int         `json:"progress"`
	ProcessID  *string     `json:"process_id,omitempty"`
	LibraryID  *int        `json:"library_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	if job.Data == "" {
		return nil
	}

	switch job.Type {
	case JobTypeLibrarySync:
		job.DataParsed = &JobLibrarySyncData{}
	}

	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// JobLibrarySyncData carries live progress and the terminal report of a
// synchronization run for display.
type JobLibrarySyncData struct {
	CurrentPath    string         `json:"current_path,omitempty"`
	UnitsCompleted int            `json:"units_completed"`
	UnitsTotal     int            `json:"units_total"`
	Report         *JobSyncReport `json:"report,omitempty"`
}

// JobSyncReport is the persisted summary of a finished (or cancelled) run.
type JobSyncReport struct {
	Applied  int      `json:"applied"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
