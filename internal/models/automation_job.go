package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// AutomationJob is one reconciliation run over a tenant's backlog.
// Mutated only by the orchestrator; terminal once completed or failed.
type AutomationJob struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"index"`
	Status        string    `gorm:"index"`
	ScannedCount  int
	MatchedCount  int
	FlaggedCount  int
	ErroredCount  int
	FailureReason string
	StartedAt     time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
}
