package models

import (
	"time"

	"github.com/google/uuid"
)

// AutomationLogEntry is the append-only diagnostic trail of a job.
// Ordered by Seq within a job; write-only from the engine.
type AutomationLogEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID      uuid.UUID `gorm:"index"`
	Seq        int
	Level      string
	Message    string
	MovementID *uuid.UUID
	DocumentID *uuid.UUID
	CreatedAt  time.Time
}
