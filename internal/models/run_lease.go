package models

import (
	"time"

	"github.com/google/uuid"
)

// RunLease enforces at most one running job per tenant. It is a row, not
// an in-process flag, so the guarantee survives process restarts: a lease
// may only be taken over once its expiry has passed.
type RunLease struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID     uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}
