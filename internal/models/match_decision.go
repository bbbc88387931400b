package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DecisionAuto     = "auto"
	DecisionReview   = "review"
	DecisionRejected = "rejected"
)

// MatchDecision is the append-only audit record of one engine decision.
// A later run may supersede a prior decision with a new row; rows are
// never updated or removed.
type MatchDecision struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID `gorm:"index"`
	JobID      uuid.UUID `gorm:"index"`
	MovementID uuid.UUID `gorm:"index"`
	DocumentID *uuid.UUID
	Kind       string `gorm:"index"`
	Score      float64
	Details    datatypes.JSON
	CreatedAt  time.Time
}
