package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MovementUnmatched       = "unmatched"
	MovementAutoMatched     = "auto_matched"
	MovementManuallyMatched = "manually_matched"
	MovementReviewPending   = "review_pending"
)

// Movement is a single bank-statement line pending reconciliation.
// Rows are created by statement ingestion; the engine only ever moves
// Status and MatchedDocumentID, never deletes.
type Movement struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID `gorm:"index"`
	MovementDate      time.Time `gorm:"column:movement_date"`
	Descriptor        string
	Amount            decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency          string
	Status            string `gorm:"index"`
	MatchedDocumentID *uuid.UUID
	ConfidenceScore   float64
	CreatedAt         time.Time
}
