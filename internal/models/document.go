package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is a fiscally valid invoice record available as a match target.
// Immutable from the engine's perspective except for the consumed marker,
// which prevents the same invoice being auto-matched to two movements.
type Document struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID `gorm:"index"`
	InvoiceNumber      string    `gorm:"index"`
	CounterpartyName   string    `gorm:"index"`
	CounterpartyTaxID  string
	Description        string
	Amount             decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency           string
	IssueDate          time.Time
	Consumed           bool `gorm:"index"`
	ConsumedByMovement *uuid.UUID
	CreatedAt          time.Time
}
