package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantMatchingConfig overrides the global matching policy for one tenant.
// Vendors vary in how literally a bank descriptor reflects the invoice, so
// thresholds and weights are data, not constants.
type TenantMatchingConfig struct {
	TenantID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AutoThreshold   float64
	ReviewThreshold float64
	AmountTolerance float64
	DateWindowDays  int
	TextWeight      float64
	AmountWeight    float64
	DateWeight      float64
	UpdatedAt       time.Time
}
