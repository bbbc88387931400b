package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
)

// AutomationRepository owns the run bookkeeping: jobs, decisions, the
// diagnostic log and the per-tenant run lease.
type AutomationRepository struct {
	db *gorm.DB
}

func NewAutomationRepository(db *gorm.DB) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// CreateJob persists a pre-built job row. The caller supplies the id so
// the run lease can be taken under that id before the row exists.
func (r *AutomationRepository) CreateJob(job *models.AutomationJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	return r.db.Create(job).Error
}

func (r *AutomationRepository) GetJob(jobID uuid.UUID) (*models.AutomationJob, error) {
	var job models.AutomationJob
	if err := r.db.First(&job, "id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *AutomationRepository) MarkJobRunning(jobID uuid.UUID) error {
	res := r.db.Model(&models.AutomationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobPending).
		Update("status", models.JobRunning)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// FinalizeJob moves a running job to its terminal state and records the
// counters. Guarded so a completed or failed job is never rewritten.
func (r *AutomationRepository) FinalizeJob(jobID uuid.UUID, status string, counters models.AutomationJob, reason string) error {
	now := time.Now()
	res := r.db.Model(&models.AutomationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobRunning).
		Updates(map[string]interface{}{
			"status":         status,
			"scanned_count":  counters.ScannedCount,
			"matched_count":  counters.MatchedCount,
			"flagged_count":  counters.FlaggedCount,
			"errored_count":  counters.ErroredCount,
			"failure_reason": reason,
			"completed_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r *AutomationRepository) CreateDecision(d *models.MatchDecision) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return r.db.Create(d).Error
}

func (r *AutomationRepository) ListDecisionsByJob(jobID uuid.UUID) ([]models.MatchDecision, error) {
	var decisions []models.MatchDecision
	err := r.db.Where("job_id = ?", jobID).Order("created_at ASC, id ASC").Find(&decisions).Error
	return decisions, err
}

func (r *AutomationRepository) AppendLog(jobID uuid.UUID, seq int, level, message string, movementID, documentID *uuid.UUID) error {
	entry := &models.AutomationLogEntry{
		ID:         uuid.New(),
		JobID:      jobID,
		Seq:        seq,
		Level:      level,
		Message:    message,
		MovementID: movementID,
		DocumentID: documentID,
		CreatedAt:  time.Now(),
	}
	return r.db.Create(entry).Error
}

func (r *AutomationRepository) ListLogsByJob(jobID uuid.UUID) ([]models.AutomationLogEntry, error) {
	var entries []models.AutomationLogEntry
	err := r.db.Where("job_id = ?", jobID).Order("seq ASC").Find(&entries).Error
	return entries, err
}

// AcquireLease takes the tenant's run lease for ttl. Insert-or-nothing
// first; when the row already exists, a takeover is attempted only if the
// previous lease has expired. Either path is a single conditional write,
// so two concurrent callers cannot both win.
func (r *AutomationRepository) AcquireLease(tenantID, jobID uuid.UUID, ttl time.Duration) error {
	now := time.Now()
	lease := &models.RunLease{
		TenantID:  tenantID,
		JobID:     jobID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(lease)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	res = r.db.Model(&models.RunLease{}).
		Where("tenant_id = ? AND expires_at < ?", tenantID, now).
		Updates(map[string]interface{}{
			"job_id":     jobID,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunActive
	}
	return nil
}

// ReleaseLease frees the lease, but only for the job that holds it.
func (r *AutomationRepository) ReleaseLease(tenantID, jobID uuid.UUID) error {
	return r.db.
		Where("tenant_id = ? AND job_id = ?", tenantID, jobID).
		Delete(&models.RunLease{}).Error
}

// LoadMatchingConfig returns the tenant's scoring policy, falling back to
// the supplied defaults when no override row exists.
func (r *AutomationRepository) LoadMatchingConfig(tenantID uuid.UUID, defaults config.MatchingConfig) (config.MatchingConfig, error) {
	var row models.TenantMatchingConfig
	err := r.db.First(&row, "tenant_id = ?", tenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}

	cfg := config.MatchingConfig{
		AutoThreshold:   row.AutoThreshold,
		ReviewThreshold: row.ReviewThreshold,
		AmountTolerance: row.AmountTolerance,
		DateWindowDays:  row.DateWindowDays,
		TieEpsilon:      defaults.TieEpsilon,
		TextWeight:      row.TextWeight,
		AmountWeight:    row.AmountWeight,
		DateWeight:      row.DateWeight,
	}
	if err := cfg.Validate(); err != nil {
		return defaults, err
	}
	return cfg, nil
}
