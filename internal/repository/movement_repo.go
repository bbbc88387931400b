package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/models"
)

type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// ListUnmatched returns the tenant's matching backlog, ordered by id so
// batches are reproducible.
func (r *MovementRepository) ListUnmatched(tenantID uuid.UUID) ([]models.Movement, error) {
	var movements []models.Movement
	err := r.db.
		Where("tenant_id = ? AND status = ?", tenantID, models.MovementUnmatched).
		Order("id ASC").
		Find(&movements).Error
	return movements, err
}

func (r *MovementRepository) GetByID(id uuid.UUID) (*models.Movement, error) {
	var m models.Movement
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkAutoMatched transitions unmatched -> auto_matched. The status guard
// makes the write conditional: if a reviewer or another process touched
// the movement since the batch snapshot, the update affects no rows and
// ErrConflict is returned.
func (r *MovementRepository) MarkAutoMatched(movementID, documentID uuid.UUID, score float64) error {
	res := r.db.Model(&models.Movement{}).
		Where("id = ? AND status = ?", movementID, models.MovementUnmatched).
		Updates(map[string]interface{}{
			"status":              models.MovementAutoMatched,
			"matched_document_id": documentID,
			"confidence_score":    score,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// MarkReviewPending surfaces the top candidate for human action without
// consuming the document.
func (r *MovementRepository) MarkReviewPending(movementID, documentID uuid.UUID, score float64) error {
	res := r.db.Model(&models.Movement{}).
		Where("id = ? AND status = ?", movementID, models.MovementUnmatched).
		Updates(map[string]interface{}{
			"status":              models.MovementReviewPending,
			"matched_document_id": documentID,
			"confidence_score":    score,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ClearMatch is the manual unmatch: the movement goes back to the backlog
// and the previously referenced document id is returned so the caller can
// release it. Guarded on the movement still being in a matched state.
func (r *MovementRepository) ClearMatch(movementID uuid.UUID) (*uuid.UUID, error) {
	m, err := r.GetByID(movementID)
	if err != nil {
		return nil, err
	}
	previous := m.MatchedDocumentID

	res := r.db.Model(&models.Movement{}).
		Where("id = ? AND status IN ?", movementID, []string{
			models.MovementAutoMatched,
			models.MovementManuallyMatched,
			models.MovementReviewPending,
		}).
		Updates(map[string]interface{}{
			"status":              models.MovementUnmatched,
			"matched_document_id": nil,
			"confidence_score":    0,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConflict
	}
	return previous, nil
}

// TenantsWithBacklog lists tenants that have at least one unmatched
// movement. Used by the scheduler to decide which tenants to run.
func (r *MovementRepository) TenantsWithBacklog() ([]uuid.UUID, error) {
	var tenants []uuid.UUID
	err := r.db.Model(&models.Movement{}).
		Where("status = ?", models.MovementUnmatched).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}
