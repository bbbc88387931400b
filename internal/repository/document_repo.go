package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/models"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Expose DB if needed
func (r *DocumentRepository) DB() *gorm.DB {
	return r.db
}

// ListUnconsumed returns the tenant's eligible match targets: invoices
// not yet claimed by an auto decision.
func (r *DocumentRepository) ListUnconsumed(tenantID uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.
		Where("tenant_id = ? AND consumed = ?", tenantID, false).
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) GetByID(id uuid.UUID) (*models.Document, error) {
	var d models.Document
	if err := r.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Claim atomically marks the document consumed by one movement. The
// consumed guard means a retried or partially-failed run cannot claim the
// same invoice twice: the second attempt affects no rows.
func (r *DocumentRepository) Claim(documentID, movementID uuid.UUID) error {
	res := r.db.Model(&models.Document{}).
		Where("id = ? AND consumed = ?", documentID, false).
		Updates(map[string]interface{}{
			"consumed":             true,
			"consumed_by_movement": movementID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// Release undoes a claim after a manual unmatch (or a failed movement
// write right after a claim), returning the invoice to the candidate pool.
func (r *DocumentRepository) Release(documentID uuid.UUID) error {
	res := r.db.Model(&models.Document{}).
		Where("id = ? AND consumed = ?", documentID, true).
		Updates(map[string]interface{}{
			"consumed":             false,
			"consumed_by_movement": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
