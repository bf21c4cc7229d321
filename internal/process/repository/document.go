package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// DocumentRepo persists document metadata. Binary payloads live behind the
// uploads storage driver, not in the database.
type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) CreateInTx(ctx context.Context, tx *gorm.DB, document *model.Document) error {
	if err := tx.WithContext(ctx).Create(document).Error; err != nil {
		return translate(err, "document")
	}
	return nil
}

func (r *DocumentRepo) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]model.Document, error) {
	var documents []model.Document
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("uploaded_at DESC").
		Find(&documents).Error
	if err != nil {
		return nil, translate(err, "documents")
	}
	return documents, nil
}
