package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// AuditRepo persists audit log entries. Create and List are the whole
// surface; nothing in the codebase can update or delete an entry.
type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) CreateInTx(ctx context.Context, tx *gorm.DB, entry *model.AuditLogEntry) error {
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return translate(err, "audit entry")
	}
	return nil
}

func (r *AuditRepo) ListByProcess(ctx context.Context, processID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("process_id = ?", processID).
		Order("recorded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []model.AuditLogEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, translate(err, "audit entries")
	}
	return entries, nil
}

// ListRecentForUser returns recent entries on processes the user created or
// is currently assigned to.
func (r *AuditRepo) ListRecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []model.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("process_id IN (?)", r.db.Model(&model.ProcessInstance{}).
			Select("id").
			Where("created_by_id = ? OR assignee_id = ?", userID, userID)).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, translate(err, "audit entries")
	}
	return entries, nil
}
