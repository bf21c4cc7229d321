package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OpenTramite/tramite/internal/process/model"
	"github.com/OpenTramite/tramite/utils"
)

// ProcessRepo persists process instances.
type ProcessRepo struct {
	db *gorm.DB
}

func NewProcessRepo(db *gorm.DB) *ProcessRepo {
	return &ProcessRepo{db: db}
}

func (r *ProcessRepo) CreateInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error {
	if err := tx.WithContext(ctx).Create(process).Error; err != nil {
		return translate(err, "process")
	}
	return nil
}

func (r *ProcessRepo) SaveInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error {
	if err := tx.WithContext(ctx).Save(process).Error; err != nil {
		return translate(err, "process")
	}
	return nil
}

func (r *ProcessRepo) GetByID(ctx context.Context, processID uuid.UUID) (*model.ProcessInstance, error) {
	var process model.ProcessInstance
	err := r.db.WithContext(ctx).
		Preload("CurrentStep").
		Preload("Assignee").
		Preload("CreatedBy").
		First(&process, "id = ?", processID).Error
	if err != nil {
		return nil, translate(err, "process "+processID.String()+" not found")
	}
	return &process, nil
}

// GetForUpdateInTx locks the process row for the remainder of the enclosing
// transaction. All state-machine mutations go through this read.
func (r *ProcessRepo) GetForUpdateInTx(ctx context.Context, tx *gorm.DB, processID uuid.UUID) (*model.ProcessInstance, error) {
	var process model.ProcessInstance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&process, "id = ?", processID).Error
	if err != nil {
		return nil, translate(err, "process "+processID.String()+" not found")
	}
	return &process, nil
}

// List returns processes matching the filter, newest first. When visibleTo
// is a non-administrative user the query is restricted to processes the user
// created, is assigned to, or has executed a step of.
func (r *ProcessRepo) List(ctx context.Context, filter model.ProcessFilter, visibleTo *model.User) ([]model.ProcessInstance, error) {
	q := r.db.WithContext(ctx).Model(&model.ProcessInstance{})

	if visibleTo != nil {
		q = q.Where(
			r.db.Where("created_by_id = ?", visibleTo.ID).
				Or("assignee_id = ?", visibleTo.ID).
				Or("id IN (?)", r.db.Model(&model.StepExecution{}).
					Select("process_id").
					Where("executor_id = ?", visibleTo.ID)),
		)
	}

	if filter.NumberContains != "" {
		q = q.Where("number LIKE ?", "%"+filter.NumberContains+"%")
	}
	if filter.TemplateID != nil {
		q = q.Where("template_id = ?", *filter.TemplateID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CreatedByID != nil {
		q = q.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		q = q.Where("created_at <= ?", *filter.CreatedTo)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var processes []model.ProcessInstance
	err := q.Preload("CurrentStep").
		Preload("Assignee").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&processes).Error
	if err != nil {
		return nil, translate(err, "processes")
	}
	return processes, nil
}

func (r *ProcessRepo) CountByStatus(ctx context.Context, userID uuid.UUID, asCreator bool, status model.ProcessStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.ProcessInstance{})
	if asCreator {
		q = q.Where("created_by_id = ?", userID)
	} else {
		q = q.Where("assignee_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err, "processes")
	}
	return count, nil
}

// MaxNumberSequenceInTx locks the year's highest-numbered process row and
// returns its sequence. The fixed-width NNNNNN prefix makes lexicographic
// ordering agree with numeric ordering.
func (r *ProcessRepo) MaxNumberSequenceInTx(ctx context.Context, tx *gorm.DB, year int) (int, error) {
	var last model.ProcessInstance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("number LIKE ?", fmt.Sprintf("%%/%04d", year)).
		Order("number DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, translate(err, "processes")
	}

	seq, convErr := strconv.Atoi(strings.SplitN(last.Number, "/", 2)[0])
	if convErr != nil {
		// A malformed number should never be persisted; fall back to the row
		// count so allocation can still make progress.
		var count int64
		if err := tx.WithContext(ctx).Model(&model.ProcessInstance{}).
			Where("number LIKE ?", fmt.Sprintf("%%/%04d", year)).
			Count(&count).Error; err != nil {
			return 0, translate(err, "processes")
		}
		return int(count), nil
	}
	return seq, nil
}

func (r *ProcessRepo) NumberExistsInTx(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.ProcessInstance{}).
		Where("number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "processes")
	}
	return count > 0, nil
}
