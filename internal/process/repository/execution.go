package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// ExecutionRepo persists step execution records.
type ExecutionRepo struct {
	db *gorm.DB
}

func NewExecutionRepo(db *gorm.DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

func (r *ExecutionRepo) CreateInTx(ctx context.Context, tx *gorm.DB, execution *model.StepExecution) error {
	if err := tx.WithContext(ctx).Create(execution).Error; err != nil {
		return translate(err, "step execution")
	}
	return nil
}

func (r *ExecutionRepo) GetByID(ctx context.Context, executionID uuid.UUID) (*model.StepExecution, error) {
	var execution model.StepExecution
	err := r.db.WithContext(ctx).
		Preload("Step").
		First(&execution, "id = ?", executionID).Error
	if err != nil {
		return nil, translate(err, "step execution "+executionID.String()+" not found")
	}
	return &execution, nil
}

func (r *ExecutionRepo) ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.StepExecution, error) {
	var executions []model.StepExecution
	err := r.db.WithContext(ctx).
		Preload("Step").
		Preload("Executor").
		Preload("Documents").
		Where("process_id = ?", processID).
		Order("started_at DESC").
		Find(&executions).Error
	if err != nil {
		return nil, translate(err, "step executions")
	}
	return executions, nil
}

func (r *ExecutionRepo) ExistsForExecutor(ctx context.Context, processID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.StepExecution{}).
		Where("process_id = ? AND executor_id = ?", processID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "step executions")
	}
	return count > 0, nil
}
