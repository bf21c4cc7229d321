package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// TemplateRepo persists templates, steps and transitions.
type TemplateRepo struct {
	db *gorm.DB
}

func NewTemplateRepo(db *gorm.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

func (r *TemplateRepo) CreateTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error {
	if err := tx.WithContext(ctx).Create(template).Error; err != nil {
		return translate(err, "template")
	}
	return nil
}

func (r *TemplateRepo) SaveTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error {
	if err := tx.WithContext(ctx).Save(template).Error; err != nil {
		return translate(err, "template")
	}
	return nil
}

func (r *TemplateRepo) GetTemplateByID(ctx context.Context, templateID uuid.UUID) (*model.Template, error) {
	var template model.Template
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("ordinal ASC") }).
		First(&template, "id = ?", templateID).Error
	if err != nil {
		return nil, translate(err, "template "+templateID.String()+" not found")
	}
	return &template, nil
}

func (r *TemplateRepo) ListTemplates(ctx context.Context, activeOnly bool) ([]model.Template, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var templates []model.Template
	if err := q.Find(&templates).Error; err != nil {
		return nil, translate(err, "templates")
	}
	return templates, nil
}

func (r *TemplateRepo) GetStepsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]model.Step, error) {
	var steps []model.Step
	err := tx.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("ordinal ASC").
		Find(&steps).Error
	if err != nil {
		return nil, translate(err, "steps")
	}
	return steps, nil
}

func (r *TemplateRepo) GetStepByID(ctx context.Context, stepID uuid.UUID) (*model.Step, error) {
	var step model.Step
	err := r.db.WithContext(ctx).
		Preload("AuthorizedUsers").
		First(&step, "id = ?", stepID).Error
	if err != nil {
		return nil, translate(err, "step "+stepID.String()+" not found")
	}
	return &step, nil
}

func (r *TemplateRepo) GetStepByOrdinalInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (*model.Step, error) {
	var step model.Step
	err := tx.WithContext(ctx).
		Preload("AuthorizedUsers").
		Where("template_id = ? AND ordinal = ?", templateID, ordinal).
		First(&step).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No step at that ordinal is a normal graph boundary, not an error
			// the caller should surface.
			return nil, nil
		}
		return nil, translate(err, "step")
	}
	return &step, nil
}

func (r *TemplateRepo) CreateStepInTx(ctx context.Context, tx *gorm.DB, step *model.Step) error {
	if err := tx.WithContext(ctx).Create(step).Error; err != nil {
		return translate(err, "step")
	}
	return nil
}

// MaxOrdinalForUpdateInTx locks the template's step rows and returns the
// highest ordinal, or zero when the template has no steps yet.
func (r *TemplateRepo) MaxOrdinalForUpdateInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (int, error) {
	var last model.Step
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("template_id = ?", templateID).
		Order("ordinal DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, translate(err, "steps")
	}
	return last.Ordinal, nil
}

func (r *TemplateRepo) OrdinalExistsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Step{}).
		Where("template_id = ? AND ordinal = ?", templateID, ordinal).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "steps")
	}
	return count > 0, nil
}

func (r *TemplateRepo) CreateTransitionInTx(ctx context.Context, tx *gorm.DB, transition *model.Transition) error {
	if err := tx.WithContext(ctx).Create(transition).Error; err != nil {
		return translate(err, "transition")
	}
	return nil
}

func (r *TemplateRepo) ActiveTransitionsFrom(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) ([]model.Transition, error) {
	if tx == nil {
		tx = r.db
	}
	var transitions []model.Transition
	err := tx.WithContext(ctx).
		Preload("DestinationStep").
		Where("source_step_id = ? AND active = ?", stepID, true).
		Order("created_at ASC").
		Find(&transitions).Error
	if err != nil {
		return nil, translate(err, "transitions")
	}
	return transitions, nil
}
