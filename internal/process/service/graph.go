package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

// StepGraph answers ordering and reachability questions about a template's
// steps. A template with no explicit transitions advances purely by ordinal;
// explicit transitions take precedence and allow branching and loops.
type StepGraph struct {
	templates TemplateRepository
}

func NewStepGraph(templates TemplateRepository) *StepGraph {
	return &StepGraph{templates: templates}
}

// FirstStep returns the step with ordinal 1, or nil when the template has no
// steps.
func (g *StepGraph) FirstStep(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*model.Step, error) {
	return g.templates.GetStepByOrdinalInTx(ctx, tx, templateID, 1)
}

// NextSequentialStep returns the step with the following ordinal in the same
// template, or nil when step is the last one.
func (g *StepGraph) NextSequentialStep(ctx context.Context, tx *gorm.DB, step *model.Step) (*model.Step, error) {
	if step == nil {
		return nil, apperr.Validation("step cannot be nil")
	}
	return g.templates.GetStepByOrdinalInTx(ctx, tx, step.TemplateID, step.Ordinal+1)
}

// PossibleTransitions returns the active outgoing transitions of a step in
// creation order.
func (g *StepGraph) PossibleTransitions(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) ([]model.Transition, error) {
	return g.templates.ActiveTransitionsFrom(ctx, tx, stepID)
}

// ValidateTemplate checks that the template is usable for instantiation: at
// least one step, and ordinals forming exactly {1..n}.
func (g *StepGraph) ValidateTemplate(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) error {
	steps, err := g.templates.GetStepsInTx(ctx, tx, templateID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return apperr.Validation("template has no steps")
	}
	for i, step := range steps {
		if step.Ordinal != i+1 {
			return apperr.Validation(
				"template steps must form a contiguous sequence starting at 1; found ordinal %d at position %d",
				step.Ordinal, i+1,
			)
		}
	}
	return nil
}
