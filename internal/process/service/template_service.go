package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

const defaultDeadlineDays = 5

// TemplateService manages template, step and transition definitions.
type TemplateService struct {
	db        *gorm.DB
	templates TemplateRepository
	users     UserRepository
	allocator *NumberAllocator
	graph     *StepGraph
	authz     *Authorizer
}

func NewTemplateService(db *gorm.DB, templates TemplateRepository, users UserRepository, allocator *NumberAllocator, graph *StepGraph, authz *Authorizer) *TemplateService {
	return &TemplateService{
		db:        db,
		templates: templates,
		users:     users,
		allocator: allocator,
		graph:     graph,
		authz:     authz,
	}
}

// CreateTemplate persists a new template owned by the acting user.
func (s *TemplateService) CreateTemplate(ctx context.Context, actor *model.User, req *model.CreateTemplateDTO) (*model.Template, error) {
	if !s.authz.CanManageTemplates(actor) {
		return nil, apperr.Authorization("user may not create templates")
	}
	if req == nil || req.Name == "" {
		return nil, apperr.Validation("template name is required")
	}

	actorID := actor.ID
	template := &model.Template{
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
		CreatedByID: &actorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.templates.CreateTemplateInTx(ctx, tx, template)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("template created", "template_id", template.ID, "name", template.Name)
	return template, nil
}

// AddStep appends a step to the template. When the request carries no
// ordinal the next free one is allocated under an exclusive lock on the
// template's step set.
func (s *TemplateService) AddStep(ctx context.Context, actor *model.User, templateID uuid.UUID, req *model.CreateStepDTO) (*model.Step, error) {
	if !s.authz.CanManageTemplates(actor) {
		return nil, apperr.Authorization("user may not modify templates")
	}
	if req == nil || req.Name == "" {
		return nil, apperr.Validation("step name is required")
	}

	category := req.Category
	if category == "" {
		category = model.StepCategoryExecution
	}
	if !category.Valid() {
		return nil, apperr.Validation("unknown step category %q", req.Category)
	}
	if req.Ordinal != nil && *req.Ordinal < 1 {
		return nil, apperr.Validation("step ordinal must be positive")
	}

	if _, err := s.templates.GetTemplateByID(ctx, templateID); err != nil {
		return nil, err
	}

	authorized, err := s.users.GetByIDs(ctx, req.AuthorizedUserIDs)
	if err != nil {
		return nil, err
	}
	if len(authorized) != len(req.AuthorizedUserIDs) {
		return nil, apperr.Validation("one or more authorized users do not exist")
	}

	deadline := defaultDeadlineDays
	if req.DeadlineDays != nil {
		if *req.DeadlineDays < 1 {
			return nil, apperr.Validation("deadline must be at least one day")
		}
		deadline = *req.DeadlineDays
	}
	allowsAttachments := true
	if req.AllowsAttachments != nil {
		allowsAttachments = *req.AllowsAttachments
	}

	var step *model.Step
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ordinal := 0
		if req.Ordinal != nil {
			ordinal = *req.Ordinal
			exists, err := s.templates.OrdinalExistsInTx(ctx, tx, templateID, ordinal)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Conflict("ordinal %d is already taken in this template", ordinal)
			}
		} else {
			var err error
			ordinal, err = s.allocator.AllocateStepOrdinal(ctx, tx, templateID)
			if err != nil {
				return err
			}
		}

		step = &model.Step{
			TemplateID:        templateID,
			Name:              req.Name,
			Description:       req.Description,
			Category:          category,
			Ordinal:           ordinal,
			DeadlineDays:      deadline,
			AllowsAttachments: allowsAttachments,
			RequiresApproval:  req.RequiresApproval,
			AuthorizedUsers:   authorized,
		}
		return s.templates.CreateStepInTx(ctx, tx, step)
	})
	if err != nil {
		return nil, err
	}
	return step, nil
}

// AddTransition creates an explicit edge between two steps, which must
// belong to the same template.
func (s *TemplateService) AddTransition(ctx context.Context, actor *model.User, req *model.CreateTransitionDTO) (*model.Transition, error) {
	if !s.authz.CanManageTemplates(actor) {
		return nil, apperr.Authorization("user may not modify templates")
	}
	if req == nil {
		return nil, apperr.Validation("transition payload is required")
	}
	if req.SourceStepID == req.DestinationStepID {
		return nil, apperr.Validation("a transition cannot point a step at itself")
	}

	source, err := s.templates.GetStepByID(ctx, req.SourceStepID)
	if err != nil {
		return nil, err
	}
	destination, err := s.templates.GetStepByID(ctx, req.DestinationStepID)
	if err != nil {
		return nil, err
	}
	if source.TemplateID != destination.TemplateID {
		return nil, apperr.Validation("source and destination steps must belong to the same template")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	transition := &model.Transition{
		SourceStepID:      source.ID,
		DestinationStepID: destination.ID,
		Condition:         req.Condition,
		Active:            active,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.templates.CreateTransitionInTx(ctx, tx, transition)
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}

// GetTemplate returns the template with its steps ordered by ordinal.
func (s *TemplateService) GetTemplate(ctx context.Context, templateID uuid.UUID) (*model.Template, error) {
	return s.templates.GetTemplateByID(ctx, templateID)
}

// ListTemplates returns templates; non-managing users only see active ones.
func (s *TemplateService) ListTemplates(ctx context.Context, viewer *model.User) ([]model.Template, error) {
	return s.templates.ListTemplates(ctx, !s.authz.CanManageTemplates(viewer))
}

// Validate checks the template's step sequence for instantiation readiness.
func (s *TemplateService) Validate(ctx context.Context, templateID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.graph.ValidateTemplate(ctx, tx, templateID)
	})
}

// Deactivate retires the template from instantiation. Existing instances
// keep referencing it; templates are never hard-deleted.
func (s *TemplateService) Deactivate(ctx context.Context, actor *model.User, templateID uuid.UUID) (*model.Template, error) {
	if !s.authz.CanManageTemplates(actor) {
		return nil, apperr.Authorization("user may not modify templates")
	}
	template, err := s.templates.GetTemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	template.Active = false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.templates.SaveTemplateInTx(ctx, tx, template)
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}
