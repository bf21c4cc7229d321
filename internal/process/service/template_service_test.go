package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

type templateServiceFixture struct {
	sqlMock   sqlmock.Sqlmock
	templates *MockTemplateRepository
	users     *MockUserRepository
	svc       *TemplateService
}

func newTemplateServiceFixture(t *testing.T) *templateServiceFixture {
	t.Helper()

	db, sqlMock := setupTestDB(t)
	f := &templateServiceFixture{
		sqlMock:   sqlMock,
		templates: new(MockTemplateRepository),
		users:     new(MockUserRepository),
	}
	allocator := NewNumberAllocator(new(MockProcessRepository), f.templates)
	graph := NewStepGraph(f.templates)
	authz := NewAuthorizer(new(MockExecutionRepository))
	f.svc = NewTemplateService(db, f.templates, f.users, allocator, graph, authz)
	return f
}

func TestTemplateService_CreateTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("manager creates an active template", func(t *testing.T) {
		f := newTemplateServiceFixture(t)
		manager := activeUser(model.RoleManager)

		f.templates.On("CreateTemplateInTx", ctx, mock.Anything, mock.Anything).Return(nil)
		expectTx(f.sqlMock)

		template, err := f.svc.CreateTemplate(ctx, manager, &model.CreateTemplateDTO{Name: "Procurement"})
		assert.NoError(t, err)
		assert.True(t, template.Active)
		assert.Equal(t, manager.ID, *template.CreatedByID)
	})

	t.Run("operator may not create templates", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		_, err := f.svc.CreateTemplate(ctx, activeUser(model.RoleOperator), &model.CreateTemplateDTO{Name: "x"})
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})

	t.Run("name is required", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		_, err := f.svc.CreateTemplate(ctx, activeUser(model.RoleAdmin), &model.CreateTemplateDTO{})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestTemplateService_AddStep(t *testing.T) {
	ctx := context.Background()
	admin := activeUser(model.RoleAdmin)
	templateID := uuid.New()

	template := &model.Template{BaseModel: model.BaseModel{ID: templateID}, Name: "Procurement", Active: true}

	t.Run("allocates the next ordinal when none is given", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		operator := activeUser(model.RoleOperator)
		f.templates.On("GetTemplateByID", ctx, templateID).Return(template, nil)
		f.users.On("GetByIDs", ctx, []uuid.UUID{operator.ID}).Return([]model.User{*operator}, nil)
		f.templates.On("MaxOrdinalForUpdateInTx", ctx, mock.Anything, templateID).Return(2, nil)
		f.templates.On("OrdinalExistsInTx", ctx, mock.Anything, templateID, 3).Return(false, nil)
		f.templates.On("CreateStepInTx", ctx, mock.Anything, mock.Anything).Return(nil)

		expectTx(f.sqlMock)

		step, err := f.svc.AddStep(ctx, admin, templateID, &model.CreateStepDTO{
			Name:              "Review",
			AuthorizedUserIDs: []uuid.UUID{operator.ID},
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, step.Ordinal)
		assert.Equal(t, model.StepCategoryExecution, step.Category)
		assert.Equal(t, defaultDeadlineDays, step.DeadlineDays)
		assert.True(t, step.AllowsAttachments)
		assert.Len(t, step.AuthorizedUsers, 1)
	})

	t.Run("explicit ordinal that is taken is a conflict", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		ordinal := 2
		f.templates.On("GetTemplateByID", ctx, templateID).Return(template, nil)
		f.users.On("GetByIDs", ctx, []uuid.UUID(nil)).Return([]model.User{}, nil)
		f.templates.On("OrdinalExistsInTx", ctx, mock.Anything, templateID, 2).Return(true, nil)

		expectTxRollback(f.sqlMock)

		_, err := f.svc.AddStep(ctx, admin, templateID, &model.CreateStepDTO{Name: "Dup", Ordinal: &ordinal})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		f.templates.AssertNotCalled(t, "CreateStepInTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown authorized user", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		ghost := uuid.New()
		f.templates.On("GetTemplateByID", ctx, templateID).Return(template, nil)
		f.users.On("GetByIDs", ctx, []uuid.UUID{ghost}).Return([]model.User{}, nil)

		_, err := f.svc.AddStep(ctx, admin, templateID, &model.CreateStepDTO{
			Name:              "Review",
			AuthorizedUserIDs: []uuid.UUID{ghost},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects an unknown category", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		_, err := f.svc.AddStep(ctx, admin, templateID, &model.CreateStepDTO{Name: "x", Category: "GUESSWORK"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects a non-positive deadline", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		zero := 0
		f.templates.On("GetTemplateByID", ctx, templateID).Return(template, nil)
		f.users.On("GetByIDs", ctx, []uuid.UUID(nil)).Return([]model.User{}, nil)

		_, err := f.svc.AddStep(ctx, admin, templateID, &model.CreateStepDTO{Name: "x", DeadlineDays: &zero})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestTemplateService_AddTransition(t *testing.T) {
	ctx := context.Background()
	admin := activeUser(model.RoleAdmin)

	t.Run("creates an edge between steps of one template", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		templateID := uuid.New()
		source := &model.Step{BaseModel: model.BaseModel{ID: uuid.New()}, TemplateID: templateID, Ordinal: 2}
		destination := &model.Step{BaseModel: model.BaseModel{ID: uuid.New()}, TemplateID: templateID, Ordinal: 1}

		f.templates.On("GetStepByID", ctx, source.ID).Return(source, nil)
		f.templates.On("GetStepByID", ctx, destination.ID).Return(destination, nil)
		f.templates.On("CreateTransitionInTx", ctx, mock.Anything, mock.Anything).Return(nil)

		expectTx(f.sqlMock)

		transition, err := f.svc.AddTransition(ctx, admin, &model.CreateTransitionDTO{
			SourceStepID:      source.ID,
			DestinationStepID: destination.ID,
			Condition:         "rejected",
		})
		assert.NoError(t, err)
		assert.True(t, transition.Active)
		assert.Equal(t, "rejected", transition.Condition)
	})

	t.Run("rejects a self-loop", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		stepID := uuid.New()
		_, err := f.svc.AddTransition(ctx, admin, &model.CreateTransitionDTO{
			SourceStepID:      stepID,
			DestinationStepID: stepID,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rejects steps of different templates", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		source := &model.Step{BaseModel: model.BaseModel{ID: uuid.New()}, TemplateID: uuid.New()}
		destination := &model.Step{BaseModel: model.BaseModel{ID: uuid.New()}, TemplateID: uuid.New()}

		f.templates.On("GetStepByID", ctx, source.ID).Return(source, nil)
		f.templates.On("GetStepByID", ctx, destination.ID).Return(destination, nil)

		_, err := f.svc.AddTransition(ctx, admin, &model.CreateTransitionDTO{
			SourceStepID:      source.ID,
			DestinationStepID: destination.ID,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestTemplateService_ListTemplates(t *testing.T) {
	ctx := context.Background()

	t.Run("operators only see active templates", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		f.templates.On("ListTemplates", ctx, true).Return([]model.Template{}, nil)

		_, err := f.svc.ListTemplates(ctx, activeUser(model.RoleOperator))
		assert.NoError(t, err)
		f.templates.AssertExpectations(t)
	})

	t.Run("managers see retired templates too", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		f.templates.On("ListTemplates", ctx, false).Return([]model.Template{}, nil)

		_, err := f.svc.ListTemplates(ctx, activeUser(model.RoleManager))
		assert.NoError(t, err)
		f.templates.AssertExpectations(t)
	})
}

func TestTemplateService_Deactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("retires a template without deleting it", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		template := &model.Template{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "Old", Active: true}
		f.templates.On("GetTemplateByID", ctx, template.ID).Return(template, nil)
		f.templates.On("SaveTemplateInTx", ctx, mock.Anything, template).Return(nil)

		expectTx(f.sqlMock)

		updated, err := f.svc.Deactivate(ctx, activeUser(model.RoleManager), template.ID)
		assert.NoError(t, err)
		assert.False(t, updated.Active)
	})

	t.Run("viewer may not deactivate", func(t *testing.T) {
		f := newTemplateServiceFixture(t)

		_, err := f.svc.Deactivate(ctx, activeUser(model.RoleViewer), uuid.New())
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})
}
