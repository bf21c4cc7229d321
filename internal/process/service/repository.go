package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// TemplateRepository is the persistence surface for templates, steps and
// transitions. Methods suffixed InTx run against the caller's transaction.
type TemplateRepository interface {
	CreateTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error
	SaveTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error
	GetTemplateByID(ctx context.Context, templateID uuid.UUID) (*model.Template, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]model.Template, error)

	// GetStepsInTx returns the template's steps ordered by ordinal.
	GetStepsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]model.Step, error)
	GetStepByID(ctx context.Context, stepID uuid.UUID) (*model.Step, error)
	GetStepByOrdinalInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (*model.Step, error)
	CreateStepInTx(ctx context.Context, tx *gorm.DB, step *model.Step) error

	// MaxOrdinalForUpdateInTx reads the highest ordinal in the template while
	// holding an exclusive lock on the template's step rows.
	MaxOrdinalForUpdateInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (int, error)
	OrdinalExistsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (bool, error)

	CreateTransitionInTx(ctx context.Context, tx *gorm.DB, transition *model.Transition) error
	// ActiveTransitionsFrom returns the active transitions leaving a step,
	// ordered by creation time.
	ActiveTransitionsFrom(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) ([]model.Transition, error)
}

// ProcessRepository is the persistence surface for process instances.
type ProcessRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error
	SaveInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error
	GetByID(ctx context.Context, processID uuid.UUID) (*model.ProcessInstance, error)

	// GetForUpdateInTx loads the process row under an exclusive lock so the
	// enclosing read-validate-write sequence observes a consistent snapshot.
	GetForUpdateInTx(ctx context.Context, tx *gorm.DB, processID uuid.UUID) (*model.ProcessInstance, error)

	List(ctx context.Context, filter model.ProcessFilter, visibleTo *model.User) ([]model.ProcessInstance, error)
	CountByStatus(ctx context.Context, userID uuid.UUID, asCreator bool, status model.ProcessStatus) (int64, error)

	// MaxNumberSequenceInTx reads the highest issued sequence for a year
	// while holding an exclusive lock on the year's partition.
	MaxNumberSequenceInTx(ctx context.Context, tx *gorm.DB, year int) (int, error)
	NumberExistsInTx(ctx context.Context, tx *gorm.DB, number string) (bool, error)
}

// ExecutionRepository is the persistence surface for step execution records.
type ExecutionRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, execution *model.StepExecution) error
	GetByID(ctx context.Context, executionID uuid.UUID) (*model.StepExecution, error)
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.StepExecution, error)
	// ExistsForExecutor reports whether the user has at least one execution
	// record against the process.
	ExistsForExecutor(ctx context.Context, processID, userID uuid.UUID) (bool, error)
}

// AuditRepository is the persistence surface for the audit log. It exposes
// creation and reads only; the absence of update/delete methods is what
// keeps the log append-only across storage backends.
type AuditRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, entry *model.AuditLogEntry) error
	ListByProcess(ctx context.Context, processID uuid.UUID, limit int) ([]model.AuditLogEntry, error)
	ListRecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditLogEntry, error)
}

// DocumentRepository is the persistence surface for attached documents.
type DocumentRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, document *model.Document) error
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]model.Document, error)
}

// UserRepository resolves user records for authorization decisions.
type UserRepository interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetByIDs(ctx context.Context, userIDs []uuid.UUID) ([]model.User, error)
}
