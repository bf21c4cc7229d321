package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

// ProcessService is the lifecycle engine for process instances. Every
// mutating operation runs as a single transaction that locks the process row
// before reading it, so concurrent requests serialize per instance and no
// operation is ever visible half-applied.
type ProcessService struct {
	db        *gorm.DB
	processes ProcessRepository
	templates TemplateRepository
	execs     ExecutionRepository
	allocator *NumberAllocator
	graph     *StepGraph
	authz     *Authorizer
	audit     *AuditWriter
	now       func() time.Time
}

func NewProcessService(
	db *gorm.DB,
	processes ProcessRepository,
	templates TemplateRepository,
	execs ExecutionRepository,
	allocator *NumberAllocator,
	graph *StepGraph,
	authz *Authorizer,
	audit *AuditWriter,
) *ProcessService {
	return &ProcessService{
		db:        db,
		processes: processes,
		templates: templates,
		execs:     execs,
		allocator: allocator,
		graph:     graph,
		authz:     authz,
		audit:     audit,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create instantiates a template: allocates a process number and persists
// the instance with status STARTED and no current step. No audit entry is
// written until Start.
func (s *ProcessService) Create(ctx context.Context, creator *model.User, req *model.CreateProcessDTO) (*model.ProcessInstance, error) {
	if creator == nil {
		return nil, apperr.Authorization("creator is required")
	}
	if req == nil || req.Title == "" {
		return nil, apperr.Validation("process title is required")
	}

	template, err := s.templates.GetTemplateByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !template.Active {
		return nil, apperr.Validation("template %q is not active", template.Name)
	}

	var process *model.ProcessInstance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.allocator.AllocateProcessNumber(ctx, tx, s.now().Year())
		if err != nil {
			return err
		}

		creatorID := creator.ID
		process = &model.ProcessInstance{
			TemplateID:  template.ID,
			Number:      number,
			Title:       req.Title,
			Description: req.Description,
			Status:      model.ProcessStatusStarted,
			CreatedByID: &creatorID,
		}
		return s.processes.CreateInTx(ctx, tx, process)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("process created",
		"process_id", process.ID,
		"number", process.Number,
		"template_id", template.ID,
	)
	return process, nil
}

// Start moves the instance onto the first step of its template. Starting an
// already-started instance is an explicit validation error rather than a
// silent no-op.
func (s *ProcessService) Start(ctx context.Context, processID uuid.UUID, user *model.User, clientIP string) (*model.ProcessInstance, error) {
	var process *model.ProcessInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		process, err = s.processes.GetForUpdateInTx(ctx, tx, processID)
		if err != nil {
			return err
		}
		if process.Status != model.ProcessStatusStarted || process.CurrentStepID != nil {
			return apperr.Validation("process %s already started", process.Number)
		}

		first, err := s.graph.FirstStep(ctx, tx, process.TemplateID)
		if err != nil {
			return err
		}
		if first == nil {
			return apperr.Validation("template has no steps")
		}

		userID := user.ID
		process.CurrentStepID = &first.ID
		process.AssigneeID = &userID
		process.Status = model.ProcessStatusInProgress
		if err := s.processes.SaveInTx(ctx, tx, process); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, process.ID, model.AuditActionStart,
			fmt.Sprintf("Process started at step: %s", first.Name),
			WithUser(user), WithClientIP(clientIP))
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

// ExecuteStep records an execution of the current step and auto-advances the
// instance: to the next sequential step when one exists, otherwise to
// completion. The authorization check precedes any mutation.
func (s *ProcessService) ExecuteStep(ctx context.Context, processID uuid.UUID, executor *model.User, req *model.ExecuteStepDTO, clientIP string) (*model.ProcessInstance, error) {
	if req == nil || !req.Outcome.Valid() {
		return nil, apperr.Validation("execution outcome must be one of APPROVED, REJECTED, PENDING, COMPLETED")
	}

	var process *model.ProcessInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		process, err = s.processes.GetForUpdateInTx(ctx, tx, processID)
		if err != nil {
			return err
		}
		if process.Status.Terminal() {
			return apperr.Validation("process %s is %s and accepts no further execution", process.Number, process.Status)
		}
		if process.CurrentStepID == nil {
			return apperr.Validation("process %s has no active step", process.Number)
		}

		step, err := s.templates.GetStepByID(ctx, *process.CurrentStepID)
		if err != nil {
			return err
		}
		if !s.authz.CanExecute(executor, step) {
			return apperr.Authorization("user %s may not execute step %q", executor.Username, step.Name)
		}

		now := s.now()
		executorID := executor.ID
		execution := &model.StepExecution{
			ProcessID:  process.ID,
			StepID:     step.ID,
			ExecutorID: &executorID,
			StartedAt:  now,
		}
		execution.Conclude(req.Outcome, req.Notes, now)
		if err := s.execs.CreateInTx(ctx, tx, execution); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, process.ID, model.AuditActionStepExecution,
			fmt.Sprintf("Step %q concluded with outcome: %s", step.Name, req.Outcome),
			WithUser(executor), WithExecution(execution.ID), WithClientIP(clientIP)); err != nil {
			return err
		}
		if step.RequiresApproval {
			if err := s.recordApprovalOutcome(ctx, tx, process, step, execution, executor, req.Outcome, clientIP); err != nil {
				return err
			}
		}

		next, err := s.graph.NextSequentialStep(ctx, tx, step)
		if err != nil {
			return err
		}
		if next != nil {
			process.CurrentStepID = &next.ID
			process.AssigneeID = &executorID
			process.Status = model.ProcessStatusInProgress
			if err := s.processes.SaveInTx(ctx, tx, process); err != nil {
				return err
			}
			return s.audit.Record(ctx, tx, process.ID, model.AuditActionForward,
				fmt.Sprintf("Process advanced automatically to: %s", next.Name),
				WithUser(executor), WithClientIP(clientIP))
		}

		// Last step: conclude in the same transaction so the completed
		// execution and the completed process become visible together.
		s.conclude(process, now)
		if err := s.processes.SaveInTx(ctx, tx, process); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, process.ID, model.AuditActionCompletion,
			fmt.Sprintf("Process %s completed", process.Number),
			WithUser(executor), WithClientIP(clientIP))
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

// recordApprovalOutcome writes the approval or rejection entry for steps
// that require approval.
func (s *ProcessService) recordApprovalOutcome(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance, step *model.Step, execution *model.StepExecution, executor *model.User, outcome model.ExecutionOutcome, clientIP string) error {
	var action model.AuditAction
	switch outcome {
	case model.OutcomeApproved:
		action = model.AuditActionApproval
	case model.OutcomeRejected:
		action = model.AuditActionRejection
	default:
		return nil
	}
	return s.audit.Record(ctx, tx, process.ID, action,
		fmt.Sprintf("Step %q %s by %s", step.Name, outcome, executor.Username),
		WithUser(executor), WithExecution(execution.ID), WithClientIP(clientIP))
}

// Forward explicitly moves the instance to a reachable step and assigns it
// to a target user. Reachability: a step named by an active transition from
// the current step, or, when the current step has no transitions, the next
// sequential step.
func (s *ProcessService) Forward(ctx context.Context, processID uuid.UUID, actor *model.User, req *model.ForwardProcessDTO, clientIP string) (*model.ProcessInstance, error) {
	if req == nil || req.TargetStepID == uuid.Nil || req.TargetUserID == uuid.Nil {
		return nil, apperr.Validation("forward requires a target step and target user")
	}

	var process *model.ProcessInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		process, err = s.processes.GetForUpdateInTx(ctx, tx, processID)
		if err != nil {
			return err
		}
		if process.Status.Terminal() {
			return apperr.Validation("process %s is %s and cannot be forwarded", process.Number, process.Status)
		}
		if process.CurrentStepID == nil {
			return apperr.Validation("process %s has no active step", process.Number)
		}

		current, err := s.templates.GetStepByID(ctx, *process.CurrentStepID)
		if err != nil {
			return err
		}
		if !s.authz.CanExecute(actor, current) {
			return apperr.Authorization("user %s may not forward from step %q", actor.Username, current.Name)
		}

		target, condition, err := s.resolveTarget(ctx, tx, current, req.TargetStepID)
		if err != nil {
			return err
		}

		targetUserID := req.TargetUserID
		process.CurrentStepID = &target.ID
		process.AssigneeID = &targetUserID
		process.Status = model.ProcessStatusInProgress
		if err := s.processes.SaveInTx(ctx, tx, process); err != nil {
			return err
		}

		description := fmt.Sprintf("Process forwarded to: %s", target.Name)
		if condition != "" {
			description += fmt.Sprintf(" (%s)", condition)
		}
		if req.Note != "" {
			description += ". Note: " + req.Note
		}
		return s.audit.Record(ctx, tx, process.ID, model.AuditActionForward,
			description, WithUser(actor), WithClientIP(clientIP))
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

// resolveTarget validates reachability of targetStepID from current and
// returns the target step plus the matched transition condition, if any.
func (s *ProcessService) resolveTarget(ctx context.Context, tx *gorm.DB, current *model.Step, targetStepID uuid.UUID) (*model.Step, string, error) {
	transitions, err := s.graph.PossibleTransitions(ctx, tx, current.ID)
	if err != nil {
		return nil, "", err
	}

	if len(transitions) > 0 {
		for _, t := range transitions {
			if t.DestinationStepID == targetStepID {
				target, err := s.templates.GetStepByID(ctx, targetStepID)
				if err != nil {
					return nil, "", err
				}
				return target, t.Condition, nil
			}
		}
		return nil, "", apperr.Validation("step is not reachable from %q via any active transition", current.Name)
	}

	next, err := s.graph.NextSequentialStep(ctx, tx, current)
	if err != nil {
		return nil, "", err
	}
	if next == nil || next.ID != targetStepID {
		return nil, "", apperr.Validation("step is not the next sequential step after %q", current.Name)
	}
	return next, "", nil
}

// Cancel terminates the instance from any non-terminal state. Cancellation
// is open to administrators, managers, the creator and the current assignee.
func (s *ProcessService) Cancel(ctx context.Context, processID uuid.UUID, actor *model.User, clientIP string) (*model.ProcessInstance, error) {
	var process *model.ProcessInstance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		process, err = s.processes.GetForUpdateInTx(ctx, tx, processID)
		if err != nil {
			return err
		}
		if process.Status.Terminal() {
			return apperr.Validation("process %s is already %s", process.Number, process.Status)
		}
		if !s.canCancel(actor, process) {
			return apperr.Authorization("user %s may not cancel process %s", actor.Username, process.Number)
		}

		process.Status = model.ProcessStatusCancelled
		process.CurrentStepID = nil
		process.AssigneeID = nil
		if err := s.processes.SaveInTx(ctx, tx, process); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, process.ID, model.AuditActionCancellation,
			fmt.Sprintf("Process %s cancelled", process.Number),
			WithUser(actor), WithClientIP(clientIP))
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

func (s *ProcessService) canCancel(actor *model.User, process *model.ProcessInstance) bool {
	if actor == nil || !actor.Active {
		return false
	}
	switch actor.Role {
	case model.RoleAdmin, model.RoleManager:
		return true
	case model.RoleOperator, model.RoleViewer:
		if process.CreatedByID != nil && *process.CreatedByID == actor.ID {
			return true
		}
		return process.AssigneeID != nil && *process.AssigneeID == actor.ID
	default:
		return false
	}
}

// conclude marks the process completed and clears the active step and
// assignee, upholding the terminal-state invariant.
func (s *ProcessService) conclude(process *model.ProcessInstance, at time.Time) {
	process.Status = model.ProcessStatusCompleted
	process.CompletedAt = &at
	process.CurrentStepID = nil
	process.AssigneeID = nil
}

// Detail returns the process with its execution history, recent audit trail
// and whether the viewer may execute the current step.
func (s *ProcessService) Detail(ctx context.Context, processID uuid.UUID, viewer *model.User) (*model.ProcessDetailDTO, error) {
	process, err := s.processes.GetByID(ctx, processID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.authz.CanView(ctx, viewer, process)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Authorization("user %s may not view process %s", viewer.Username, process.Number)
	}

	executions, err := s.execs.ListByProcess(ctx, process.ID)
	if err != nil {
		return nil, err
	}
	trail, err := s.audit.Trail(ctx, process.ID, 20)
	if err != nil {
		return nil, err
	}

	canExecute := false
	if process.CurrentStepID != nil {
		step, err := s.templates.GetStepByID(ctx, *process.CurrentStepID)
		if err != nil {
			return nil, err
		}
		canExecute = s.authz.CanExecute(viewer, step)
	}

	return &model.ProcessDetailDTO{
		Process:    process,
		Executions: executions,
		AuditTrail: trail,
		CanExecute: canExecute,
	}, nil
}

// ListVisible returns the processes the user is allowed to see, newest
// first. The result is a fresh query each call.
func (s *ProcessService) ListVisible(ctx context.Context, user *model.User, filter model.ProcessFilter) ([]model.ProcessInstance, error) {
	if user == nil {
		return nil, apperr.Authorization("user is required")
	}
	var visibleTo *model.User
	switch user.Role {
	case model.RoleAdmin, model.RoleManager:
		visibleTo = nil
	default:
		visibleTo = user
	}
	return s.processes.List(ctx, filter, visibleTo)
}
