package service

import (
	"context"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// Authorizer decides who may act on or view a process. Decisions are a pure
// function of the user's role and their relationship to the entity; the only
// lookup is the has-executed-a-step check, answered by the execution
// repository.
type Authorizer struct {
	executions ExecutionRepository
}

func NewAuthorizer(executions ExecutionRepository) *Authorizer {
	return &Authorizer{executions: executions}
}

// CanExecute reports whether the user may execute the step: administrators
// always can, everyone else must be in the step's authorized-user set. The
// step must have its AuthorizedUsers association loaded.
func (a *Authorizer) CanExecute(user *model.User, step *model.Step) bool {
	if user == nil || step == nil || !user.Active {
		return false
	}
	switch user.Role {
	case model.RoleAdmin:
		return true
	case model.RoleManager, model.RoleOperator, model.RoleViewer:
		for _, allowed := range step.AuthorizedUsers {
			if allowed.ID == user.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// CanView reports whether the user may see the process: administrative and
// managerial roles see everything; otherwise the user must be the creator,
// the current assignee, or have executed at least one step of it.
func (a *Authorizer) CanView(ctx context.Context, user *model.User, process *model.ProcessInstance) (bool, error) {
	if user == nil || process == nil || !user.Active {
		return false, nil
	}
	switch user.Role {
	case model.RoleAdmin, model.RoleManager:
		return true, nil
	case model.RoleOperator, model.RoleViewer:
		if process.CreatedByID != nil && *process.CreatedByID == user.ID {
			return true, nil
		}
		if process.AssigneeID != nil && *process.AssigneeID == user.ID {
			return true, nil
		}
		return a.executions.ExistsForExecutor(ctx, process.ID, user.ID)
	default:
		return false, nil
	}
}

// CanManageTemplates reports whether the user may create or modify template
// definitions.
func (a *Authorizer) CanManageTemplates(user *model.User) bool {
	if user == nil || !user.Active {
		return false
	}
	switch user.Role {
	case model.RoleAdmin, model.RoleManager:
		return true
	case model.RoleOperator, model.RoleViewer:
		return false
	default:
		return false
	}
}
