package service

import (
	"context"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

// Dashboard returns the user's work counters and recent activity: processes
// awaiting their action, processes they created, completions among those,
// and the latest audit entries on processes they own or hold.
func (s *ProcessService) Dashboard(ctx context.Context, user *model.User) (*model.DashboardDTO, error) {
	if user == nil {
		return nil, apperr.Authorization("user is required")
	}

	awaiting, err := s.processes.CountByStatus(ctx, user.ID, false, model.ProcessStatusInProgress)
	if err != nil {
		return nil, err
	}
	created, err := s.processes.CountByStatus(ctx, user.ID, true, "")
	if err != nil {
		return nil, err
	}
	completed, err := s.processes.CountByStatus(ctx, user.ID, true, model.ProcessStatusCompleted)
	if err != nil {
		return nil, err
	}
	recent, err := s.audit.audits.ListRecentForUser(ctx, user.ID, 10)
	if err != nil {
		return nil, err
	}

	return &model.DashboardDTO{
		AwaitingAction: awaiting,
		Created:        created,
		Completed:      completed,
		RecentActivity: recent,
	}, nil
}
