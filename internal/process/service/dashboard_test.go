package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
)

func TestProcessService_Dashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates counters and recent activity", func(t *testing.T) {
		f := newProcessServiceFixture(t)
		user := activeUser(model.RoleOperator)

		f.processes.On("CountByStatus", ctx, user.ID, false, model.ProcessStatusInProgress).Return(int64(3), nil)
		f.processes.On("CountByStatus", ctx, user.ID, true, model.ProcessStatus("")).Return(int64(7), nil)
		f.processes.On("CountByStatus", ctx, user.ID, true, model.ProcessStatusCompleted).Return(int64(2), nil)
		f.audits.On("ListRecentForUser", ctx, user.ID, 10).Return([]model.AuditLogEntry{
			{Action: model.AuditActionForward},
		}, nil)

		dashboard, err := f.svc.Dashboard(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), dashboard.AwaitingAction)
		assert.Equal(t, int64(7), dashboard.Created)
		assert.Equal(t, int64(2), dashboard.Completed)
		assert.Len(t, dashboard.RecentActivity, 1)
	})

	t.Run("requires a user", func(t *testing.T) {
		f := newProcessServiceFixture(t)

		_, err := f.svc.Dashboard(ctx, nil)
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
	})
}
