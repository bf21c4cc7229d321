package model

import (
	"time"

	"github.com/google/uuid"
)

// CreateTemplateDTO is the payload for creating a process template.
type CreateTemplateDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateStepDTO is the payload for adding a step to a template. When Ordinal
// is nil the next free ordinal is allocated under lock.
type CreateStepDTO struct {
	Name              string       `json:"name" binding:"required"`
	Description       string       `json:"description"`
	Category          StepCategory `json:"category"`
	Ordinal           *int         `json:"ordinal,omitempty"`
	DeadlineDays      *int         `json:"deadlineDays,omitempty"`
	AllowsAttachments *bool        `json:"allowsAttachments,omitempty"`
	RequiresApproval  bool         `json:"requiresApproval"`
	AuthorizedUserIDs []uuid.UUID  `json:"authorizedUserIds"`
}

// CreateTransitionDTO is the payload for adding an explicit transition
// between two steps of the same template.
type CreateTransitionDTO struct {
	SourceStepID      uuid.UUID `json:"sourceStepId" binding:"required"`
	DestinationStepID uuid.UUID `json:"destinationStepId" binding:"required"`
	Condition         string    `json:"condition"`
	Active            *bool     `json:"active,omitempty"`
}

// CreateProcessDTO is the payload for instantiating a template.
type CreateProcessDTO struct {
	TemplateID  uuid.UUID `json:"templateId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
}

// ExecuteStepDTO is the payload for executing the current step of a process.
type ExecuteStepDTO struct {
	Outcome ExecutionOutcome `json:"outcome" binding:"required"`
	Notes   string           `json:"notes"`
}

// ForwardProcessDTO is the payload for explicitly forwarding a process to a
// reachable step and assignee.
type ForwardProcessDTO struct {
	TargetStepID uuid.UUID `json:"targetStepId" binding:"required"`
	TargetUserID uuid.UUID `json:"targetUserId" binding:"required"`
	Note         string    `json:"note"`
}

// ProcessFilter narrows process listings. Zero values mean "no filter".
type ProcessFilter struct {
	NumberContains string
	TemplateID     *uuid.UUID
	Status         ProcessStatus
	CreatedByID    *uuid.UUID
	AssigneeID     *uuid.UUID
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Offset         *int
	Limit          *int
}

// ProcessDetailDTO bundles a process with its execution history and recent
// audit trail for display.
type ProcessDetailDTO struct {
	Process    *ProcessInstance `json:"process"`
	Executions []StepExecution  `json:"executions"`
	AuditTrail []AuditLogEntry  `json:"auditTrail"`
	CanExecute bool             `json:"canExecute"`
}

// DashboardDTO carries per-user counters and recent activity.
type DashboardDTO struct {
	AwaitingAction int64           `json:"awaitingAction"`
	Created        int64           `json:"created"`
	Completed      int64           `json:"completed"`
	RecentActivity []AuditLogEntry `json:"recentActivity"`
}
