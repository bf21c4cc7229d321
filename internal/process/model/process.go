package model

import (
	"time"

	"github.com/google/uuid"
)

// ProcessStatus is the lifecycle state of a process instance.
type ProcessStatus string

const (
	ProcessStatusStarted    ProcessStatus = "STARTED"
	ProcessStatusInProgress ProcessStatus = "IN_PROGRESS"
	ProcessStatusAwaiting   ProcessStatus = "AWAITING"
	ProcessStatusCompleted  ProcessStatus = "COMPLETED"
	ProcessStatusCancelled  ProcessStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s ProcessStatus) Terminal() bool {
	return s == ProcessStatusCompleted || s == ProcessStatusCancelled
}

// ExecutionOutcome is the result recorded for a step execution.
type ExecutionOutcome string

const (
	OutcomeApproved  ExecutionOutcome = "APPROVED"
	OutcomeRejected  ExecutionOutcome = "REJECTED"
	OutcomePending   ExecutionOutcome = "PENDING"
	OutcomeCompleted ExecutionOutcome = "COMPLETED"
)

// Valid reports whether o is one of the known execution outcomes.
func (o ExecutionOutcome) Valid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomePending, OutcomeCompleted:
		return true
	}
	return false
}

// ProcessInstance is a running instantiation of a template. CurrentStepID is
// nil exactly when the instance has not been started or its status is
// terminal.
type ProcessInstance struct {
	BaseModel
	TemplateID    uuid.UUID     `gorm:"type:uuid;column:template_id;not null" json:"templateId"`
	Number        string        `gorm:"type:varchar(50);column:number;not null;uniqueIndex" json:"number"`
	Title         string        `gorm:"type:varchar(200);column:title;not null" json:"title"`
	Description   string        `gorm:"type:text;column:description" json:"description"`
	Status        ProcessStatus `gorm:"type:varchar(20);column:status;not null" json:"status"`
	CurrentStepID *uuid.UUID    `gorm:"type:uuid;column:current_step_id" json:"currentStepId,omitempty"`
	AssigneeID    *uuid.UUID    `gorm:"type:uuid;column:assignee_id" json:"assigneeId,omitempty"`
	CreatedByID   *uuid.UUID    `gorm:"type:uuid;column:created_by_id" json:"createdById,omitempty"`
	CompletedAt   *time.Time    `gorm:"type:timestamptz;column:completed_at" json:"completedAt,omitempty"`

	// Relationships
	Template    *Template `gorm:"foreignKey:TemplateID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
	CurrentStep *Step     `gorm:"foreignKey:CurrentStepID;references:ID" json:"currentStep,omitempty"`
	Assignee    *User     `gorm:"foreignKey:AssigneeID;references:ID" json:"assignee,omitempty"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID;references:ID" json:"createdBy,omitempty"`
}

func (p *ProcessInstance) TableName() string {
	return "process_instances"
}

// StepExecution records one attempt to execute a step for a process
// instance. Once concluded it is immutable except for attached documents.
type StepExecution struct {
	BaseModel
	ProcessID   uuid.UUID        `gorm:"type:uuid;column:process_id;not null;index" json:"processId"`
	StepID      uuid.UUID        `gorm:"type:uuid;column:step_id;not null" json:"stepId"`
	ExecutorID  *uuid.UUID       `gorm:"type:uuid;column:executor_id" json:"executorId,omitempty"`
	Outcome     ExecutionOutcome `gorm:"type:varchar(20);column:outcome;not null" json:"outcome"`
	Notes       string           `gorm:"type:text;column:notes" json:"notes"`
	StartedAt   time.Time        `gorm:"type:timestamptz;column:started_at;not null" json:"startedAt"`
	ConcludedAt *time.Time       `gorm:"type:timestamptz;column:concluded_at" json:"concludedAt,omitempty"`
	Duration    *time.Duration   `gorm:"column:duration_ns" json:"duration,omitempty"`

	// Relationships
	Process   *ProcessInstance `gorm:"foreignKey:ProcessID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Step      *Step            `gorm:"foreignKey:StepID;references:ID;constraint:OnDelete:RESTRICT" json:"step,omitempty"`
	Executor  *User            `gorm:"foreignKey:ExecutorID;references:ID" json:"executor,omitempty"`
	Documents []Document       `gorm:"foreignKey:ExecutionID;references:ID" json:"documents,omitempty"`
}

func (e *StepExecution) TableName() string {
	return "step_executions"
}

// Conclude stamps the execution with its outcome and derives the duration.
func (e *StepExecution) Conclude(outcome ExecutionOutcome, notes string, at time.Time) {
	e.Outcome = outcome
	e.Notes = notes
	e.ConcludedAt = &at
	d := at.Sub(e.StartedAt)
	e.Duration = &d
}
