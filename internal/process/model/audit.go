package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the fixed set of auditable action kinds.
type AuditAction string

const (
	AuditActionStart          AuditAction = "START"
	AuditActionStepExecution  AuditAction = "STEP_EXECUTION"
	AuditActionForward        AuditAction = "FORWARD"
	AuditActionDocumentAttach AuditAction = "DOCUMENT_ATTACH"
	AuditActionApproval       AuditAction = "APPROVAL"
	AuditActionRejection      AuditAction = "REJECTION"
	AuditActionCancellation   AuditAction = "CANCELLATION"
	AuditActionCompletion     AuditAction = "COMPLETION"
)

// AuditLogEntry is an append-only record of a state-changing action on a
// process. Entries are never updated or deleted; the audit repository
// deliberately exposes no mutators.
type AuditLogEntry struct {
	ID          uuid.UUID   `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	ProcessID   uuid.UUID   `gorm:"type:uuid;column:process_id;not null;index" json:"processId"`
	ExecutionID *uuid.UUID  `gorm:"type:uuid;column:execution_id" json:"executionId,omitempty"`
	UserID      *uuid.UUID  `gorm:"type:uuid;column:user_id" json:"userId,omitempty"`
	Action      AuditAction `gorm:"type:varchar(30);column:action;not null" json:"action"`
	Description string      `gorm:"type:text;column:description;not null" json:"description"`
	RecordedAt  time.Time   `gorm:"type:timestamptz;column:recorded_at;not null" json:"recordedAt"`
	ClientIP    string      `gorm:"type:varchar(45);column:client_ip" json:"clientIp,omitempty"`

	// Relationships
	Process   *ProcessInstance `gorm:"foreignKey:ProcessID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Execution *StepExecution   `gorm:"foreignKey:ExecutionID;references:ID" json:"-"`
	User      *User            `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (a *AuditLogEntry) TableName() string {
	return "audit_log_entries"
}

// BeforeCreate assigns the entry ID and timestamp. Entries carry no
// UpdatedAt column; there is nothing that updates them.
func (a *AuditLogEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID, err = uuid.NewRandom()
		if err != nil {
			return
		}
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now().UTC()
	}
	return
}
