package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// AuditWriter appends entries to the audit log. It is the only component
// allowed to create entries, and no component can change or remove them.
type AuditWriter struct {
	audits AuditRepository
}

func NewAuditWriter(audits AuditRepository) *AuditWriter {
	return &AuditWriter{audits: audits}
}

// auditRecord carries the optional fields of an audit entry.
type auditRecord struct {
	user        *model.User
	executionID *uuid.UUID
	clientIP    string
}

// AuditOption customizes an audit entry before it is written.
type AuditOption func(*auditRecord)

// WithUser attributes the entry to an acting user. Entries without a user
// are system actions.
func WithUser(user *model.User) AuditOption {
	return func(r *auditRecord) { r.user = user }
}

// WithExecution links the entry to the step execution that triggered it.
func WithExecution(executionID uuid.UUID) AuditOption {
	return func(r *auditRecord) { r.executionID = &executionID }
}

// WithClientIP records the originating client address.
func WithClientIP(ip string) AuditOption {
	return func(r *auditRecord) { r.clientIP = ip }
}

// Record appends one entry within the caller's transaction.
func (w *AuditWriter) Record(ctx context.Context, tx *gorm.DB, processID uuid.UUID, action model.AuditAction, description string, opts ...AuditOption) error {
	var rec auditRecord
	for _, opt := range opts {
		opt(&rec)
	}

	entry := &model.AuditLogEntry{
		ProcessID:   processID,
		ExecutionID: rec.executionID,
		Action:      action,
		Description: description,
		ClientIP:    rec.clientIP,
	}
	if rec.user != nil {
		id := rec.user.ID
		entry.UserID = &id
	}
	return w.audits.CreateInTx(ctx, tx, entry)
}

// Trail returns the most recent entries for a process, newest first.
func (w *AuditWriter) Trail(ctx context.Context, processID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	return w.audits.ListByProcess(ctx, processID, limit)
}
