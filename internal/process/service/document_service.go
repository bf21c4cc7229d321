package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
	"github.com/OpenTramite/tramite/internal/uploads"
)

// DocumentService attaches files to step execution records. Documents are
// owned by their execution and follow it on deletion; their payloads live
// behind the uploads storage driver.
type DocumentService struct {
	db        *gorm.DB
	docs      DocumentRepository
	execs     ExecutionRepository
	processes ProcessRepository
	templates TemplateRepository
	authz     *Authorizer
	audit     *AuditWriter
	uploader  *uploads.UploadService
	now       func() time.Time
}

func NewDocumentService(
	db *gorm.DB,
	docs DocumentRepository,
	execs ExecutionRepository,
	processes ProcessRepository,
	templates TemplateRepository,
	authz *Authorizer,
	audit *AuditWriter,
	uploader *uploads.UploadService,
) *DocumentService {
	return &DocumentService{
		db:        db,
		docs:      docs,
		execs:     execs,
		processes: processes,
		templates: templates,
		authz:     authz,
		audit:     audit,
		uploader:  uploader,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Attach stores the payload and records the document against the execution.
// The execution's step must allow attachments and the uploader must be able
// to view the owning process.
func (s *DocumentService) Attach(ctx context.Context, executionID uuid.UUID, actor *model.User, name string, kind model.DocumentKind, content io.Reader, contentType string, clientIP string) (*model.Document, error) {
	if name == "" {
		return nil, apperr.Validation("document name is required")
	}

	execution, err := s.execs.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	step, err := s.templates.GetStepByID(ctx, execution.StepID)
	if err != nil {
		return nil, err
	}
	if !step.AllowsAttachments {
		return nil, apperr.Validation("step %q does not allow attachments", step.Name)
	}

	process, err := s.processes.GetByID(ctx, execution.ProcessID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.authz.CanView(ctx, actor, process)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Authorization("user %s may not attach documents to process %s", actor.Username, process.Number)
	}

	metadata, err := s.uploader.Upload(ctx, name, content, contentType)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	if kind == "" {
		kind = classifyDocument(name, contentType)
	}

	actorID := actor.ID
	document := &model.Document{
		ExecutionID:  execution.ID,
		Name:         name,
		Kind:         kind,
		StorageKey:   metadata.Key,
		Size:         metadata.Size,
		UploadedByID: &actorID,
		UploadedAt:   s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.docs.CreateInTx(ctx, tx, document); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, process.ID, model.AuditActionDocumentAttach,
			fmt.Sprintf("Document %q (%s) attached to step %q", name, document.FormattedSize(), step.Name),
			WithUser(actor), WithExecution(execution.ID), WithClientIP(clientIP))
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// ListByExecution returns the documents attached to an execution record.
func (s *DocumentService) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]model.Document, error) {
	return s.docs.ListByExecution(ctx, executionID)
}

// classifyDocument derives a document kind from the file name and declared
// content type.
func classifyDocument(name, contentType string) model.DocumentKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.DocumentKindImage
	case contentType == "application/pdf" || strings.EqualFold(filepath.Ext(name), ".pdf"):
		return model.DocumentKindPDF
	case strings.Contains(contentType, "spreadsheet") ||
		strings.EqualFold(filepath.Ext(name), ".xlsx") ||
		strings.EqualFold(filepath.Ext(name), ".csv"):
		return model.DocumentKindSpreadsheet
	case contentType == "" && filepath.Ext(name) == "":
		return model.DocumentKindOther
	default:
		return model.DocumentKindDocument
	}
}
