package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/OpenTramite/tramite/internal/process/apperr"
	"github.com/OpenTramite/tramite/internal/process/model"
	"github.com/OpenTramite/tramite/internal/uploads"
)

// memoryDriver stores payloads in a map. It stands in for the real storage
// backends in tests.
type memoryDriver struct {
	saved map[string][]byte
	fail  bool
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{saved: map[string][]byte{}}
}

func (d *memoryDriver) Save(_ context.Context, key string, body io.Reader, _ string) error {
	if d.fail {
		return assert.AnError
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	d.saved[key] = data
	return nil
}

func (d *memoryDriver) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	return io.NopCloser(strings.NewReader(string(d.saved[key]))), "application/octet-stream", nil
}

func (d *memoryDriver) Delete(_ context.Context, key string) error {
	delete(d.saved, key)
	return nil
}

func (d *memoryDriver) GenerateURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "memory://" + key, nil
}

type documentServiceFixture struct {
	processServiceFixture
	docs   *MockDocumentRepository
	driver *memoryDriver
	svc    *DocumentService
}

func newDocumentServiceFixture(t *testing.T) *documentServiceFixture {
	t.Helper()

	db, sqlMock := setupTestDB(t)
	f := &documentServiceFixture{
		docs:   new(MockDocumentRepository),
		driver: newMemoryDriver(),
	}
	f.sqlMock = sqlMock
	f.processes = new(MockProcessRepository)
	f.templates = new(MockTemplateRepository)
	f.execs = new(MockExecutionRepository)
	f.audits = new(MockAuditRepository)

	authz := NewAuthorizer(f.execs)
	audit := NewAuditWriter(f.audits)
	uploader := uploads.NewUploadService(f.driver)
	f.svc = NewDocumentService(db, f.docs, f.execs, f.processes, f.templates, authz, audit, uploader)
	return f
}

func TestDocumentService_Attach(t *testing.T) {
	ctx := context.Background()

	setup := func(f *documentServiceFixture, allowsAttachments bool) (*model.StepExecution, *model.User) {
		actor := activeUser(model.RoleOperator)
		step := &model.Step{
			BaseModel:         model.BaseModel{ID: uuid.New()},
			Name:              "Review",
			AllowsAttachments: allowsAttachments,
		}
		process := &model.ProcessInstance{
			BaseModel:   model.BaseModel{ID: uuid.New()},
			Number:      "000020/2026",
			Status:      model.ProcessStatusInProgress,
			CreatedByID: &actor.ID,
		}
		execution := &model.StepExecution{
			BaseModel: model.BaseModel{ID: uuid.New()},
			ProcessID: process.ID,
			StepID:    step.ID,
		}
		f.execs.On("GetByID", ctx, execution.ID).Return(execution, nil)
		f.templates.On("GetStepByID", ctx, step.ID).Return(step, nil)
		f.processes.On("GetByID", ctx, process.ID).Return(process, nil)
		return execution, actor
	}

	t.Run("stores the payload and records the attachment", func(t *testing.T) {
		f := newDocumentServiceFixture(t)
		execution, actor := setup(f, true)

		f.docs.On("CreateInTx", ctx, mock.Anything, mock.Anything).Return(nil)
		actions := recordedActions(f.audits)

		expectTx(f.sqlMock)

		document, err := f.svc.Attach(ctx, execution.ID, actor, "invoice.pdf", "",
			strings.NewReader("pdf bytes"), "application/pdf", "10.0.0.3")
		assert.NoError(t, err)
		assert.Equal(t, model.DocumentKindPDF, document.Kind)
		assert.Equal(t, int64(len("pdf bytes")), document.Size)
		assert.Equal(t, actor.ID, *document.UploadedByID)
		assert.Len(t, f.driver.saved, 1)
		assert.Equal(t, []model.AuditAction{model.AuditActionDocumentAttach}, *actions)
	})

	t.Run("rejects a step that forbids attachments", func(t *testing.T) {
		f := newDocumentServiceFixture(t)
		execution, actor := setup(f, false)

		_, err := f.svc.Attach(ctx, execution.ID, actor, "notes.txt", "",
			strings.NewReader("x"), "text/plain", "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Empty(t, f.driver.saved)
	})

	t.Run("refuses an actor who cannot view the process", func(t *testing.T) {
		f := newDocumentServiceFixture(t)
		outsider := activeUser(model.RoleViewer)

		step := &model.Step{BaseModel: model.BaseModel{ID: uuid.New()}, AllowsAttachments: true}
		process := &model.ProcessInstance{BaseModel: model.BaseModel{ID: uuid.New()}, Number: "000021/2026"}
		execution := &model.StepExecution{BaseModel: model.BaseModel{ID: uuid.New()}, ProcessID: process.ID, StepID: step.ID}

		f.execs.On("GetByID", ctx, execution.ID).Return(execution, nil)
		f.templates.On("GetStepByID", ctx, step.ID).Return(step, nil)
		f.processes.On("GetByID", ctx, process.ID).Return(process, nil)
		f.execs.On("ExistsForExecutor", ctx, process.ID, outsider.ID).Return(false, nil)

		_, err := f.svc.Attach(ctx, execution.ID, outsider, "leak.pdf", "",
			strings.NewReader("x"), "application/pdf", "")
		assert.ErrorIs(t, err, apperr.ErrAuthorization)
		assert.Empty(t, f.driver.saved)
	})

	t.Run("storage failure surfaces as a storage error", func(t *testing.T) {
		f := newDocumentServiceFixture(t)
		execution, actor := setup(f, true)
		f.driver.fail = true

		_, err := f.svc.Attach(ctx, execution.ID, actor, "doc.pdf", "",
			strings.NewReader("x"), "application/pdf", "")
		assert.ErrorIs(t, err, apperr.ErrStorage)
	})
}

func TestClassifyDocument(t *testing.T) {
	assert.Equal(t, model.DocumentKindImage, classifyDocument("photo.png", "image/png"))
	assert.Equal(t, model.DocumentKindPDF, classifyDocument("scan.PDF", ""))
	assert.Equal(t, model.DocumentKindPDF, classifyDocument("x", "application/pdf"))
	assert.Equal(t, model.DocumentKindSpreadsheet, classifyDocument("data.csv", ""))
	assert.Equal(t, model.DocumentKindSpreadsheet, classifyDocument("book.xlsx", ""))
	assert.Equal(t, model.DocumentKindDocument, classifyDocument("letter.docx", ""))
	assert.Equal(t, model.DocumentKindOther, classifyDocument("README", ""))
}
