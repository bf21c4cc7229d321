package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// setupTestDB opens a gorm handle over a sqlmock connection so transaction
// boundaries can be asserted while repositories stay mocked.
func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, sqlMock
}

// expectTx registers a begin/commit pair for one service transaction.
func expectTx(sqlMock sqlmock.Sqlmock) {
	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
}

// expectTxRollback registers a begin/rollback pair for a failing transaction.
func expectTxRollback(sqlMock sqlmock.Sqlmock) {
	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()
}

// MockTemplateRepository
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) CreateTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error {
	args := m.Called(ctx, tx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) SaveTemplateInTx(ctx context.Context, tx *gorm.DB, template *model.Template) error {
	args := m.Called(ctx, tx, template)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetTemplateByID(ctx context.Context, templateID uuid.UUID) (*model.Template, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateRepository) ListTemplates(ctx context.Context, activeOnly bool) ([]model.Template, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Template), args.Error(1)
}

func (m *MockTemplateRepository) GetStepsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) ([]model.Step, error) {
	args := m.Called(ctx, tx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Step), args.Error(1)
}

func (m *MockTemplateRepository) GetStepByID(ctx context.Context, stepID uuid.UUID) (*model.Step, error) {
	args := m.Called(ctx, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Step), args.Error(1)
}

func (m *MockTemplateRepository) GetStepByOrdinalInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (*model.Step, error) {
	args := m.Called(ctx, tx, templateID, ordinal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Step), args.Error(1)
}

func (m *MockTemplateRepository) CreateStepInTx(ctx context.Context, tx *gorm.DB, step *model.Step) error {
	args := m.Called(ctx, tx, step)
	return args.Error(0)
}

func (m *MockTemplateRepository) MaxOrdinalForUpdateInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, templateID)
	return args.Int(0), args.Error(1)
}

func (m *MockTemplateRepository) OrdinalExistsInTx(ctx context.Context, tx *gorm.DB, templateID uuid.UUID, ordinal int) (bool, error) {
	args := m.Called(ctx, tx, templateID, ordinal)
	return args.Bool(0), args.Error(1)
}

func (m *MockTemplateRepository) CreateTransitionInTx(ctx context.Context, tx *gorm.DB, transition *model.Transition) error {
	args := m.Called(ctx, tx, transition)
	return args.Error(0)
}

func (m *MockTemplateRepository) ActiveTransitionsFrom(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) ([]model.Transition, error) {
	args := m.Called(ctx, tx, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Transition), args.Error(1)
}

// MockProcessRepository
type MockProcessRepository struct {
	mock.Mock
}

func (m *MockProcessRepository) CreateInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error {
	args := m.Called(ctx, tx, process)
	return args.Error(0)
}

func (m *MockProcessRepository) SaveInTx(ctx context.Context, tx *gorm.DB, process *model.ProcessInstance) error {
	args := m.Called(ctx, tx, process)
	return args.Error(0)
}

func (m *MockProcessRepository) GetByID(ctx context.Context, processID uuid.UUID) (*model.ProcessInstance, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessInstance), args.Error(1)
}

func (m *MockProcessRepository) GetForUpdateInTx(ctx context.Context, tx *gorm.DB, processID uuid.UUID) (*model.ProcessInstance, error) {
	args := m.Called(ctx, tx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProcessInstance), args.Error(1)
}

func (m *MockProcessRepository) List(ctx context.Context, filter model.ProcessFilter, visibleTo *model.User) ([]model.ProcessInstance, error) {
	args := m.Called(ctx, filter, visibleTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProcessInstance), args.Error(1)
}

func (m *MockProcessRepository) CountByStatus(ctx context.Context, userID uuid.UUID, asCreator bool, status model.ProcessStatus) (int64, error) {
	args := m.Called(ctx, userID, asCreator, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProcessRepository) MaxNumberSequenceInTx(ctx context.Context, tx *gorm.DB, year int) (int, error) {
	args := m.Called(ctx, tx, year)
	return args.Int(0), args.Error(1)
}

func (m *MockProcessRepository) NumberExistsInTx(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	args := m.Called(ctx, tx, number)
	return args.Bool(0), args.Error(1)
}

// MockExecutionRepository
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) CreateInTx(ctx context.Context, tx *gorm.DB, execution *model.StepExecution) error {
	args := m.Called(ctx, tx, execution)
	return args.Error(0)
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, executionID uuid.UUID) (*model.StepExecution, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StepExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.StepExecution, error) {
	args := m.Called(ctx, processID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StepExecution), args.Error(1)
}

func (m *MockExecutionRepository) ExistsForExecutor(ctx context.Context, processID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, processID, userID)
	return args.Bool(0), args.Error(1)
}

// MockAuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) CreateInTx(ctx context.Context, tx *gorm.DB, entry *model.AuditLogEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByProcess(ctx context.Context, processID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	args := m.Called(ctx, processID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditLogEntry), args.Error(1)
}

func (m *MockAuditRepository) ListRecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditLogEntry), args.Error(1)
}

// MockDocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) CreateInTx(ctx context.Context, tx *gorm.DB, document *model.Document) error {
	args := m.Called(ctx, tx, document)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]model.Document, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

// MockUserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, userIDs []uuid.UUID) ([]model.User, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}
