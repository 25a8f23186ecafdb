package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/files"
	"github.com/dlcks7456/diaryCleaning/internal/services"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
)

type MockWorkbookService struct {
	mock.Mock
}

func (m *MockWorkbookService) Load(ctx context.Context, req services.LoadRequest) (*services.Summary, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*services.Summary)
	return s, args.Error(1)
}

func (m *MockWorkbookService) Summary(ctx context.Context) (*services.Summary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*services.Summary)
	return s, args.Error(1)
}

func (m *MockWorkbookService) ErrorPanels(ctx context.Context, rule string) (*services.RuleErrors, error) {
	args := m.Called(ctx, rule)
	re, _ := args.Get(0).(*services.RuleErrors)
	return re, args.Error(1)
}

func (m *MockWorkbookService) PanelRows(ctx context.Context, panel, product string) ([]services.RowView, error) {
	args := m.Called(ctx, panel, product)
	rows, _ := args.Get(0).([]services.RowView)
	return rows, args.Error(1)
}

func (m *MockWorkbookService) Modify(ctx context.Context, errorType string, edits []workbook.Edit) (*services.Summary, error) {
	args := m.Called(ctx, errorType, edits)
	s, _ := args.Get(0).(*services.Summary)
	return s, args.Error(1)
}

func (m *MockWorkbookService) Delete(ctx context.Context, errorType string, ids []int) (*services.Summary, error) {
	args := m.Called(ctx, errorType, ids)
	s, _ := args.Get(0).(*services.Summary)
	return s, args.Error(1)
}

func (m *MockWorkbookService) Export(ctx context.Context, req services.ExportRequest) (*services.ExportResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*services.ExportResult)
	return res, args.Error(1)
}

func (m *MockWorkbookService) ChangeLog(ctx context.Context) []changelog.Entry {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]changelog.Entry)
	return entries
}

func (m *MockWorkbookService) Outputs(ctx context.Context) ([]files.FileInfo, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]files.FileInfo)
	return out, args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}
