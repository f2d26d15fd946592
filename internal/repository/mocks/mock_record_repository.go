package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoiceapi/internal/model"
	"invoiceapi/internal/repository"
)

type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.StoredRecord], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.StoredRecord]), args.Error(1)
}

func (m *MockRecordRepository) All(ctx context.Context) ([]model.InvoiceRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InvoiceRecord), args.Error(1)
}

func (m *MockRecordRepository) DeleteByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]model.StoredRecord, error) {
	args := m.Called(ctx, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StoredRecord), args.Error(1)
}

func (m *MockRecordRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
