package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"invoiceapi/internal/export"
	"invoiceapi/internal/service"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) List(ctx context.Context, limit, offset int) (*service.InvoiceListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceListResult), args.Error(1)
}

func (m *MockInvoiceService) Delete(ctx context.Context, invoiceIDs []string) (*service.DeleteInvoicesResult, error) {
	args := m.Called(ctx, invoiceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteInvoicesResult), args.Error(1)
}

// Export writes the first return value to w before returning the error.
func (m *MockInvoiceService) Export(ctx context.Context, w io.Writer, format export.Format) error {
	args := m.Called(ctx, w, format)
	if _, err := io.WriteString(w, args.String(0)); err != nil {
		return err
	}
	return args.Error(1)
}

func (m *MockInvoiceService) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
