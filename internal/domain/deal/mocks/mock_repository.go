package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deal-hub/deal-hub/internal/domain/deal"
)

// MockRepository is a mock implementation of deal.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, d *deal.Deal) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, dealID int64) (*deal.Deal, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deal.Deal), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, limit, offset int) ([]*deal.Deal, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deal.Deal), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, dealID int64, status deal.Status) error {
	args := m.Called(ctx, dealID, status)
	return args.Error(0)
}
