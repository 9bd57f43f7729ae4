package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wastepoints/internal/model"
	"wastepoints/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUIDForUpdate(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ApplyDelta(ctx context.Context, uid string, delta int64, entry *model.LedgerEntry) (*model.User, error) {
	args := m.Called(ctx, uid, delta, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ListEntries(ctx context.Context, uid string) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

// WithTransaction runs fn against the mock itself unless an error is stubbed.
func (m *MockUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.UserRepository) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

func (m *MockUserRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
