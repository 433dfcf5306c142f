package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hmsportal/internal/model"
	"hmsportal/internal/repository"
)

// MockStoredValueRepository is a mock implementation of StoredValueRepository.
type MockStoredValueRepository struct {
	mock.Mock
}

func (m *MockStoredValueRepository) FindByKey(ctx context.Context, key string) (*model.StoredValue, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredValue), args.Error(1)
}

func (m *MockStoredValueRepository) Upsert(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStoredValueRepository) DeleteKeys(ctx context.Context, keys []string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockStoredValueRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.StoredValueRepository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

func TestSQL_Get(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*MockStoredValueRepository)
		wantValue string
		wantOK    bool
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(m *MockStoredValueRepository) {
				m.On("FindByKey", mock.Anything, "c1:token").Return(&model.StoredValue{Key: "c1:token", Value: "t1"}, nil)
			},
			wantValue: "t1",
			wantOK:    true,
		},
		{
			name: "missing key",
			setupMock: func(m *MockStoredValueRepository) {
				m.On("FindByKey", mock.Anything, "c1:token").Return(nil, nil)
			},
		},
		{
			name: "missing row",
			setupMock: func(m *MockStoredValueRepository) {
				m.On("FindByKey", mock.Anything, "c1:token").Return(nil, gorm.ErrRecordNotFound)
			},
		},
		{
			name: "database error",
			setupMock: func(m *MockStoredValueRepository) {
				m.On("FindByKey", mock.Anything, "c1:token").Return(nil, errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockStoredValueRepository)
			tt.setupMock(repo)

			v, ok, err := NewSQL(repo).Get(context.Background(), "c1:token")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantValue, v)
			assert.Equal(t, tt.wantOK, ok)
			repo.AssertExpectations(t)
		})
	}
}

func TestSQL_SetManyRunsInTransaction(t *testing.T) {
	repo := new(MockStoredValueRepository)
	repo.On("WithTransaction", mock.Anything).Return(nil)
	repo.On("Upsert", mock.Anything, "token", "t1").Return(nil)
	repo.On("Upsert", mock.Anything, "session", `{"user":{"id":1}}`).Return(nil)

	err := NewSQL(repo).SetMany(context.Background(), map[string]string{
		"token":   "t1",
		"session": `{"user":{"id":1}}`,
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSQL_SetManyPropagatesUpsertFailure(t *testing.T) {
	repo := new(MockStoredValueRepository)
	repo.On("WithTransaction", mock.Anything).Return(nil)
	repo.On("Upsert", mock.Anything, "token", "t1").Return(errors.New("deadlock"))

	err := NewSQL(repo).SetMany(context.Background(), map[string]string{"token": "t1"})
	assert.Error(t, err)
}

func TestSQL_DeleteSkipsEmpty(t *testing.T) {
	repo := new(MockStoredValueRepository)
	require.NoError(t, NewSQL(repo).Delete(context.Background()))
	repo.AssertNotCalled(t, "DeleteKeys", mock.Anything, mock.Anything)

	repo.On("DeleteKeys", mock.Anything, []string{"token", "session"}).Return(nil)
	require.NoError(t, NewSQL(repo).Delete(context.Background(), "token", "session"))
	repo.AssertExpectations(t)
}
