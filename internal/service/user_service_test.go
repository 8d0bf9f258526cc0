package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"expensetracker/internal/cache"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
)

func TestUserService_CurrentIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	defer c.Close()

	repo := new(MockUserRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).
		Return(&model.User{ID: id, Email: "ana@example.com", Name: "Ana", PasswordHash: "secret-hash"}, nil).
		Once()

	svc := NewUserService(repo, c)

	first, err := svc.Current(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", first.Name)

	cached, err := mr.Get("user:" + id.String())
	require.NoError(t, err)
	assert.NotContains(t, cached, "secret-hash")

	second, err := svc.Current(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", second.Email)
	assert.Empty(t, second.PasswordHash)
	repo.AssertExpectations(t)

	svc.Invalidate(context.Background(), id)
	assert.False(t, mr.Exists("user:"+id.String()))
}

func TestUserService_CurrentNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	_, err := NewUserService(repo, nil).Current(context.Background(), uuid.New())
	assert.Equal(t, apperrors.ErrUserNotFound, err)
}
