package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	repo, err := NewMemoryUserRepository()
	require.NoError(t, err)
	return NewService(repo)
}

func TestUpsertFromClaims(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.UpsertFromClaims(ctx, map[string]interface{}{
		"sub":   "sub-123",
		"email": "x@example.com",
		"name":  "X User",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "x@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	time.Sleep(time.Millisecond)
	again, err := svc.UpsertFromClaims(ctx, map[string]interface{}{"sub": "sub-123", "email": "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.True(t, u.CreatedAt.Equal(again.CreatedAt))
	assert.True(t, again.UpdatedAt.After(u.UpdatedAt))

	got, err := svc.GetBySub(ctx, "sub-123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
}

func TestUpsertFromClaims_MissingSub(t *testing.T) {
	_, err := newService(t).UpsertFromClaims(context.Background(), map[string]interface{}{"email": "x@example.com"})
	require.ErrorIs(t, err, ErrNoSubject)
}

func TestGetBySub_NotFound(t *testing.T) {
	_, err := newService(t).GetBySub(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}
