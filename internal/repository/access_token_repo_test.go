package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestAccessTokenMarkUsedKeepsFirstUse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	p := seedProject(t, s, lead)

	token := &model.ProjectAccessToken{
		ProjectID:   p.ID,
		Email:       "guest@example.com",
		Token:       " ab c1 ",
		IsActive:    true,
		CreatedByID: lead.ID,
	}
	require.NoError(t, s.AccessTokens.Create(ctx, token))
	assert.Equal(t, "ABC1", token.Token)

	found, err := s.AccessTokens.FindByToken(ctx, "abc 1")
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)

	first := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, s.AccessTokens.MarkUsed(ctx, token.ID, first, false))
	require.NoError(t, s.AccessTokens.MarkUsed(ctx, token.ID, first.Add(time.Minute), false))

	got, err := s.AccessTokens.FindByID(ctx, token.ID)
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)
	assert.True(t, got.UsedAt.Equal(first), "used_at = %v", got.UsedAt)
	assert.True(t, got.IsActive)

	require.NoError(t, s.AccessTokens.MarkUsed(ctx, token.ID, time.Now(), true))
	assertKind(t, s.AccessTokens.MarkUsed(ctx, token.ID, time.Now(), false), pkgErrors.KindConflict)
}

func TestAccessTokenDeactivateExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	p := seedProject(t, s, lead)

	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	for i, expires := range []*time.Time{&past, &future, nil} {
		require.NoError(t, s.AccessTokens.Create(ctx, &model.ProjectAccessToken{
			ProjectID:   p.ID,
			Email:       "guest@example.com",
			Token:       string(rune('A' + i)),
			ExpiresAt:   expires,
			IsActive:    true,
			CreatedByID: lead.ID,
		}))
	}

	n, err := s.AccessTokens.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tokens, err := s.AccessTokens.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	active := 0
	for _, tk := range tokens {
		if tk.IsActive {
			active++
		}
	}
	assert.Equal(t, 2, active)

	assertKind(t, s.AccessTokens.Deactivate(ctx, 999), pkgErrors.KindNotFound)
}
