package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskhub/internal/model"
	"taskhub/internal/pkg/jwt"
	"taskhub/internal/repository/memory"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestResolveUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	creds := jwt.NewService("secret")
	resolver := NewResolver(creds, store.Users, zap.NewNop())

	user := &model.User{Name: "Ann", Email: "ann@example.com", Role: constants.RoleLead, Skills: model.StringList{"go"}}
	require.NoError(t, store.Users.Create(ctx, user))

	// 令牌中的角色已过时, 以存储为准
	token, err := creds.Issue(jwt.Claims{UserID: user.ID, Email: user.Email, Role: constants.RoleMember}, time.Hour)
	require.NoError(t, err)

	p, err := resolver.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Equal(t, constants.RoleLead, p.Role)
	assert.Equal(t, []string{"go"}, p.Skills)
	assert.False(t, p.IsGuest)
	assert.True(t, p.InScope(42))
}

func TestResolveGuest(t *testing.T) {
	creds := jwt.NewService("secret")
	resolver := NewResolver(creds, memory.NewStore().Users, zap.NewNop())

	projectID := int64(7)
	claims := jwt.Claims{Email: "guest@example.com", Role: constants.RoleMember, ProjectID: &projectID, Guest: true}
	claims.ID = "12"
	token, err := creds.Issue(claims, time.Hour)
	require.NoError(t, err)

	p, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, p.IsGuest)
	assert.Equal(t, "guest:12", p.ID)
	assert.Equal(t, constants.RoleMember, p.Role)
	assert.True(t, p.InScope(7))
	assert.False(t, p.InScope(8))
	assert.False(t, p.IsAdmin())
}

func TestResolveRejects(t *testing.T) {
	ctx := context.Background()
	creds := jwt.NewService("secret")
	resolver := NewResolver(creds, memory.NewStore().Users, zap.NewNop())

	_, err := resolver.Resolve(ctx, "garbage")
	assert.True(t, pkgErrors.Is(err, pkgErrors.KindUnauthenticated))

	// 用户已被删除
	token, err := creds.Issue(jwt.Claims{UserID: 99, Role: constants.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, token)
	assert.True(t, pkgErrors.Is(err, pkgErrors.KindUnauthenticated))
}
