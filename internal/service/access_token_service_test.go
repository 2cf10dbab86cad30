package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestIssueAccessToken(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	p := f.project(t, lead, m1)

	_, err := f.tokens.Create(f.ctx, m1, p.ID, &dto.CreateAccessTokenRequest{Email: "guest@example.com"})
	assertKind(t, err, pkgErrors.KindForbidden)

	past := time.Now().Add(-time.Hour)
	_, err = f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: "guest@example.com", ExpiresAt: &past})
	assertKind(t, err, pkgErrors.KindValidationFailed)

	_, err = f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: "not-an-email"})
	assertKind(t, err, pkgErrors.KindValidationFailed)

	token, err := f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: " Guest@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", token.Email)
	assert.True(t, token.IsActive)
	assert.Equal(t, constants.NormalizeCode(token.Token), token.Token)
	f.notifier.AssertCalled(t, "Notify", notificationOf(notification.NotifyAccessTokenIssued, "guest@example.com"))

	list, err := f.tokens.List(f.ctx, lead, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.tokens.Deactivate(f.ctx, lead, p.ID, token.ID))
	list, err = f.tokens.List(f.ctx, lead, p.ID)
	require.NoError(t, err)
	assert.False(t, list[0].IsActive)

	// 重复停用无副作用
	require.NoError(t, f.tokens.Deactivate(f.ctx, lead, p.ID, token.ID))
	assertKind(t, f.tokens.Deactivate(f.ctx, lead, p.ID, 999), pkgErrors.KindNotFound)
}

func TestIssueAccessTokenOnClosedProject(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)
	task := f.task(t, lead, &p.ID, lead)
	f.setStatus(t, lead, task.ID, constants.TaskStatusDone)
	_, err := f.projects.Close(f.ctx, lead, p.ID)
	require.NoError(t, err)

	_, err = f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: "guest@example.com"})
	assertKind(t, err, pkgErrors.KindConflict)

	// 已关闭项目仍可查看访客码
	_, err = f.tokens.List(f.ctx, lead, p.ID)
	require.NoError(t, err)
}

func TestCleanupExpiredTokens(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)

	soon := time.Now().Add(time.Hour)
	_, err := f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: "a@example.com", ExpiresAt: &soon})
	require.NoError(t, err)
	_, err = f.tokens.Create(f.ctx, lead, p.ID, &dto.CreateAccessTokenRequest{Email: "b@example.com"})
	require.NoError(t, err)

	n, err := f.tokens.CleanupExpired(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	svc := f.tokens.(*accessTokenService)
	svc.now = func() time.Time { return soon.Add(time.Minute) }
	n, err = f.tokens.CleanupExpired(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := f.tokens.List(f.ctx, lead, p.ID)
	require.NoError(t, err)
	active := 0
	for _, tok := range list {
		if tok.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}
