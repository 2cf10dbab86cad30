package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestSecretAccessList(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)

	_, err := f.secrets.Create(f.ctx, lead, &dto.SecretRequest{Name: "db", Value: "pw"})
	assertKind(t, err, pkgErrors.KindForbidden)

	secret, err := f.secrets.Create(f.ctx, admin, &dto.SecretRequest{Name: "db", Value: "pw", AccessIDs: []int64{m1.UserID}})
	require.NoError(t, err)
	assert.Equal(t, admin.UserID, secret.CreatedByID)
	assert.Equal(t, []int64{m1.UserID}, secret.AccessIDs)

	got, err := f.secrets.Get(f.ctx, m1, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "pw", got.Value)
	_, err = f.secrets.Get(f.ctx, m2, secret.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	list, err := f.secrets.List(f.ctx, m2)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.secrets.List(f.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// 访问列表整体替换
	updated, err := f.secrets.Update(f.ctx, admin, secret.ID, &dto.SecretRequest{Name: "db", Value: "pw2", AccessIDs: []int64{m2.UserID}})
	require.NoError(t, err)
	assert.Equal(t, []int64{m2.UserID}, updated.AccessIDs)
	_, err = f.secrets.Get(f.ctx, m1, secret.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	_, err = f.secrets.Update(f.ctx, admin, secret.ID, &dto.SecretRequest{Name: "db", Value: "pw", AccessIDs: []int64{999}})
	assertKind(t, err, pkgErrors.KindNotFound)

	assertKind(t, f.secrets.Delete(f.ctx, m2, secret.ID), pkgErrors.KindForbidden)
	require.NoError(t, f.secrets.Delete(f.ctx, admin, secret.ID))
	_, err = f.secrets.Get(f.ctx, admin, secret.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
}
