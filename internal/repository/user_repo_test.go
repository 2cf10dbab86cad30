package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestUserUpdateRoleGuards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin", constants.RoleAdmin)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	member := seedUser(t, s, "member", constants.RoleMember)
	seedProject(t, s, lead)

	err := s.Users.UpdateRole(ctx, admin.ID, constants.RoleAdmin, constants.RoleLead)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(1), detailOf(t, err, "adminCount"))

	// 降级前在同一事务内复查负责的项目
	err = s.Users.UpdateRole(ctx, lead.ID, constants.RoleLead, constants.RoleMember)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(1), detailOf(t, err, "ledProjects"))

	err = s.Users.UpdateRole(ctx, member.ID, constants.RoleLead, constants.RoleAdmin)
	assertKind(t, err, pkgErrors.KindConflict)

	require.NoError(t, s.Users.UpdateRole(ctx, member.ID, constants.RoleMember, constants.RoleAdmin))
	require.NoError(t, s.Users.UpdateRole(ctx, admin.ID, constants.RoleAdmin, constants.RoleLead))

	got, err := s.Users.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleLead, got.Role)
	admins, err := s.Users.CountByRole(ctx, constants.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), admins)

	assertKind(t, s.Users.UpdateRole(ctx, 999, constants.RoleMember, constants.RoleLead), pkgErrors.KindNotFound)
}

func TestUserReferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	m1 := seedUser(t, s, "m1", constants.RoleMember)
	p := seedProject(t, s, lead, m1)
	seedTask(t, s, &p.ID, m1, lead, constants.TaskStatusTodo)
	seedTask(t, s, nil, lead, lead, constants.TaskStatusTodo)

	refs, err := s.Users.References(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, UserReferences{AssignedTasks: 1, AssignedByTasks: 1, LedProjects: 1}, refs)

	refs, err = s.Users.References(ctx, m1.ID)
	require.NoError(t, err)
	assert.Equal(t, UserReferences{AssignedTasks: 1, MemberProjects: 1}, refs)

	_, err = s.Users.Delete(ctx, m1.ID)
	assertKind(t, err, pkgErrors.KindConflict)
}

func TestUserDeleteUnlinksOrganisation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin", constants.RoleAdmin)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	m1 := seedUser(t, s, "m1", constants.RoleMember)
	m2 := seedUser(t, s, "m2", constants.RoleMember)
	p := seedProject(t, s, lead)

	team := &model.Team{
		Name:     "core",
		LeaderID: &m2.ID,
		Members:  []model.TeamMember{{UserID: m1.ID}, {UserID: m2.ID}},
	}
	require.NoError(t, s.Teams.Create(ctx, team))
	require.NoError(t, s.Secrets.Create(ctx, &model.Secret{
		Name:        "db",
		Value:       "pw",
		CreatedByID: admin.ID,
		Access:      []model.SecretAccess{{UserID: m2.ID}},
	}))
	require.NoError(t, s.Memberships.Create(ctx, &model.MembershipRequest{
		ProjectID: p.ID,
		UserID:    m2.ID,
		Status:    constants.MembershipPending,
	}))

	result, err := s.Users.Delete(ctx, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, UserUnlinkResult{TeamMemberships: 1, TeamsLed: 1, SecretGrants: 1, MembershipRequests: 1}, result)

	_, err = s.Users.FindByID(ctx, m2.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
	got, err := s.Teams.FindByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LeaderID)
	assert.Equal(t, []int64{m1.ID}, got.MemberIDs())

	// 最后一名管理员不能删除
	_, err = s.Users.Delete(ctx, admin.ID)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(1), detailOf(t, err, "adminCount"))
}
