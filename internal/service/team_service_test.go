package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestTeamLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)

	_, err := f.teams.Create(f.ctx, lead, &dto.CreateTeamRequest{Name: "platform"})
	assertKind(t, err, pkgErrors.KindForbidden)

	team, err := f.teams.Create(f.ctx, admin, &dto.CreateTeamRequest{
		Name:      " platform ",
		LeaderID:  &lead.UserID,
		MemberIDs: []int64{m1.UserID, m1.UserID},
	})
	require.NoError(t, err)
	assert.Equal(t, "platform", team.Name)
	assert.Equal(t, lead.UserID, team.Leader.ID)
	assert.Len(t, team.Members, 1)

	_, err = f.teams.Create(f.ctx, admin, &dto.CreateTeamRequest{Name: "platform"})
	assertKind(t, err, pkgErrors.KindConflict)
	_, err = f.teams.Create(f.ctx, admin, &dto.CreateTeamRequest{Name: "x", MemberIDs: []int64{999}})
	assertKind(t, err, pkgErrors.KindNotFound)

	other, err := f.teams.Create(f.ctx, admin, &dto.CreateTeamRequest{Name: "infra"})
	require.NoError(t, err)
	_, err = f.teams.Update(f.ctx, admin, other.ID, &dto.UpdateTeamRequest{Name: strPtr("platform")})
	assertKind(t, err, pkgErrors.KindConflict)

	// 保留原名不算冲突; 0 清除负责人
	updated, err := f.teams.Update(f.ctx, admin, team.ID, &dto.UpdateTeamRequest{Name: strPtr("platform"), LeaderID: int64Ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, updated.Leader)

	withLead, err := f.teams.AddMember(f.ctx, admin, team.ID, &dto.TeamMemberRequest{UserID: lead.UserID})
	require.NoError(t, err)
	assert.Len(t, withLead.Members, 2)

	_, err = f.teams.RemoveMember(f.ctx, admin, team.ID, m1.UserID)
	require.NoError(t, err)
	_, err = f.teams.RemoveMember(f.ctx, admin, team.ID, m1.UserID)
	assertKind(t, err, pkgErrors.KindNotFound)

	list, err := f.teams.List(f.ctx, m1, "plat")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, team.ID, list[0].ID)

	assertKind(t, f.teams.Delete(f.ctx, lead, team.ID), pkgErrors.KindForbidden)
	require.NoError(t, f.teams.Delete(f.ctx, admin, team.ID))
	_, err = f.teams.GetByID(f.ctx, admin, team.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestTeamsHiddenFromGuests(t *testing.T) {
	f := newFixture(t)
	_, err := f.teams.List(f.ctx, guestOf(1), "")
	assertKind(t, err, pkgErrors.KindForbidden)
}
