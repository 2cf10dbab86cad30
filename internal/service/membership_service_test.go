package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestMembershipApproval(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	otherLead := f.user(t, "other", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	p := f.project(t, lead)

	req, err := f.memberships.Request(f.ctx, m1, p.ID, &dto.MembershipRequestCreate{Message: strPtr("let me in")})
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipPending, req.Status)
	assert.Equal(t, "Apollo", req.ProjectName)

	_, err = f.memberships.Request(f.ctx, m1, p.ID, &dto.MembershipRequestCreate{})
	assertKind(t, err, pkgErrors.KindConflict)

	pending, err := f.memberships.ListPending(f.ctx, lead)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m1.UserID, pending[0].User.ID)

	// 其他 Lead 只能看到自己负责项目的申请
	pending, err = f.memberships.ListPending(f.ctx, otherLead)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.memberships.ListPending(f.ctx, m1)
	assertKind(t, err, pkgErrors.KindForbidden)

	_, err = f.memberships.Decide(f.ctx, otherLead, req.ID, &dto.MembershipDecision{Approve: true})
	assertKind(t, err, pkgErrors.KindForbidden)

	decided, err := f.memberships.Decide(f.ctx, lead, req.ID, &dto.MembershipDecision{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipApproved, decided.Status)
	require.NotNil(t, decided.ReviewedByID)
	assert.Equal(t, lead.UserID, *decided.ReviewedByID)
	f.notifier.AssertCalled(t, "Notify", notificationOf(notification.NotifyMembershipDecided, m1.Email))

	got, err := f.projects.Get(f.ctx, m1, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 1)

	_, err = f.memberships.Decide(f.ctx, lead, req.ID, &dto.MembershipDecision{Approve: false})
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = f.memberships.Request(f.ctx, m1, p.ID, &dto.MembershipRequestCreate{})
	assertKind(t, err, pkgErrors.KindConflict)
}

func TestMembershipRejection(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	p := f.project(t, lead)

	req, err := f.memberships.Request(f.ctx, m1, p.ID, &dto.MembershipRequestCreate{})
	require.NoError(t, err)

	decided, err := f.memberships.Decide(f.ctx, admin, req.ID, &dto.MembershipDecision{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, constants.MembershipRejected, decided.Status)

	_, err = f.projects.Get(f.ctx, m1, p.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	// 被拒绝后可以再次申请
	_, err = f.memberships.Request(f.ctx, m1, p.ID, &dto.MembershipRequestCreate{})
	require.NoError(t, err)

	_, err = f.memberships.Request(f.ctx, guestOf(p.ID), p.ID, &dto.MembershipRequestCreate{})
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.memberships.Decide(f.ctx, admin, 999, &dto.MembershipDecision{})
	assertKind(t, err, pkgErrors.KindNotFound)
}
