package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestCloseProjectRequiresAllTasksDone(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	p := f.project(t, lead, member)

	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, f.task(t, lead, &p.ID, member).ID)
	}
	f.setStatus(t, member, ids[0], constants.TaskStatusDone)
	f.setStatus(t, member, ids[1], constants.TaskStatusDone)

	_, err := f.projects.Close(f.ctx, lead, p.ID)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(1), detailOf(t, err, "pendingTasks"))

	f.setStatus(t, member, ids[2], constants.TaskStatusDone)
	closed, err := f.projects.Close(f.ctx, lead, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusClosed, closed.Status)
	assert.Equal(t, constants.ProjectStatusClosed, closed.DerivedStatus)
	assert.Equal(t, 100, closed.Progress)
	require.NotNil(t, closed.ClosedByID)
	assert.Equal(t, lead.UserID, *closed.ClosedByID)
	assert.NotNil(t, closed.ClosedAt)

	// 重复关闭总是 Conflict
	_, err = f.projects.Close(f.ctx, lead, p.ID)
	assertKind(t, err, pkgErrors.KindConflict)

	f.notifier.AssertCalled(t, "Notify", notificationOf(notification.NotifyProjectClosed, lead.Email, member.Email))
}

func TestCloseProjectWithoutTasks(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)

	_, err := f.projects.Close(f.ctx, lead, p.ID)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(0), detailOf(t, err, "totalTasks"))
}

func TestCloseProjectOnlyLeadOrAdmin(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	other := f.user(t, "other", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	p := f.project(t, lead, member)
	task := f.task(t, lead, &p.ID, member)
	f.setStatus(t, member, task.ID, constants.TaskStatusDone)

	_, err := f.projects.Close(f.ctx, member, p.ID)
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.projects.Close(f.ctx, other, p.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	_, err = f.projects.Close(f.ctx, admin, p.ID)
	require.NoError(t, err)
}

func TestDeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	p := f.project(t, lead, member)

	t1 := f.task(t, lead, &p.ID, member)
	t2 := f.task(t, lead, &p.ID, lead)

	_, err := f.projects.Delete(f.ctx, admin, p.ID)
	assertKind(t, err, pkgErrors.KindConflict)

	f.setStatus(t, member, t1.ID, constants.TaskStatusDone)
	f.setStatus(t, lead, t2.ID, constants.TaskStatusDone)
	_, err = f.projects.Close(f.ctx, lead, p.ID)
	require.NoError(t, err)

	_, err = f.projects.Delete(f.ctx, lead, p.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	result, err := f.projects.Delete(f.ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedTasks)
	assert.Equal(t, int64(1), result.DeletedMembers)

	_, err = f.projects.Get(f.ctx, admin, p.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
	_, err = f.tasks.Get(f.ctx, admin, t1.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestClosedProjectIsReadOnly(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	extra := f.user(t, "extra", constants.RoleMember)
	p := f.project(t, lead, member)
	task := f.task(t, lead, &p.ID, member)
	f.setStatus(t, member, task.ID, constants.TaskStatusDone)
	_, err := f.projects.Close(f.ctx, lead, p.ID)
	require.NoError(t, err)

	_, err = f.projects.Update(f.ctx, lead, p.ID, &dto.UpdateProjectRequest{Name: strPtr("renamed")})
	assertKind(t, err, pkgErrors.KindConflict)
	_, err = f.projects.AddMember(f.ctx, lead, p.ID, &dto.AddMemberRequest{UserID: extra.UserID})
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = f.tasks.UpdateStatus(f.ctx, member, task.ID, &dto.UpdateTaskStatusRequest{Status: constants.TaskStatusTodo})
	assertKind(t, err, pkgErrors.KindConflict)
	_, err = f.tasks.Create(f.ctx, lead, &dto.CreateTaskRequest{Title: "late", ProjectID: &p.ID, AssignedToID: member.UserID})
	assertKind(t, err, pkgErrors.KindConflict)
}

func TestUpdateProjectCannotSetClosed(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)

	_, err := f.projects.Update(f.ctx, lead, p.ID, &dto.UpdateProjectRequest{Status: strPtr(constants.ProjectStatusClosed)})
	assertKind(t, err, pkgErrors.KindValidationFailed)

	updated, err := f.projects.Update(f.ctx, lead, p.ID, &dto.UpdateProjectRequest{Status: strPtr(constants.ProjectStatusOnHold)})
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusOnHold, updated.Status)
}

func TestCreateProjectRoles(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)

	_, err := f.projects.Create(f.ctx, member, &dto.CreateProjectRequest{Name: "x"})
	assertKind(t, err, pkgErrors.KindForbidden)

	// 负责人必须是 Lead 或 Admin
	_, err = f.projects.Create(f.ctx, admin, &dto.CreateProjectRequest{Name: "x", LeadID: &member.UserID})
	assertKind(t, err, pkgErrors.KindValidationFailed)

	p, err := f.projects.Create(f.ctx, admin, &dto.CreateProjectRequest{Name: "x", LeadID: &lead.UserID})
	require.NoError(t, err)
	assert.Equal(t, lead.UserID, p.Lead.ID)
	assert.Equal(t, constants.ProjectStatusNotStarted, p.Status)
	assert.Equal(t, constants.PriorityMedium, p.Priority)

	_, err = f.projects.Create(f.ctx, lead, &dto.CreateProjectRequest{Name: "y", MemberIDs: []int64{999}})
	assertKind(t, err, pkgErrors.KindNotFound)

	_, err = f.projects.Create(f.ctx, lead, &dto.CreateProjectRequest{Name: ""})
	assertKind(t, err, pkgErrors.KindValidationFailed)
}

func TestDerivedStatusFollowsTasks(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)
	assert.Equal(t, constants.ProjectStatusNotStarted, p.DerivedStatus)

	t1 := f.task(t, lead, &p.ID, lead)
	t2 := f.task(t, lead, &p.ID, lead)
	got, err := f.projects.Get(f.ctx, lead, p.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ProjectStatusNotStarted, got.DerivedStatus)

	f.setStatus(t, lead, t1.ID, constants.TaskStatusInProgress)
	got, _ = f.projects.Get(f.ctx, lead, p.ID)
	assert.Equal(t, constants.ProjectStatusInProgress, got.DerivedStatus)
	assert.Equal(t, 0, got.Progress)

	f.setStatus(t, lead, t1.ID, constants.TaskStatusDone)
	f.setStatus(t, lead, t2.ID, constants.TaskStatusDone)
	got, _ = f.projects.Get(f.ctx, lead, p.ID)
	assert.Equal(t, constants.ProjectStatusCompleted, got.DerivedStatus)
	assert.Equal(t, 100, got.Progress)
	// 存储状态不受推导影响
	assert.Equal(t, constants.ProjectStatusNotStarted, got.Status)
}

func TestProjectVisibility(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	otherLead := f.user(t, "other", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	outsider := f.user(t, "outsider", constants.RoleMember)
	p1 := f.project(t, lead, member)
	p2 := f.project(t, otherLead)

	list, total, err := f.projects.List(f.ctx, member, &dto.ProjectListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, p1.ID, list[0].ID)

	_, total, err = f.projects.List(f.ctx, lead, &dto.ProjectListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = f.projects.Get(f.ctx, outsider, p1.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	guest := guestOf(p2.ID)
	list, total, err = f.projects.List(f.ctx, guest, &dto.ProjectListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, p2.ID, list[0].ID)

	_, err = f.projects.Get(f.ctx, guest, p2.ID)
	require.NoError(t, err)
	_, err = f.projects.Get(f.ctx, guest, p1.ID)
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.projects.Update(f.ctx, guest, p2.ID, &dto.UpdateProjectRequest{Name: strPtr("x")})
	assertKind(t, err, pkgErrors.KindForbidden)
}

func TestProjectMembers(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	p := f.project(t, lead)

	_, err := f.projects.AddMember(f.ctx, member, p.ID, &dto.AddMemberRequest{UserID: member.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)

	got, err := f.projects.AddMember(f.ctx, lead, p.ID, &dto.AddMemberRequest{UserID: member.UserID})
	require.NoError(t, err)
	require.Len(t, got.Members, 1)
	assert.Equal(t, member.UserID, got.Members[0].ID)

	_, err = f.projects.AddMember(f.ctx, lead, p.ID, &dto.AddMemberRequest{UserID: member.UserID})
	assertKind(t, err, pkgErrors.KindConflict)
	_, err = f.projects.AddMember(f.ctx, lead, p.ID, &dto.AddMemberRequest{UserID: 999})
	assertKind(t, err, pkgErrors.KindNotFound)

	got, err = f.projects.RemoveMember(f.ctx, lead, p.ID, member.UserID)
	require.NoError(t, err)
	assert.Empty(t, got.Members)

	_, err = f.projects.RemoveMember(f.ctx, lead, p.ID, member.UserID)
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestChangeProjectLead(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	next := f.user(t, "next", constants.RoleLead)
	member := f.user(t, "member", constants.RoleMember)
	p := f.project(t, lead)

	_, err := f.projects.ChangeLead(f.ctx, lead, p.ID, &dto.ChangeLeadRequest{LeadID: member.UserID})
	assertKind(t, err, pkgErrors.KindValidationFailed)
	_, err = f.projects.ChangeLead(f.ctx, lead, p.ID, &dto.ChangeLeadRequest{LeadID: 999})
	assertKind(t, err, pkgErrors.KindNotFound)

	got, err := f.projects.ChangeLead(f.ctx, lead, p.ID, &dto.ChangeLeadRequest{LeadID: next.UserID})
	require.NoError(t, err)
	assert.Equal(t, next.UserID, got.Lead.ID)

	// 原负责人不再有管理权限
	_, err = f.projects.ChangeLead(f.ctx, lead, p.ID, &dto.ChangeLeadRequest{LeadID: lead.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)
}

func TestStaleProjectUpdateKeepsLead(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	next := f.user(t, "next", constants.RoleLead)
	p := f.project(t, lead)

	stale, err := f.store.Projects.FindByID(f.ctx, p.ID)
	require.NoError(t, err)

	_, err = f.projects.ChangeLead(f.ctx, admin, p.ID, &dto.ChangeLeadRequest{LeadID: next.UserID})
	require.NoError(t, err)

	// 旧快照写回基本字段, 负责人不受影响
	stale.Name = "Renamed"
	require.NoError(t, f.store.Projects.Update(f.ctx, stale))
	got, err := f.store.Projects.FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, next.UserID, got.LeadID)

	// 以旧负责人为前提的交换失败
	_, err = f.store.Projects.ChangeLead(f.ctx, p.ID, lead.UserID, admin.UserID)
	assertKind(t, err, pkgErrors.KindConflict)

	// 仓储层拒绝把负责人降级为 Member
	err = f.store.Users.UpdateRole(f.ctx, next.UserID, constants.RoleLead, constants.RoleMember)
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, int64(1), detailOf(t, err, "ledProjects"))
	require.NoError(t, f.store.Users.UpdateRole(f.ctx, lead.UserID, constants.RoleLead, constants.RoleMember))

	// 新负责人已被降级时交换失败
	_, err = f.store.Projects.ChangeLead(f.ctx, p.ID, next.UserID, lead.UserID)
	assertKind(t, err, pkgErrors.KindConflict)
}

func TestConcurrentCloseAndDelete(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	p := f.project(t, lead)
	task := f.task(t, lead, &p.ID, lead)
	f.setStatus(t, lead, task.ID, constants.TaskStatusDone)

	const workers = 8
	run := func(op func() error) []error {
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = op()
			}(i)
		}
		wg.Wait()
		return errs
	}

	errs := run(func() error {
		_, err := f.projects.Close(f.ctx, lead, p.ID)
		return err
	})
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, pkgErrors.KindConflict, pkgErrors.KindOf(err), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	errs = run(func() error {
		_, err := f.projects.Delete(f.ctx, admin, p.ID)
		return err
	})
	succeeded = 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// 删除成功后再读到的是不存在
		assert.Contains(t, []pkgErrors.Kind{pkgErrors.KindConflict, pkgErrors.KindNotFound}, pkgErrors.KindOf(err), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	_, err := f.projects.Get(f.ctx, admin, p.ID)
	assertKind(t, err, pkgErrors.KindNotFound)
}
