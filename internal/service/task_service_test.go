package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestReassignRequiresProjectMember(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)
	m3 := f.user(t, "m3", constants.RoleMember)
	p := f.project(t, lead, m1, m2)
	task := f.task(t, lead, &p.ID, m1)

	_, err := f.tasks.Reassign(f.ctx, lead, task.ID, &dto.ReassignTaskRequest{AssignedToID: m3.UserID})
	assertKind(t, err, pkgErrors.KindConflict)
	assert.Equal(t, m3.UserID, detailOf(t, err, "assigneeId"))

	got, err := f.tasks.Reassign(f.ctx, lead, task.ID, &dto.ReassignTaskRequest{AssignedToID: m2.UserID})
	require.NoError(t, err)
	assert.Equal(t, m2.UserID, got.AssignedToID)
	assert.Equal(t, lead.UserID, got.AssignedByID)

	stored, err := f.tasks.Get(f.ctx, lead, task.ID)
	require.NoError(t, err)
	assert.Equal(t, m2.UserID, stored.AssignedToID)

	f.notifier.AssertCalled(t, "Notify", notificationOf(notification.NotifyTaskReassigned, m2.Email))
}

func TestReassignOnlyLeadOrAdmin(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	otherLead := f.user(t, "other", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)
	p := f.project(t, lead, m1, m2)
	task := f.task(t, lead, &p.ID, m1)

	_, err := f.tasks.Reassign(f.ctx, m1, task.ID, &dto.ReassignTaskRequest{AssignedToID: m2.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.tasks.Reassign(f.ctx, otherLead, task.ID, &dto.ReassignTaskRequest{AssignedToID: m2.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.tasks.Reassign(f.ctx, lead, task.ID, &dto.ReassignTaskRequest{AssignedToID: 999})
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestPersonalTaskRules(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin", constants.RoleAdmin)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)

	own := f.task(t, m1, nil, m1)
	assert.Nil(t, own.ProjectID)

	_, err := f.tasks.Create(f.ctx, m1, &dto.CreateTaskRequest{Title: "x", AssignedToID: m2.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)

	assigned := f.task(t, lead, nil, m2)
	f.notifier.AssertCalled(t, "Notify", notificationOf(notification.NotifyTaskAssigned, m2.Email))

	// 个人任务只有管理员可以转派
	_, err = f.tasks.Reassign(f.ctx, lead, assigned.ID, &dto.ReassignTaskRequest{AssignedToID: m1.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)
	got, err := f.tasks.Reassign(f.ctx, admin, assigned.ID, &dto.ReassignTaskRequest{AssignedToID: m1.UserID})
	require.NoError(t, err)
	assert.Equal(t, m1.UserID, got.AssignedToID)

	_, err = f.tasks.Get(f.ctx, m2, own.ID)
	assertKind(t, err, pkgErrors.KindForbidden)
}

func TestCreateTaskInProject(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	outsider := f.user(t, "outsider", constants.RoleMember)
	p := f.project(t, lead, m1)

	_, err := f.tasks.Create(f.ctx, outsider, &dto.CreateTaskRequest{Title: "x", ProjectID: &p.ID, AssignedToID: outsider.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)

	_, err = f.tasks.Create(f.ctx, lead, &dto.CreateTaskRequest{Title: "x", ProjectID: &p.ID, AssignedToID: outsider.UserID})
	assertKind(t, err, pkgErrors.KindConflict)

	_, err = f.tasks.Create(f.ctx, lead, &dto.CreateTaskRequest{Title: "x", ProjectID: int64Ptr(999), AssignedToID: m1.UserID})
	assertKind(t, err, pkgErrors.KindNotFound)

	_, err = f.tasks.Create(f.ctx, lead, &dto.CreateTaskRequest{Title: "x", ProjectID: &p.ID, AssignedToID: m1.UserID, Status: "Cancelled"})
	assertKind(t, err, pkgErrors.KindValidationFailed)

	task, err := f.tasks.Create(f.ctx, m1, &dto.CreateTaskRequest{
		Title:        "  write docs ",
		ProjectID:    &p.ID,
		AssignedToID: lead.UserID,
		Skills:       []string{" go ", "go", ""},
		Subtasks:     []dto.SubtaskInput{{Title: "outline"}, {ID: "fixed", Title: "draft"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "write docs", task.Title)
	assert.Equal(t, constants.TaskStatusTodo, task.Status)
	assert.Equal(t, constants.PriorityMedium, task.Priority)
	assert.Equal(t, []string{"go"}, task.Skills)
	require.Len(t, task.Subtasks, 2)
	assert.NotEmpty(t, task.Subtasks[0].ID)
	assert.Equal(t, "fixed", task.Subtasks[1].ID)
}

func TestCompletedAtFollowsStatus(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	p := f.project(t, lead, m1)
	task := f.task(t, lead, &p.ID, m1)
	assert.Nil(t, task.CompletedAt)

	done := f.setStatus(t, m1, task.ID, constants.TaskStatusDone)
	require.NotNil(t, done.CompletedAt)

	again := f.setStatus(t, m1, task.ID, constants.TaskStatusDone)
	assert.Equal(t, *done.CompletedAt, *again.CompletedAt)

	reopened := f.setStatus(t, m1, task.ID, constants.TaskStatusBlocked)
	assert.Nil(t, reopened.CompletedAt)

	_, err := f.tasks.UpdateStatus(f.ctx, m1, task.ID, &dto.UpdateTaskStatusRequest{Status: "Archived"})
	assertKind(t, err, pkgErrors.KindValidationFailed)
}

func TestUpdateStatusPermissions(t *testing.T) {
	for _, global := range []bool{true, false} {
		f := newFixtureWithPolicy(t, policy.Options{LeadGlobalTaskStatus: global})
		lead := f.user(t, "lead", constants.RoleLead)
		otherLead := f.user(t, "other", constants.RoleLead)
		m1 := f.user(t, "m1", constants.RoleMember)
		m2 := f.user(t, "m2", constants.RoleMember)
		p := f.project(t, lead, m1, m2)
		task := f.task(t, lead, &p.ID, m1)

		// 同项目的普通成员不能改别人的任务
		_, err := f.tasks.UpdateStatus(f.ctx, m2, task.ID, &dto.UpdateTaskStatusRequest{Status: constants.TaskStatusInProgress})
		assertKind(t, err, pkgErrors.KindForbidden)

		f.setStatus(t, lead, task.ID, constants.TaskStatusPlanning)

		_, err = f.tasks.UpdateStatus(f.ctx, otherLead, task.ID, &dto.UpdateTaskStatusRequest{Status: constants.TaskStatusInProgress})
		if global {
			assert.NoError(t, err)
		} else {
			assertKind(t, err, pkgErrors.KindForbidden)
		}
	}
}

func TestGuestTaskAccess(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	p1 := f.project(t, lead)
	p2 := f.project(t, lead)
	t1 := f.task(t, lead, &p1.ID, lead)
	t2 := f.task(t, lead, &p2.ID, lead)
	f.task(t, lead, nil, lead)

	guest := guestOf(p1.ID)
	_, err := f.tasks.Get(f.ctx, guest, t1.ID)
	require.NoError(t, err)
	_, err = f.tasks.Get(f.ctx, guest, t2.ID)
	assertKind(t, err, pkgErrors.KindForbidden)

	list, total, err := f.tasks.List(f.ctx, guest, &dto.TaskListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, t1.ID, list[0].ID)

	_, _, err = f.tasks.List(f.ctx, guest, &dto.TaskListQuery{ProjectID: &p2.ID})
	assertKind(t, err, pkgErrors.KindForbidden)

	_, err = f.tasks.UpdateStatus(f.ctx, guest, t1.ID, &dto.UpdateTaskStatusRequest{Status: constants.TaskStatusDone})
	assertKind(t, err, pkgErrors.KindForbidden)
	_, err = f.tasks.Create(f.ctx, guest, &dto.CreateTaskRequest{Title: "x", ProjectID: &p1.ID, AssignedToID: lead.UserID})
	assertKind(t, err, pkgErrors.KindForbidden)
}

func TestListTasksVisibility(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)
	p := f.project(t, lead, m1)
	f.task(t, lead, &p.ID, lead)
	f.task(t, lead, nil, m2)
	f.task(t, m1, nil, m1)

	_, total, err := f.tasks.List(f.ctx, m1, &dto.TaskListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = f.tasks.List(f.ctx, m2, &dto.TaskListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.tasks.List(f.ctx, lead, &dto.TaskListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestUpdateAndToggleSubtask(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	m2 := f.user(t, "m2", constants.RoleMember)
	p := f.project(t, lead, m1, m2)
	task := f.task(t, lead, &p.ID, m1)

	updated, err := f.tasks.Update(f.ctx, m1, task.ID, &dto.UpdateTaskRequest{
		Title:    strPtr("renamed"),
		Priority: strPtr(constants.PriorityHigh),
		Subtasks: []dto.SubtaskInput{{ID: "a", Title: "first"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, constants.PriorityHigh, updated.Priority)

	_, err = f.tasks.Update(f.ctx, m2, task.ID, &dto.UpdateTaskRequest{Title: strPtr("nope")})
	assertKind(t, err, pkgErrors.KindForbidden)

	toggled, err := f.tasks.ToggleSubtask(f.ctx, m1, task.ID, "a")
	require.NoError(t, err)
	assert.True(t, toggled.Subtasks[0].Completed)
	toggled, err = f.tasks.ToggleSubtask(f.ctx, m1, task.ID, "a")
	require.NoError(t, err)
	assert.False(t, toggled.Subtasks[0].Completed)

	_, err = f.tasks.ToggleSubtask(f.ctx, m1, task.ID, "missing")
	assertKind(t, err, pkgErrors.KindNotFound)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	lead := f.user(t, "lead", constants.RoleLead)
	m1 := f.user(t, "m1", constants.RoleMember)
	p := f.project(t, lead, m1)
	task := f.task(t, lead, &p.ID, m1)

	// 被指派人不能删除任务
	assertKind(t, f.tasks.Delete(f.ctx, m1, task.ID), pkgErrors.KindForbidden)
	require.NoError(t, f.tasks.Delete(f.ctx, lead, task.ID))
	assertKind(t, f.tasks.Delete(f.ctx, lead, task.ID), pkgErrors.KindNotFound)
}
