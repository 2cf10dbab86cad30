package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func TestTaskUpdateStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	task := seedTask(t, s, nil, lead, lead, constants.TaskStatusTodo)
	stale := *task

	task.Status = constants.TaskStatusInProgress
	require.NoError(t, s.Tasks.UpdateStatus(ctx, task, constants.TaskStatusTodo))

	now := time.Now()
	stale.Status = constants.TaskStatusDone
	stale.CompletedAt = &now
	assertKind(t, s.Tasks.UpdateStatus(ctx, &stale, constants.TaskStatusTodo), pkgErrors.KindConflict)

	got, err := s.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestTaskReassignCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	m1 := seedUser(t, s, "m1", constants.RoleMember)
	m2 := seedUser(t, s, "m2", constants.RoleMember)
	task := seedTask(t, s, nil, m1, lead, constants.TaskStatusTodo)

	require.NoError(t, s.Tasks.Reassign(ctx, task.ID, m1.ID, m2.ID))
	assertKind(t, s.Tasks.Reassign(ctx, task.ID, m1.ID, lead.ID), pkgErrors.KindConflict)

	got, err := s.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, m2.ID, got.AssignedToID)

	n, err := s.Tasks.CountAssignedTo(ctx, m1.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Tasks.Delete(ctx, task.ID))
	assertKind(t, s.Tasks.Delete(ctx, task.ID), pkgErrors.KindNotFound)
}

func TestTaskStatsByProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	lead := seedUser(t, s, "lead", constants.RoleLead)
	p1 := seedProject(t, s, lead)
	p2 := seedProject(t, s, lead)
	p3 := seedProject(t, s, lead)

	seedTask(t, s, &p1.ID, lead, lead, constants.TaskStatusDone)
	seedTask(t, s, &p1.ID, lead, lead, constants.TaskStatusTodo)
	seedTask(t, s, &p1.ID, lead, lead, constants.TaskStatusBlocked)
	seedTask(t, s, &p2.ID, lead, lead, constants.TaskStatusDone)
	seedTask(t, s, nil, lead, lead, constants.TaskStatusTodo)

	stats, err := s.Tasks.StatsByProjects(ctx, []int64{p1.ID, p2.ID, p3.ID})
	require.NoError(t, err)
	assert.Equal(t, TaskStats{Total: 3, Done: 1, Todo: 1}, stats[p1.ID])
	assert.Equal(t, TaskStats{Total: 1, Done: 1}, stats[p2.ID])
	assert.Equal(t, TaskStats{}, stats[p3.ID])

	single, err := s.Tasks.Stats(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), single.Pending())
}
