package memory

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type taskRepo struct{ d *db }

func cloneTask(t *model.Task) *model.Task {
	cp := *t
	cp.Description = ptrString(t.Description)
	cp.ProjectID = ptrInt64(t.ProjectID)
	cp.DueDate = ptrTime(t.DueDate)
	cp.CompletedAt = ptrTime(t.CompletedAt)
	cp.Skills = cloneStrings(t.Skills)
	if t.Subtasks != nil {
		cp.Subtasks = append(cp.Subtasks[:0:0], t.Subtasks...)
	}
	return &cp
}

func (r *taskRepo) Create(_ context.Context, task *model.Task) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stamp(&task.BaseModel, r.d.newID("tasks"))
	r.d.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *taskRepo) FindByID(_ context.Context, id int64) (*model.Task, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	t, ok := r.d.tasks[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return cloneTask(t), nil
}

func matchTask(t *model.Task, f repository.TaskFilter) bool {
	if f.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *f.ProjectID) {
		return false
	}
	if f.AssignedToID != nil && t.AssignedToID != *f.AssignedToID {
		return false
	}
	if f.AssignedByID != nil && t.AssignedByID != *f.AssignedByID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.VisibleTo != nil {
		uid := *f.VisibleTo
		inProject := t.ProjectID != nil && lo.Contains(f.VisibleProjectIDs, *t.ProjectID)
		if t.AssignedToID != uid && t.AssignedByID != uid && !inProject {
			return false
		}
	}
	return true
}

func (r *taskRepo) List(_ context.Context, filter repository.TaskFilter) ([]*model.Task, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	tasks := make([]*model.Task, 0)
	for _, t := range r.d.tasks {
		if matchTask(t, filter) {
			tasks = append(tasks, cloneTask(t))
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return newestFirst(tasks[i].BaseModel, tasks[j].BaseModel) })
	return paginate(tasks, filter.Page), int64(len(tasks)), nil
}

func (r *taskRepo) Update(_ context.Context, task *model.Task) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.tasks[task.ID]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	task.UpdatedAt = time.Now()
	updated := cloneTask(task)
	stored.Title = updated.Title
	stored.Description = updated.Description
	stored.Priority = updated.Priority
	stored.DueDate = updated.DueDate
	stored.Skills = updated.Skills
	stored.Subtasks = updated.Subtasks
	stored.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *taskRepo) UpdateStatus(_ context.Context, task *model.Task, from string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.tasks[task.ID]
	if !ok || stored.Status != from {
		return pkgErrors.ErrStatusConflict
	}
	task.UpdatedAt = time.Now()
	stored.Status = task.Status
	stored.CompletedAt = ptrTime(task.CompletedAt)
	stored.UpdatedAt = task.UpdatedAt
	return nil
}

func (r *taskRepo) Reassign(_ context.Context, id, from, to int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.tasks[id]
	if !ok || stored.AssignedToID != from {
		return pkgErrors.ErrStatusConflict
	}
	stored.AssignedToID = to
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.tasks[id]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	delete(r.d.tasks, id)
	return nil
}

func (r *taskRepo) Stats(_ context.Context, projectID int64) (repository.TaskStats, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return (&projectRepo{r.d}).stats(projectID), nil
}

func (r *taskRepo) StatsByProjects(_ context.Context, projectIDs []int64) (map[int64]repository.TaskStats, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	stats := make(map[int64]repository.TaskStats, len(projectIDs))
	for _, t := range r.d.tasks {
		if t.ProjectID == nil || !lo.Contains(projectIDs, *t.ProjectID) {
			continue
		}
		s := stats[*t.ProjectID]
		s.Total++
		if isDone(t.Status) {
			s.Done++
		}
		if t.Status == constants.TaskStatusTodo {
			s.Todo++
		}
		stats[*t.ProjectID] = s
	}
	return stats, nil
}

func (r *taskRepo) CountAssignedTo(_ context.Context, userID int64) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var n int64
	for _, t := range r.d.tasks {
		if t.AssignedToID == userID {
			n++
		}
	}
	return n, nil
}
