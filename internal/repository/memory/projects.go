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

type projectRepo struct{ d *db }

// 调用方需持有锁
func (r *projectRepo) load(p *model.Project) *model.Project {
	cp := *p
	cp.Description = ptrString(p.Description)
	cp.StartDate = ptrTime(p.StartDate)
	cp.EndDate = ptrTime(p.EndDate)
	cp.ClosedAt = ptrTime(p.ClosedAt)
	cp.ClosedByID = ptrInt64(p.ClosedByID)
	members := r.d.projectMembers[p.ID]
	cp.Members = make([]model.ProjectMember, 0, len(members))
	for _, uid := range sortedKeys(members) {
		cp.Members = append(cp.Members, model.ProjectMember{ProjectID: p.ID, UserID: uid, CreatedAt: members[uid]})
	}
	return &cp
}

func (r *projectRepo) Create(_ context.Context, project *model.Project) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stamp(&project.BaseModel, r.d.newID("projects"))
	stored := *project
	stored.Members = nil
	stored.Description = ptrString(project.Description)
	stored.StartDate = ptrTime(project.StartDate)
	stored.EndDate = ptrTime(project.EndDate)
	r.d.projects[project.ID] = &stored

	members := make(map[int64]time.Time, len(project.Members))
	for i := range project.Members {
		project.Members[i].ProjectID = project.ID
		project.Members[i].CreatedAt = project.CreatedAt
		members[project.Members[i].UserID] = project.CreatedAt
	}
	r.d.projectMembers[project.ID] = members
	return nil
}

func (r *projectRepo) FindByID(_ context.Context, id int64) (*model.Project, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	p, ok := r.d.projects[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return r.load(p), nil
}

func (r *projectRepo) visibleTo(p *model.Project, userID int64) bool {
	if p.LeadID == userID {
		return true
	}
	_, ok := r.d.projectMembers[p.ID][userID]
	return ok
}

func (r *projectRepo) List(_ context.Context, filter repository.ProjectFilter) ([]*model.Project, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	projects := make([]*model.Project, 0)
	for _, p := range r.d.projects {
		if filter.VisibleTo != nil && !r.visibleTo(p, *filter.VisibleTo) {
			continue
		}
		if filter.IDs != nil && !lo.Contains(filter.IDs, p.ID) {
			continue
		}
		if filter.LeadID != nil && p.LeadID != *filter.LeadID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Keyword != "" && !contains(p.Name, filter.Keyword) &&
			(p.Description == nil || !contains(*p.Description, filter.Keyword)) {
			continue
		}
		projects = append(projects, r.load(p))
	}
	sort.Slice(projects, func(i, j int) bool { return newestFirst(projects[i].BaseModel, projects[j].BaseModel) })
	return paginate(projects, filter.Page), int64(len(projects)), nil
}

func (r *projectRepo) Update(_ context.Context, project *model.Project) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.projects[project.ID]
	if !ok || stored.IsClosed() {
		return pkgErrors.Conflict("项目已关闭，无法修改")
	}
	project.UpdatedAt = time.Now()
	stored.Name = project.Name
	stored.Description = ptrString(project.Description)
	stored.Status = project.Status
	stored.Priority = project.Priority
	stored.StartDate = ptrTime(project.StartDate)
	stored.EndDate = ptrTime(project.EndDate)
	stored.UpdatedAt = project.UpdatedAt
	return nil
}

func (r *projectRepo) ChangeLead(_ context.Context, id, from, to int64) (*model.Project, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	lead, ok := r.d.users[to]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	if lead.Role == constants.RoleMember {
		return nil, pkgErrors.Conflict("Member 不能担任项目负责人").WithDetail("role", lead.Role)
	}
	p, ok := r.d.projects[id]
	if !ok || p.LeadID != from || p.IsClosed() {
		return nil, pkgErrors.ErrStatusConflict
	}
	p.LeadID = to
	p.UpdatedAt = time.Now()
	return r.load(p), nil
}

func (r *projectRepo) AddMember(_ context.Context, projectID, userID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.projects[projectID]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	members := r.d.projectMembers[projectID]
	if members == nil {
		members = make(map[int64]time.Time)
		r.d.projectMembers[projectID] = members
	}
	if _, ok := members[userID]; !ok {
		members[userID] = time.Now()
	}
	return nil
}

func (r *projectRepo) RemoveMember(_ context.Context, projectID, userID int64) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	members := r.d.projectMembers[projectID]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (r *projectRepo) stats(projectID int64) repository.TaskStats {
	var stats repository.TaskStats
	for _, t := range r.d.tasks {
		if t.ProjectID != nil && *t.ProjectID == projectID {
			stats.Total++
			if isDone(t.Status) {
				stats.Done++
			}
		}
	}
	return stats
}

func (r *projectRepo) Close(_ context.Context, id, actorID int64, at time.Time) (*model.Project, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.projects[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	if p.IsClosed() {
		return nil, pkgErrors.Conflict("项目已关闭")
	}
	stats := r.stats(id)
	if stats.Total == 0 || stats.Pending() > 0 {
		return nil, pkgErrors.Conflict("项目仍有未完成的任务").
			WithDetail("totalTasks", stats.Total).
			WithDetail("pendingTasks", stats.Pending())
	}

	closedAt := at
	closedBy := actorID
	p.Status = constants.ProjectStatusClosed
	p.ClosedAt = &closedAt
	p.ClosedByID = &closedBy
	p.Progress = 100
	p.UpdatedAt = at
	return r.load(p), nil
}

func (r *projectRepo) DeleteClosed(_ context.Context, id int64) (repository.ProjectDeleteResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var result repository.ProjectDeleteResult
	p, ok := r.d.projects[id]
	if !ok {
		return result, pkgErrors.ErrRecordNotFound
	}
	if !p.IsClosed() {
		return result, pkgErrors.Conflict("只能删除已关闭的项目").WithDetail("status", p.Status)
	}

	for tid, t := range r.d.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			delete(r.d.tasks, tid)
			result.Tasks++
		}
	}
	for tid, t := range r.d.accessTokens {
		if t.ProjectID == id {
			delete(r.d.accessTokens, tid)
			result.AccessTokens++
		}
	}
	for rid, req := range r.d.memberships {
		if req.ProjectID == id {
			delete(r.d.memberships, rid)
			result.MembershipRequests++
		}
	}
	result.Members = int64(len(r.d.projectMembers[id]))
	delete(r.d.projectMembers, id)
	delete(r.d.projects, id)
	return result, nil
}

func (r *projectRepo) ListIDsForUser(_ context.Context, userID int64) ([]int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	ids := make([]int64, 0)
	for _, p := range r.d.projects {
		if r.visibleTo(p, userID) {
			ids = append(ids, p.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *projectRepo) ListIDsLedBy(_ context.Context, userID int64) ([]int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	ids := make([]int64, 0)
	for _, p := range r.d.projects {
		if p.LeadID == userID {
			ids = append(ids, p.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
