package memory

import (
	"context"
	"sort"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type userRepo struct{ d *db }

func cloneUser(u *model.User) *model.User {
	cp := *u
	cp.Skills = cloneStrings(u.Skills)
	cp.AccessCode = ptrString(u.AccessCode)
	cp.LastLoginAt = ptrTime(u.LastLoginAt)
	return &cp
}

// 调用方需持有锁
func (r *userRepo) conflicts(u *model.User) error {
	for _, other := range r.d.users {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email {
			return duplicate("邮箱已被使用")
		}
		if u.AccessCode != nil && other.AccessCode != nil && *other.AccessCode == *u.AccessCode {
			return duplicate("访问码已被使用")
		}
	}
	return nil
}

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	user.Email = constants.NormalizeEmail(user.Email)
	if err := r.conflicts(user); err != nil {
		return err
	}
	stamp(&user.BaseModel, r.d.newID("users"))
	r.d.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	u, ok := r.d.users[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	email = constants.NormalizeEmail(email)
	for _, u := range r.d.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *userRepo) FindByAccessCode(_ context.Context, code string) (*model.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	code = constants.NormalizeCode(code)
	for _, u := range r.d.users {
		if u.AccessCode != nil && *u.AccessCode == code {
			return cloneUser(u), nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *userRepo) FindByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.d.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]*model.User, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	users := make([]*model.User, 0)
	for _, u := range r.d.users {
		if filter.Keyword != "" && !contains(u.Name, filter.Keyword) && !contains(u.Email, filter.Keyword) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		users = append(users, cloneUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return paginate(users, filter.Page), int64(len(users)), nil
}

func (r *userRepo) Update(_ context.Context, user *model.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.users[user.ID]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	if err := r.conflicts(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	stored.Name = user.Name
	stored.Skills = cloneStrings(user.Skills)
	stored.Password = user.Password
	stored.AccessCode = ptrString(user.AccessCode)
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *userRepo) adminCount() int64 {
	var n int64
	for _, u := range r.d.users {
		if u.Role == constants.RoleAdmin {
			n++
		}
	}
	return n
}

func (r *userRepo) UpdateRole(_ context.Context, id int64, from, to string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if to == constants.RoleMember {
		if led := r.references(id).LedProjects; led > 0 {
			return pkgErrors.Conflict("用户仍是项目负责人，请先更换负责人").WithDetail("ledProjects", led)
		}
	}
	if from == constants.RoleAdmin && to != constants.RoleAdmin {
		if n := r.adminCount(); n <= 1 {
			return pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", n)
		}
	}
	u, ok := r.d.users[id]
	if !ok || u.Role != from {
		return pkgErrors.ErrStatusConflict
	}
	u.Role = to
	u.UpdatedAt = time.Now()
	return nil
}

func (r *userRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if u, ok := r.d.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return int64(len(r.d.users)), nil
}

func (r *userRepo) CountByRole(_ context.Context, role string) (int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var n int64
	for _, u := range r.d.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *userRepo) references(id int64) repository.UserReferences {
	var refs repository.UserReferences
	for _, t := range r.d.tasks {
		if t.AssignedToID == id {
			refs.AssignedTasks++
		} else if t.AssignedByID == id {
			refs.AssignedByTasks++
		}
	}
	for _, p := range r.d.projects {
		if p.LeadID == id {
			refs.LedProjects++
		}
	}
	for _, members := range r.d.projectMembers {
		if _, ok := members[id]; ok {
			refs.MemberProjects++
		}
	}
	return refs
}

func (r *userRepo) References(_ context.Context, id int64) (repository.UserReferences, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()
	return r.references(id), nil
}

func (r *userRepo) Delete(_ context.Context, id int64) (repository.UserUnlinkResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var result repository.UserUnlinkResult
	u, ok := r.d.users[id]
	if !ok {
		return result, pkgErrors.ErrRecordNotFound
	}
	if r.references(id).Blocking() {
		return result, pkgErrors.ErrStatusConflict
	}
	if u.Role == constants.RoleAdmin {
		if n := r.adminCount(); n <= 1 {
			return result, pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", n)
		}
	}

	for _, members := range r.d.teamMembers {
		if _, ok := members[id]; ok {
			delete(members, id)
			result.TeamMemberships++
		}
	}
	for _, team := range r.d.teams {
		if team.LeaderID != nil && *team.LeaderID == id {
			team.LeaderID = nil
			result.TeamsLed++
		}
	}
	for _, access := range r.d.secretAccess {
		if _, ok := access[id]; ok {
			delete(access, id)
			result.SecretGrants++
		}
	}
	for reqID, req := range r.d.memberships {
		if req.UserID == id {
			delete(r.d.memberships, reqID)
			result.MembershipRequests++
		}
	}
	delete(r.d.users, id)
	return result, nil
}
