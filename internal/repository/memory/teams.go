package memory

import (
	"context"
	"sort"
	"time"

	"taskhub/internal/model"
	pkgErrors "taskhub/pkg/errors"
)

type teamRepo struct{ d *db }

func (r *teamRepo) load(t *model.Team) *model.Team {
	cp := *t
	cp.Description = ptrString(t.Description)
	cp.LeaderID = ptrInt64(t.LeaderID)
	members := r.d.teamMembers[t.ID]
	cp.Members = make([]model.TeamMember, 0, len(members))
	for _, uid := range sortedKeys(members) {
		cp.Members = append(cp.Members, model.TeamMember{TeamID: t.ID, UserID: uid, CreatedAt: members[uid]})
	}
	return &cp
}

func (r *teamRepo) nameTaken(name string, exceptID int64) bool {
	for _, t := range r.d.teams {
		if t.ID != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

func (r *teamRepo) Create(_ context.Context, team *model.Team) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if r.nameTaken(team.Name, 0) {
		return duplicate("团队名称已存在")
	}
	stamp(&team.BaseModel, r.d.newID("teams"))
	stored := *team
	stored.Members = nil
	stored.Description = ptrString(team.Description)
	stored.LeaderID = ptrInt64(team.LeaderID)
	r.d.teams[team.ID] = &stored

	members := make(map[int64]time.Time, len(team.Members))
	for i := range team.Members {
		team.Members[i].TeamID = team.ID
		team.Members[i].CreatedAt = team.CreatedAt
		members[team.Members[i].UserID] = team.CreatedAt
	}
	r.d.teamMembers[team.ID] = members
	return nil
}

func (r *teamRepo) FindByID(_ context.Context, id int64) (*model.Team, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	t, ok := r.d.teams[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return r.load(t), nil
}

func (r *teamRepo) FindByName(_ context.Context, name string) (*model.Team, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, t := range r.d.teams {
		if t.Name == name {
			return r.load(t), nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *teamRepo) List(_ context.Context, keyword string) ([]*model.Team, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	teams := make([]*model.Team, 0, len(r.d.teams))
	for _, t := range r.d.teams {
		if keyword != "" && !contains(t.Name, keyword) {
			continue
		}
		teams = append(teams, r.load(t))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (r *teamRepo) Update(_ context.Context, team *model.Team) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.teams[team.ID]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	if r.nameTaken(team.Name, team.ID) {
		return duplicate("团队名称已存在")
	}
	team.UpdatedAt = time.Now()
	stored.Name = team.Name
	stored.Description = ptrString(team.Description)
	stored.LeaderID = ptrInt64(team.LeaderID)
	stored.UpdatedAt = team.UpdatedAt
	return nil
}

func (r *teamRepo) Delete(_ context.Context, id int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.teams[id]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	delete(r.d.teams, id)
	delete(r.d.teamMembers, id)
	return nil
}

func (r *teamRepo) AddMember(_ context.Context, teamID, userID int64) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.teams[teamID]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	members := r.d.teamMembers[teamID]
	if members == nil {
		members = make(map[int64]time.Time)
		r.d.teamMembers[teamID] = members
	}
	if _, ok := members[userID]; !ok {
		members[userID] = time.Now()
	}
	return nil
}

func (r *teamRepo) RemoveMember(_ context.Context, teamID, userID int64) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	members := r.d.teamMembers[teamID]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}
