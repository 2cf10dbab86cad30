package memory

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type membershipRepo struct{ d *db }

func cloneRequest(req *model.MembershipRequest) *model.MembershipRequest {
	cp := *req
	cp.Message = ptrString(req.Message)
	cp.ReviewedByID = ptrInt64(req.ReviewedByID)
	cp.ReviewedAt = ptrTime(req.ReviewedAt)
	return &cp
}

func (r *membershipRepo) Create(_ context.Context, req *model.MembershipRequest) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stamp(&req.BaseModel, r.d.newID("membership_requests"))
	r.d.memberships[req.ID] = cloneRequest(req)
	return nil
}

func (r *membershipRepo) FindByID(_ context.Context, id int64) (*model.MembershipRequest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	req, ok := r.d.memberships[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return cloneRequest(req), nil
}

func (r *membershipRepo) FindPending(_ context.Context, projectID, userID int64) (*model.MembershipRequest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, req := range r.d.memberships {
		if req.ProjectID == projectID && req.UserID == userID && req.Status == constants.MembershipPending {
			return cloneRequest(req), nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *membershipRepo) ListPending(_ context.Context, projectIDs []int64) ([]*model.MembershipRequest, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	reqs := make([]*model.MembershipRequest, 0)
	for _, req := range r.d.memberships {
		if req.Status != constants.MembershipPending {
			continue
		}
		if projectIDs != nil && !lo.Contains(projectIDs, req.ProjectID) {
			continue
		}
		reqs = append(reqs, cloneRequest(req))
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].ID < reqs[j].ID
		}
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func (r *membershipRepo) Decide(_ context.Context, req *model.MembershipRequest) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.memberships[req.ID]
	if !ok {
		return pkgErrors.ErrRecordNotFound
	}
	if stored.Status != constants.MembershipPending {
		return pkgErrors.Conflict("申请已被处理")
	}
	if req.Status == constants.MembershipApproved {
		p, ok := r.d.projects[stored.ProjectID]
		if !ok {
			return pkgErrors.ErrRecordNotFound
		}
		if p.IsClosed() {
			return pkgErrors.Conflict("项目已关闭，无法加入")
		}
		members := r.d.projectMembers[p.ID]
		if members == nil {
			members = make(map[int64]time.Time)
			r.d.projectMembers[p.ID] = members
		}
		if _, ok := members[stored.UserID]; !ok {
			members[stored.UserID] = time.Now()
		}
	}
	stored.Status = req.Status
	stored.ReviewedByID = ptrInt64(req.ReviewedByID)
	stored.ReviewedAt = ptrTime(req.ReviewedAt)
	stored.UpdatedAt = time.Now()
	return nil
}
