package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/identity"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// MembershipService 加入项目的申请与审批
type MembershipService interface {
	Request(ctx context.Context, p *identity.Principal, projectID int64, req *dto.MembershipRequestCreate) (*dto.MembershipRequestResponse, error)
	// ListPending Admin 看到全部, Lead 只看到自己负责的项目
	ListPending(ctx context.Context, p *identity.Principal) ([]*dto.MembershipRequestResponse, error)
	Decide(ctx context.Context, p *identity.Principal, requestID int64, req *dto.MembershipDecision) (*dto.MembershipRequestResponse, error)
}

type membershipService struct {
	store    *repository.Store
	engine   *policy.Engine
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewMembershipService(store *repository.Store, engine *policy.Engine, notifier Notifier, logger *zap.Logger) MembershipService {
	return &membershipService{
		store:    store,
		engine:   engine,
		notifier: orNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *membershipService) Request(ctx context.Context, p *identity.Principal, projectID int64, req *dto.MembershipRequestCreate) (*dto.MembershipRequestResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	project, err := s.store.Projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "项目不存在")
	}
	hasPending := false
	if _, err := s.store.Memberships.FindPending(ctx, projectID, p.UserID); err == nil {
		hasPending = true
	} else if !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	if err := s.engine.Check(p, policy.RequestMembership{Project: project, HasPending: hasPending}); err != nil {
		return nil, err
	}

	mr := &model.MembershipRequest{
		ProjectID: projectID,
		UserID:    p.UserID,
		Message:   req.Message,
		Status:    constants.MembershipPending,
	}
	if err := s.store.Memberships.Create(ctx, mr); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, mr, project)
}

func (s *membershipService) ListPending(ctx context.Context, p *identity.Principal) ([]*dto.MembershipRequestResponse, error) {
	if err := s.engine.Check(p, policy.ViewMembershipRequests{}); err != nil {
		return nil, err
	}

	var projectIDs []int64
	if !p.IsAdmin() {
		ids, err := s.store.Projects.ListIDsLedBy(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		projectIDs = lo.Ternary(ids == nil, []int64{}, ids)
	}

	reqs, err := s.store.Memberships.ListPending(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	users, err := usersByID(ctx, s.store.Users, lo.Map(reqs, func(r *model.MembershipRequest, _ int) int64 { return r.UserID }))
	if err != nil {
		return nil, err
	}
	projects, _, err := s.store.Projects.List(ctx, repository.ProjectFilter{
		IDs: lo.Uniq(lo.Map(reqs, func(r *model.MembershipRequest, _ int) int64 { return r.ProjectID })),
	})
	if err != nil {
		return nil, err
	}
	names := lo.SliceToMap(projects, func(pr *model.Project) (int64, string) { return pr.ID, pr.Name })

	resp := make([]*dto.MembershipRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		item := toMembershipResponse(r, users[r.UserID])
		item.ProjectName = names[r.ProjectID]
		resp = append(resp, item)
	}
	return resp, nil
}

func (s *membershipService) Decide(ctx context.Context, p *identity.Principal, requestID int64, req *dto.MembershipDecision) (*dto.MembershipRequestResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	mr, err := s.store.Memberships.FindByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "申请不存在")
	}
	project, err := s.store.Projects.FindByID(ctx, mr.ProjectID)
	if err != nil {
		return nil, notFound(err, "项目不存在")
	}
	if err := s.engine.Check(p, policy.ReviewMembership{Project: project}); err != nil {
		return nil, err
	}
	if mr.Status != constants.MembershipPending {
		return nil, pkgErrors.Conflict("申请已被处理").WithDetail("status", mr.Status)
	}

	now := s.now()
	reviewer := p.UserID
	mr.Status = lo.Ternary(req.Approve, constants.MembershipApproved, constants.MembershipRejected)
	mr.ReviewedByID = &reviewer
	mr.ReviewedAt = &now
	if err := s.store.Memberships.Decide(ctx, mr); err != nil {
		return nil, err
	}

	s.logger.Info("处理加入申请",
		zap.Int64("operator", p.UserID),
		zap.Int64("request_id", requestID),
		zap.String("status", mr.Status))

	resp, err := s.toResponse(ctx, mr, project)
	if err != nil {
		return nil, err
	}
	if resp.User != nil {
		verdict := lo.Ternary(req.Approve, "已通过", "未通过")
		s.notifier.Notify(&notification.NotificationMessage{
			Type:    notification.NotifyMembershipDecided,
			To:      []string{resp.User.Email},
			Title:   fmt.Sprintf("加入项目「%s」的申请%s", project.Name, verdict),
			Content: fmt.Sprintf("你加入项目「%s」的申请%s, 审批人: %s。", project.Name, verdict, p.Name),
			Extra:   map[string]interface{}{"project_id": project.ID, "request_id": mr.ID},
		})
	}
	return resp, nil
}

func (s *membershipService) toResponse(ctx context.Context, mr *model.MembershipRequest, project *model.Project) (*dto.MembershipRequestResponse, error) {
	user, err := s.store.Users.FindByID(ctx, mr.UserID)
	if err != nil && !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}
	resp := toMembershipResponse(mr, user)
	resp.ProjectName = project.Name
	return resp, nil
}

func toMembershipResponse(mr *model.MembershipRequest, user *model.User) *dto.MembershipRequestResponse {
	return &dto.MembershipRequestResponse{
		ID:           mr.ID,
		ProjectID:    mr.ProjectID,
		User:         toUserSimple(user),
		Message:      mr.Message,
		Status:       mr.Status,
		ReviewedByID: mr.ReviewedByID,
		ReviewedAt:   mr.ReviewedAt,
		CreatedAt:    mr.CreatedAt,
	}
}
