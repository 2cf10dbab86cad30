package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/core/identity"
	"taskhub/internal/core/lifecycle"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/pkg/crypto"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type UserService interface {
	List(ctx context.Context, p *identity.Principal, req *dto.UserSearchQuery) ([]*dto.UserResponse, int64, error)
	Get(ctx context.Context, p *identity.Principal, id int64) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	// ChangeAccessCode 设置本人的登录访问码
	ChangeAccessCode(ctx context.Context, p *identity.Principal, req *dto.ChangeAccessCodeRequest) error
	// GenerateAccessCode 随机生成并设置本人的访问码, 返回明文
	GenerateAccessCode(ctx context.Context, p *identity.Principal) (string, error)
	ChangeRole(ctx context.Context, p *identity.Principal, id int64, req *dto.ChangeRoleRequest) (*dto.UserResponse, error)
	// Delete 仍被任务/项目引用时拒绝, 只解除团队/密码条目/申请等组织关联
	Delete(ctx context.Context, p *identity.Principal, id int64) (*dto.DeleteUserResponse, error)
	ListRoles() []string
}

type userService struct {
	store  *repository.Store
	engine *policy.Engine
	logger *zap.Logger
}

func NewUserService(store *repository.Store, engine *policy.Engine, logger *zap.Logger) UserService {
	return &userService{store: store, engine: engine, logger: logger}
}

func (s *userService) List(ctx context.Context, p *identity.Principal, req *dto.UserSearchQuery) ([]*dto.UserResponse, int64, error) {
	if err := s.engine.Check(p, policy.ListUsers{}); err != nil {
		return nil, 0, err
	}
	if err := validate(req); err != nil {
		return nil, 0, err
	}

	users, total, err := s.store.Users.List(ctx, repository.UserFilter{
		Keyword: strings.TrimSpace(req.Keyword),
		Role:    req.Role,
		Page:    repository.Page{Page: req.GetPage(), PageSize: req.GetPageSize()},
	})
	if err != nil {
		return nil, 0, err
	}

	resp := make([]*dto.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	return resp, total, nil
}

func (s *userService) Get(ctx context.Context, p *identity.Principal, id int64) (*dto.UserResponse, error) {
	if err := s.engine.Check(p, policy.ViewUser{TargetID: id}); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户不存在")
	}
	return toUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := s.engine.Check(p, policy.UpdateProfile{TargetID: id}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户不存在")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgErrors.Validation("名称不能为空")
		}
		user.Name = name
	}
	if req.Skills != nil {
		user.Skills = normalizeSkills(req.Skills)
	}

	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) ChangeAccessCode(ctx context.Context, p *identity.Principal, req *dto.ChangeAccessCodeRequest) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := validate(req); err != nil {
		return err
	}
	return s.setAccessCode(ctx, p, constants.NormalizeCode(req.Code))
}

func (s *userService) GenerateAccessCode(ctx context.Context, p *identity.Principal) (string, error) {
	if err := requireUser(p); err != nil {
		return "", err
	}
	code := crypto.NewAccessCode()
	if err := s.setAccessCode(ctx, p, constants.NormalizeCode(code)); err != nil {
		return "", err
	}
	return code, nil
}

func (s *userService) setAccessCode(ctx context.Context, p *identity.Principal, code string) error {
	var holderID int64
	if code != "" {
		holder, err := s.store.Users.FindByAccessCode(ctx, code)
		switch {
		case err == nil:
			holderID = holder.ID
		case !pkgErrors.Is(err, pkgErrors.KindNotFound):
			return err
		}
	}

	if err := s.engine.Check(p, policy.ChangeAccessCode{OwnerID: p.UserID, Code: code, HolderID: holderID}); err != nil {
		return err
	}

	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	user.AccessCode = &code
	// 唯一索引兜底并发设置相同访问码的情况
	return s.store.Users.Update(ctx, user)
}

func (s *userService) ChangeRole(ctx context.Context, p *identity.Principal, id int64, req *dto.ChangeRoleRequest) (*dto.UserResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	target, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户不存在")
	}
	adminCount, err := s.store.Users.CountByRole(ctx, constants.RoleAdmin)
	if err != nil {
		return nil, err
	}
	led, err := s.store.Projects.ListIDsLedBy(ctx, id)
	if err != nil {
		return nil, err
	}

	action := policy.ChangeRole{
		Target:      target,
		NewRole:     req.Role,
		AdminCount:  adminCount,
		LedProjects: int64(len(led)),
	}
	if err := s.engine.Check(p, action); err != nil {
		return nil, err
	}
	if target.Role == req.Role {
		return toUserResponse(target), nil
	}

	if err := s.store.Users.UpdateRole(ctx, id, target.Role, req.Role); err != nil {
		return nil, err
	}

	s.logger.Info("修改用户角色",
		zap.Int64("operator", p.UserID),
		zap.Int64("user_id", id),
		zap.String("from", target.Role),
		zap.String("to", req.Role))

	target.Role = req.Role
	return toUserResponse(target), nil
}

func (s *userService) Delete(ctx context.Context, p *identity.Principal, id int64) (*dto.DeleteUserResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	target, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户不存在")
	}
	refs, err := s.store.Users.References(ctx, id)
	if err != nil {
		return nil, err
	}
	adminCount, err := s.store.Users.CountByRole(ctx, constants.RoleAdmin)
	if err != nil {
		return nil, err
	}

	action := policy.RemoveUser{
		Target: target,
		References: lifecycle.References{
			AssignedTasks:   refs.AssignedTasks,
			AssignedByTasks: refs.AssignedByTasks,
			LedProjects:     refs.LedProjects,
			MemberProjects:  refs.MemberProjects,
		},
		AdminCount: adminCount,
	}
	if err := s.engine.Check(p, action); err != nil {
		return nil, err
	}

	result, err := s.store.Users.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("删除用户",
		zap.Int64("operator", p.UserID),
		zap.Int64("user_id", id),
		zap.Any("unlinked", result))

	return &dto.DeleteUserResponse{
		TeamMemberships:    result.TeamMemberships,
		TeamsLed:           result.TeamsLed,
		SecretGrants:       result.SecretGrants,
		MembershipRequests: result.MembershipRequests,
	}, nil
}

func (s *userService) ListRoles() []string {
	// 按固定顺序返回
	return append([]string(nil), constants.Roles...)
}
