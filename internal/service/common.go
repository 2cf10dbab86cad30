package service

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	pkgErrors "taskhub/pkg/errors"
	"taskhub/pkg/utils"
)

// Notifier 通知投递, 由 notification.Dispatcher 实现; 调用立即返回
type Notifier interface {
	Notify(msg *notification.NotificationMessage)
}

type nopNotifier struct{}

func (nopNotifier) Notify(*notification.NotificationMessage) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// validate 服务层独立校验入参, 与传输层使用同一套 binding 标签
func validate(req interface{}) error {
	if msg := utils.ValidateStruct(req); msg != "" {
		return pkgErrors.Validation(msg)
	}
	return nil
}

func requireUser(p *identity.Principal) error {
	if p == nil {
		return pkgErrors.ErrUnauthorized
	}
	if p.IsGuest {
		return pkgErrors.ErrGuestNotAllowed
	}
	return nil
}

// notFound 把存储层的"记录不存在"替换成具体的提示
func notFound(err error, msg string) error {
	if pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return pkgErrors.NotFound(msg)
	}
	return err
}

// usersByID 批量加载用户, 缺失的 ID 直接忽略
func usersByID(ctx context.Context, repo repository.UserRepository, ids []int64) (map[int64]*model.User, error) {
	ids = lo.Uniq(lo.Filter(ids, func(id int64, _ int) bool { return id > 0 }))
	if len(ids) == 0 {
		return map[int64]*model.User{}, nil
	}
	users, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(users, func(u *model.User) int64 { return u.ID }), nil
}

// requireUsers 所有 ID 都必须存在
func requireUsers(ctx context.Context, repo repository.UserRepository, ids []int64) (map[int64]*model.User, error) {
	users, err := usersByID(ctx, repo, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, pkgErrors.NotFound("用户不存在").WithDetail("userId", id)
		}
	}
	return users, nil
}

func emailsOf(users map[int64]*model.User, ids ...int64) []string {
	emails := make([]string, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if u, ok := users[id]; ok {
			emails = append(emails, u.Email)
		}
	}
	return emails
}

func toUserSimple(u *model.User) *dto.UserSimpleResponse {
	if u == nil {
		return nil
	}
	return &dto.UserSimpleResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

func toUserResponse(u *model.User) *dto.UserResponse {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return &dto.UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		Skills:        skills,
		HasAccessCode: u.AccessCode != nil && *u.AccessCode != "",
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
	}
}

func toUserInfo(p *identity.Principal) *dto.UserInfo {
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return &dto.UserInfo{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Email:        p.Email,
		Role:         p.Role,
		Skills:       skills,
		ProjectScope: p.ProjectScope,
		IsGuest:      p.IsGuest,
	}
}

func normalizeSkills(skills []string) model.StringList {
	return lo.Uniq(lo.Compact(lo.Map(skills, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
}
