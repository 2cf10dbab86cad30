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
	"taskhub/internal/pkg/crypto"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// AccessTokenService 项目访客码管理
type AccessTokenService interface {
	// Create 签发访客码并通过邮件发送给访客
	Create(ctx context.Context, p *identity.Principal, projectID int64, req *dto.CreateAccessTokenRequest) (*dto.AccessTokenResponse, error)
	List(ctx context.Context, p *identity.Principal, projectID int64) ([]*dto.AccessTokenResponse, error)
	Deactivate(ctx context.Context, p *identity.Principal, projectID, tokenID int64) error
	// CleanupExpired 停用已过期的访客码, 供定时任务调用
	CleanupExpired(ctx context.Context) (int64, error)
}

type accessTokenService struct {
	tokens   repository.AccessTokenRepository
	projects repository.ProjectRepository
	engine   *policy.Engine
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccessTokenService(store *repository.Store, engine *policy.Engine, notifier Notifier, logger *zap.Logger) AccessTokenService {
	return &accessTokenService{
		tokens:   store.AccessTokens,
		projects: store.Projects,
		engine:   engine,
		notifier: orNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *accessTokenService) Create(ctx context.Context, p *identity.Principal, projectID int64, req *dto.CreateAccessTokenRequest) (*dto.AccessTokenResponse, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "项目不存在")
	}
	if err := s.engine.Check(p, policy.ManageAccessTokens{Project: project, Issue: true}); err != nil {
		return nil, err
	}
	req.Email = constants.NormalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, pkgErrors.Validation("过期时间必须晚于当前时间")
	}

	display := crypto.NewAccessCode()
	token := &model.ProjectAccessToken{
		ProjectID:   projectID,
		Email:       req.Email,
		Token:       constants.NormalizeCode(display),
		ExpiresAt:   req.ExpiresAt,
		IsActive:    true,
		CreatedByID: p.UserID,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, err
	}

	s.logger.Info("签发访客码",
		zap.Int64("operator", p.UserID),
		zap.Int64("project_id", projectID),
		zap.Int64("token_id", token.ID),
		zap.String("email", token.Email))

	content := fmt.Sprintf("你被邀请以访客身份查看项目「%s」。\n访客码: %s", project.Name, display)
	if token.ExpiresAt != nil {
		content += fmt.Sprintf("\n有效期至: %s", token.ExpiresAt.Format("2006-01-02 15:04"))
	}
	s.notifier.Notify(&notification.NotificationMessage{
		Type:    notification.NotifyAccessTokenIssued,
		To:      []string{token.Email},
		Title:   fmt.Sprintf("项目「%s」访客邀请", project.Name),
		Content: content,
		Extra:   map[string]interface{}{"project_id": projectID},
	})

	return toAccessTokenResponse(token), nil
}

func (s *accessTokenService) List(ctx context.Context, p *identity.Principal, projectID int64) ([]*dto.AccessTokenResponse, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "项目不存在")
	}
	if err := s.engine.Check(p, policy.ManageAccessTokens{Project: project}); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return lo.Map(tokens, func(t *model.ProjectAccessToken, _ int) *dto.AccessTokenResponse {
		return toAccessTokenResponse(t)
	}), nil
}

func (s *accessTokenService) Deactivate(ctx context.Context, p *identity.Principal, projectID, tokenID int64) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return notFound(err, "项目不存在")
	}
	if err := s.engine.Check(p, policy.ManageAccessTokens{Project: project}); err != nil {
		return err
	}

	token, err := s.tokens.FindByID(ctx, tokenID)
	if err != nil || token.ProjectID != projectID {
		if err != nil && !pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return err
		}
		return pkgErrors.NotFound("访客码不存在")
	}
	if !token.IsActive {
		return nil
	}
	return s.tokens.Deactivate(ctx, tokenID)
}

func (s *accessTokenService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("停用过期访客码", zap.Int64("count", n))
	}
	return n, nil
}

func toAccessTokenResponse(t *model.ProjectAccessToken) *dto.AccessTokenResponse {
	return &dto.AccessTokenResponse{
		ID:        t.ID,
		ProjectID: t.ProjectID,
		Email:     t.Email,
		Token:     t.Token,
		ExpiresAt: t.ExpiresAt,
		UsedAt:    t.UsedAt,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	}
}
