package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/dto"
	"taskhub/internal/pkg/config"
	"taskhub/internal/pkg/jwt"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// GuestService 访客码兑换
type GuestService interface {
	// Redeem 校验访客码并签发只能访问对应项目的访客令牌; 访客不会写入用户表
	Redeem(ctx context.Context, req *dto.GuestRedeemRequest) (*dto.LoginResponse, error)
}

type guestService struct {
	jwtCfg    *config.JWTConfig
	singleUse bool
	tokens    repository.AccessTokenRepository
	projects  repository.ProjectRepository
	creds     jwt.Service
	logger    *zap.Logger
	now       func() time.Time
}

func NewGuestService(
	jwtCfg *config.JWTConfig,
	policyCfg *config.PolicyConfig,
	store *repository.Store,
	creds jwt.Service,
	logger *zap.Logger,
) GuestService {
	return &guestService{
		jwtCfg:    jwtCfg,
		singleUse: policyCfg.GuestSingleUse,
		tokens:    store.AccessTokens,
		projects:  store.Projects,
		creds:     creds,
		logger:    logger,
		now:       time.Now,
	}
}

var errInvalidGuestCode = pkgErrors.Unauthenticated("访客码无效或已失效")

func (s *guestService) Redeem(ctx context.Context, req *dto.GuestRedeemRequest) (*dto.LoginResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	code := constants.NormalizeCode(req.Code)
	if code == "" {
		return nil, pkgErrors.Validation("访客码不能为空")
	}

	token, err := s.tokens.FindByToken(ctx, code)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, errInvalidGuestCode
		}
		return nil, err
	}

	now := s.now()
	if !token.IsActive {
		return nil, errInvalidGuestCode
	}
	if token.Expired(now) {
		return nil, pkgErrors.Unauthenticated("访客码已过期")
	}

	if _, err := s.projects.FindByID(ctx, token.ProjectID); err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, errInvalidGuestCode
		}
		return nil, err
	}

	// 单次使用模式下并发兑换只有一个能成功
	if err := s.tokens.MarkUsed(ctx, token.ID, now, s.singleUse); err != nil {
		if pkgErrors.Is(err, pkgErrors.KindConflict) {
			return nil, errInvalidGuestCode
		}
		return nil, err
	}

	tokenID := strconv.FormatInt(token.ID, 10)
	projectID := token.ProjectID
	claims := jwt.Claims{
		Email:     token.Email,
		Role:      constants.RoleMember,
		ProjectID: &projectID,
		Guest:     true,
	}
	claims.ID = tokenID
	claims.Subject = constants.GuestIDPrefix + tokenID

	signed, err := s.creds.Issue(claims, s.jwtCfg.GuestTTL())
	if err != nil {
		return nil, pkgErrors.Internal("生成Token失败", err)
	}

	s.logger.Info("访客登录",
		zap.Int64("token_id", token.ID),
		zap.Int64("project_id", projectID),
		zap.String("email", token.Email))

	return &dto.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   s.jwtCfg.GuestTokenExpire,
		User: &dto.UserInfo{
			ID:           claims.Subject,
			Name:         token.Email,
			Email:        token.Email,
			Role:         constants.RoleMember,
			Skills:       []string{},
			ProjectScope: &projectID,
			IsGuest:      true,
		},
	}, nil
}
