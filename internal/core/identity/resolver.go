package identity

import (
	"context"

	"go.uber.org/zap"

	"taskhub/internal/pkg/jwt"
	"taskhub/internal/repository"
	pkgErrors "taskhub/pkg/errors"
)

// Resolver 令牌 -> Principal, 只读, 不修改存储
type Resolver struct {
	creds  jwt.Service
	users  repository.UserRepository
	logger *zap.Logger
}

func NewResolver(creds jwt.Service, users repository.UserRepository, logger *zap.Logger) *Resolver {
	return &Resolver{creds: creds, users: users, logger: logger}
}

// Resolve 任何校验失败都返回 Unauthenticated
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, ok := r.creds.Verify(token)
	if !ok {
		return nil, pkgErrors.ErrUnauthorized
	}

	if claims.Guest {
		if claims.ProjectID == nil {
			return nil, pkgErrors.ErrInvalidToken
		}
		scope := *claims.ProjectID
		return &Principal{
			ID:           guestPrincipalID(claims.ID),
			Name:         claims.Email,
			Email:        claims.Email,
			Role:         claims.Role,
			Skills:       []string{},
			ProjectScope: &scope,
			IsGuest:      true,
		}, nil
	}

	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.ErrUnauthorized
		}
		r.logger.Error("加载用户失败", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	skills := []string(user.Skills)
	if skills == nil {
		skills = []string{}
	}
	// 角色以存储为准, 令牌签发后被调整的角色立即生效
	return &Principal{
		ID:     userPrincipalID(user.ID),
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Skills: skills,
	}, nil
}
