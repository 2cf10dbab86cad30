package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"taskhub/internal/core/identity"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/pkg/auth"
	"taskhub/internal/repository"
	pkgErrors "taskhub/pkg/errors"
)

// SecretService 共享密码条目, 只有管理员可以维护
type SecretService interface {
	Create(ctx context.Context, p *identity.Principal, req *dto.SecretRequest) (*dto.SecretResponse, error)
	Get(ctx context.Context, p *identity.Principal, id int64) (*dto.SecretResponse, error)
	// List 管理员看到全部, 其他用户只看到被授权的条目
	List(ctx context.Context, p *identity.Principal) ([]*dto.SecretResponse, error)
	Update(ctx context.Context, p *identity.Principal, id int64, req *dto.SecretRequest) (*dto.SecretResponse, error)
	Delete(ctx context.Context, p *identity.Principal, id int64) error
}

type secretService struct {
	repo   repository.SecretRepository
	users  repository.UserRepository
	engine *policy.Engine
	logger *zap.Logger
}

func NewSecretService(store *repository.Store, engine *policy.Engine, logger *zap.Logger) SecretService {
	return &secretService{
		repo:   store.Secrets,
		users:  store.Users,
		engine: engine,
		logger: logger,
	}
}

func (s *secretService) Create(ctx context.Context, p *identity.Principal, req *dto.SecretRequest) (*dto.SecretResponse, error) {
	if err := s.engine.Check(p, policy.WriteSecret{}); err != nil {
		return nil, err
	}
	secret := &model.Secret{CreatedByID: p.UserID}
	if err := s.apply(ctx, secret, req); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, secret); err != nil {
		return nil, err
	}
	s.logger.Info("创建密码条目", zap.Int64("operator", p.UserID), zap.Int64("secret_id", secret.ID))
	return toSecretResponse(secret), nil
}

func (s *secretService) Get(ctx context.Context, p *identity.Principal, id int64) (*dto.SecretResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	secret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "密码条目不存在")
	}
	if err := s.engine.Check(p, policy.ReadSecret{Secret: secret}); err != nil {
		return nil, err
	}
	return toSecretResponse(secret), nil
}

func (s *secretService) List(ctx context.Context, p *identity.Principal) ([]*dto.SecretResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	var readerID *int64
	if !auth.Allow(p.Role, auth.PermSecretViewAll) {
		readerID = &p.UserID
	}
	secrets, err := s.repo.List(ctx, readerID)
	if err != nil {
		return nil, err
	}
	return lo.Map(secrets, func(secret *model.Secret, _ int) *dto.SecretResponse {
		return toSecretResponse(secret)
	}), nil
}

func (s *secretService) Update(ctx context.Context, p *identity.Principal, id int64, req *dto.SecretRequest) (*dto.SecretResponse, error) {
	if err := s.engine.Check(p, policy.WriteSecret{}); err != nil {
		return nil, err
	}
	secret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "密码条目不存在")
	}
	if err := s.apply(ctx, secret, req); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, secret); err != nil {
		return nil, err
	}
	return toSecretResponse(secret), nil
}

func (s *secretService) Delete(ctx context.Context, p *identity.Principal, id int64) error {
	if err := s.engine.Check(p, policy.WriteSecret{}); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err, "密码条目不存在")
	}
	return s.repo.Delete(ctx, id)
}

// apply 校验并写入字段, 访问列表整体替换
func (s *secretService) apply(ctx context.Context, secret *model.Secret, req *dto.SecretRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return pkgErrors.Validation("名称不能为空")
	}

	accessIDs := lo.Uniq(req.AccessIDs)
	if _, err := requireUsers(ctx, s.users, accessIDs); err != nil {
		return err
	}

	secret.Name = name
	secret.Value = req.Value
	secret.Description = req.Description
	secret.Access = lo.Map(accessIDs, func(uid int64, _ int) model.SecretAccess {
		return model.SecretAccess{SecretID: secret.ID, UserID: uid}
	})
	return nil
}

func toSecretResponse(secret *model.Secret) *dto.SecretResponse {
	return &dto.SecretResponse{
		ID:          secret.ID,
		Name:        secret.Name,
		Value:       secret.Value,
		Description: secret.Description,
		AccessIDs:   secret.AccessIDs(),
		CreatedByID: secret.CreatedByID,
		CreatedAt:   secret.CreatedAt,
		UpdatedAt:   secret.UpdatedAt,
	}
}
