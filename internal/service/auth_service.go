package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/pkg/config"
	"taskhub/internal/pkg/crypto"
	"taskhub/internal/pkg/jwt"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type AuthService interface {
	// Signup 注册, 系统中第一个用户成为 Admin
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.LoginResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	LoginWithAccessCode(ctx context.Context, req *dto.AccessCodeLoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, p *identity.Principal) (*dto.UserInfo, error)
	ChangePassword(ctx context.Context, p *identity.Principal, req *dto.ChangePasswordRequest) error
}

type authService struct {
	cfg         *config.AuthConfig
	users       repository.UserRepository
	creds       jwt.Service
	ldapService LDAPService
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	cfg *config.AuthConfig,
	users repository.UserRepository,
	creds jwt.Service,
	ldapService LDAPService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:         cfg,
		users:       users,
		creds:       creds,
		ldapService: ldapService,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.LoginResponse, error) {
	// email 标签校验的是规范化之后的地址
	req.Email = constants.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}
	if !s.cfg.Local.Enabled {
		return nil, pkgErrors.Forbidden("本地注册未启用")
	}

	email := req.Email
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgErrors.Conflict("邮箱已被注册").WithDetail("email", email)
	} else if !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := constants.RoleMember
	if count == 0 {
		role = constants.RoleAdmin
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, pkgErrors.Internal("密码加密失败", err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    email,
		Password: hash,
		Role:     role,
		Skills:   normalizeSkills(req.Skills),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("用户注册", zap.Int64("user_id", user.ID), zap.String("role", role))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var user *model.User
	var err error
	switch req.AuthType {
	case constants.AuthTypeLDAP:
		user, err = s.authenticateLDAP(ctx, req.Email, req.Password)
	case constants.AuthTypeLocal, "":
		user, err = s.authenticateLocal(ctx, req.Email, req.Password)
	default:
		return nil, pkgErrors.Validation("不支持的认证类型")
	}
	if err != nil {
		return nil, err
	}

	s.touch(ctx, user)
	return s.issue(user)
}

func (s *authService) authenticateLocal(ctx context.Context, email, password string) (*model.User, error) {
	if !s.cfg.Local.Enabled {
		return nil, pkgErrors.Unauthenticated("本地认证未启用")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.ErrInvalidLogin
		}
		return nil, err
	}

	if !crypto.CheckPassword(password, user.Password) {
		return nil, pkgErrors.ErrInvalidLogin
	}
	return user, nil
}

// authenticateLDAP 目录认证通过后按邮箱匹配已注册的用户, 不自动创建账号
func (s *authService) authenticateLDAP(ctx context.Context, username, password string) (*model.User, error) {
	if !s.cfg.LDAP.Enabled || s.ldapService == nil {
		return nil, pkgErrors.Unauthenticated("LDAP认证未启用")
	}

	entry, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	if entry.Email == "" {
		return nil, pkgErrors.Unauthenticated("目录用户未配置邮箱")
	}

	user, err := s.users.FindByEmail(ctx, entry.Email)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.Unauthenticated("目录用户尚未在系统中注册").WithDetail("email", entry.Email)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) LoginWithAccessCode(ctx context.Context, req *dto.AccessCodeLoginRequest) (*dto.LoginResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	code := constants.NormalizeCode(req.Code)
	if code == "" {
		return nil, pkgErrors.Validation("访问码不能为空")
	}

	user, err := s.users.FindByAccessCode(ctx, code)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return nil, pkgErrors.Unauthenticated("访问码无效")
		}
		return nil, err
	}

	s.touch(ctx, user)
	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, p *identity.Principal) (*dto.UserInfo, error) {
	if p == nil {
		return nil, pkgErrors.ErrUnauthorized
	}
	return toUserInfo(p), nil
}

func (s *authService) ChangePassword(ctx context.Context, p *identity.Principal, req *dto.ChangePasswordRequest) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := validate(req); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if user.Password != "" && !crypto.CheckPassword(req.OldPassword, user.Password) {
		return pkgErrors.Validation("原密码错误")
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		return pkgErrors.Internal("密码加密失败", err)
	}
	user.Password = hash
	return s.users.Update(ctx, user)
}

// touch 更新最后登录时间, 失败只记录日志
func (s *authService) touch(ctx context.Context, user *model.User) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.LastLoginAt = &now
}

func (s *authService) issue(user *model.User) (*dto.LoginResponse, error) {
	token, err := s.creds.Issue(jwt.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, s.cfg.JWT.AccessTTL())
	if err != nil {
		return nil, pkgErrors.Internal("生成Token失败", err)
	}

	skills := []string(user.Skills)
	if skills == nil {
		skills = []string{}
	}
	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresIn:   s.cfg.JWT.AccessTokenExpire,
		User: &dto.UserInfo{
			ID:     strconv.FormatInt(user.ID, 10),
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   user.Role,
			Skills: skills,
		},
	}, nil
}
