package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/core/identity"
	"taskhub/internal/dto"
	"taskhub/internal/service"
	"taskhub/pkg/responses"
)

type AuthHandler struct {
	authService  service.AuthService
	guestService service.GuestService
	userService  service.UserService
	cookieName   string
}

func NewAuthHandler(authService service.AuthService, guestService service.GuestService, userService service.UserService, cookieName string) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		guestService: guestService,
		userService:  userService,
		cookieName:   cookieName,
	}
}

// setCookie 令牌同时写入 HttpOnly Cookie, 浏览器端无需自行保存
func (h *AuthHandler) setCookie(c *gin.Context, resp *dto.LoginResponse) {
	c.SetCookie(h.cookieName, resp.AccessToken, resp.ExpiresIn, "/", "", false, true)
}

// Signup 注册
// @Summary 用户注册
// @Description 系统中第一个注册的用户成为 Admin
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "注册请求"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	h.setCookie(c, resp)
	responses.Success(c, resp)
}

// Login 登录
// @Summary 用户登录
// @Description 支持LDAP和本地用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	h.setCookie(c, resp)
	responses.Success(c, resp)
}

// LoginWithAccessCode 个人访问码登录
// @Summary 访问码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.AccessCodeLoginRequest true "访问码"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login/access-code [post]
func (h *AuthHandler) LoginWithAccessCode(c *gin.Context) {
	var req dto.AccessCodeLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.LoginWithAccessCode(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	h.setCookie(c, resp)
	responses.Success(c, resp)
}

// RedeemGuest 访客码兑换
// @Summary 访客登录
// @Description 使用项目访客码换取只读访客令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.GuestRedeemRequest true "访客码"
// @Success 200 {object} responses.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login/guest [post]
func (h *AuthHandler) RedeemGuest(c *gin.Context) {
	var req dto.GuestRedeemRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.guestService.Redeem(c.Request.Context(), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}

	h.setCookie(c, resp)
	responses.Success(c, resp)
}

// Logout 清除登录 Cookie
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Success 200 {object} responses.Response
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	responses.Success(c, nil)
}

// GetMe 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.Response{data=dto.UserInfo}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context, p *identity.Principal) {
	info, err := h.authService.Me(c.Request.Context(), p)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, info)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "修改密码"
// @Success 200 {object} responses.Response
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context, p *identity.Principal) {
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), p, &req); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, nil)
}

// ChangeAccessCode 设置个人访问码
// @Summary 设置个人访问码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangeAccessCodeRequest true "访问码"
// @Success 200 {object} responses.Response
// @Router /api/v1/auth/access-code [put]
func (h *AuthHandler) ChangeAccessCode(c *gin.Context, p *identity.Principal) {
	var req dto.ChangeAccessCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangeAccessCode(c.Request.Context(), p, &req); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, nil)
}

// GenerateAccessCode 随机生成个人访问码
// @Summary 生成个人访问码
// @Description 只在本次响应中返回明文
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/auth/access-code/generate [post]
func (h *AuthHandler) GenerateAccessCode(c *gin.Context, p *identity.Principal) {
	code, err := h.userService.GenerateAccessCode(c.Request.Context(), p)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, gin.H{"code": code})
}
