package dto

// SignupRequest 注册请求, 系统第一个用户自动成为 Admin
type SignupRequest struct {
	Name     string   `json:"name" binding:"required,max=100"`
	Email    string   `json:"email" binding:"required,email,max=191"`
	Password string   `json:"password" binding:"required,min=6,max=72"`
	Skills   []string `json:"skills" binding:"omitempty,dive,max=50"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=191"` // ldap 登录时为目录用户名
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type" binding:"omitempty,oneof=ldap local"` // 默认 local
}

// AccessCodeLoginRequest 个人访问码登录
type AccessCodeLoginRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// GuestRedeemRequest 访客码兑换
type GuestRedeemRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	User        *UserInfo `json:"user"`
}

// UserInfo 当前登录身份
type UserInfo struct {
	ID           string   `json:"id"`
	UserID       int64    `json:"user_id,omitempty"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Skills       []string `json:"skills"`
	ProjectScope *int64   `json:"project_scope,omitempty"`
	IsGuest      bool     `json:"is_guest"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}
