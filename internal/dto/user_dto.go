package dto

import "time"

// UserSearchQuery 用户搜索请求
type UserSearchQuery struct {
	PageQuery
	Role string `form:"role" binding:"omitempty,oneof=Admin Lead Member"`
}

// UserResponse 用户信息
type UserResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Skills        []string   `json:"skills"`
	HasAccessCode bool       `json:"has_access_code"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// UserSimpleResponse 用户精简信息
type UserSimpleResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateProfileRequest 修改资料
type UpdateProfileRequest struct {
	Name   *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Skills []string `json:"skills" binding:"omitempty,dive,max=50"`
}

// ChangeAccessCodeRequest 修改个人访问码
type ChangeAccessCodeRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// ChangeRoleRequest 修改角色
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=Admin Lead Member"`
}

// DeleteUserResponse 删除用户时解除的组织关联
type DeleteUserResponse struct {
	TeamMemberships    int64 `json:"team_memberships"`
	TeamsLed           int64 `json:"teams_led"`
	SecretGrants       int64 `json:"secret_grants"`
	MembershipRequests int64 `json:"membership_requests"`
}
