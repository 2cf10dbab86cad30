package dto

import "time"

// CreateAccessTokenRequest 签发访客码
type CreateAccessTokenRequest struct {
	Email     string     `json:"email" binding:"required,email,max=191"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// AccessTokenResponse 访客码
type AccessTokenResponse struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	Email     string     `json:"email"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}
