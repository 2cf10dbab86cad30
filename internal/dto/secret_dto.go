package dto

import "time"

// SecretRequest 创建/更新密码条目, AccessIDs 为完整的访问列表
type SecretRequest struct {
	Name        string  `json:"name" binding:"required,max=128"`
	Value       string  `json:"value" binding:"required"`
	Description *string `json:"description"`
	AccessIDs   []int64 `json:"access_ids" binding:"omitempty,dive,min=1"`
}

// SecretResponse 密码条目
type SecretResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	Description *string   `json:"description"`
	AccessIDs   []int64   `json:"access_ids"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
