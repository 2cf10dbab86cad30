package dto

import "time"

// CreateTeamRequest 创建团队
type CreateTeamRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
	LeaderID    *int64  `json:"leader_id" binding:"omitempty,min=1"`
	MemberIDs   []int64 `json:"member_ids" binding:"omitempty,dive,min=1"`
}

// UpdateTeamRequest 更新团队
type UpdateTeamRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	LeaderID    *int64  `json:"leader_id" binding:"omitempty,min=0"` // 0 表示清除负责人
}

// TeamMemberRequest 添加团队成员
type TeamMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// TeamResponse 团队
type TeamResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description *string               `json:"description"`
	Leader      *UserSimpleResponse   `json:"leader"`
	Members     []*UserSimpleResponse `json:"members"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
