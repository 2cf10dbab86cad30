package dto

import "time"

// MembershipRequestCreate 申请加入项目
type MembershipRequestCreate struct {
	Message *string `json:"message" binding:"omitempty,max=500"`
}

// MembershipDecision 审批申请
type MembershipDecision struct {
	Approve bool `json:"approve"`
}

// MembershipRequestResponse 加入申请
type MembershipRequestResponse struct {
	ID           int64               `json:"id"`
	ProjectID    int64               `json:"project_id"`
	ProjectName  string              `json:"project_name,omitempty"`
	User         *UserSimpleResponse `json:"user"`
	Message      *string             `json:"message"`
	Status       string              `json:"status"`
	ReviewedByID *int64              `json:"reviewed_by_id"`
	ReviewedAt   *time.Time          `json:"reviewed_at"`
	CreatedAt    time.Time           `json:"created_at"`
}
