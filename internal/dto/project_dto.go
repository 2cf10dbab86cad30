package dto

import "time"

// CreateProjectRequest 创建项目
type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=100"`
	Description *string    `json:"description"`
	LeadID      *int64     `json:"lead_id" binding:"omitempty,min=1"` // 仅管理员可指定他人
	MemberIDs   []int64    `json:"member_ids" binding:"omitempty,dive,min=1"`
	Status      string     `json:"status" binding:"omitempty,oneof='Not Started' Planning 'In Progress' Completed 'On Hold'"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// UpdateProjectRequest 更新项目, 不能通过此接口关闭项目
type UpdateProjectRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// ProjectListQuery 项目列表查询
type ProjectListQuery struct {
	PageQuery
	Status string `form:"status"`
}

// AddMemberRequest 添加成员
type AddMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required,min=1"`
}

// ChangeLeadRequest 更换负责人
type ChangeLeadRequest struct {
	LeadID int64 `json:"lead_id" binding:"required,min=1"`
}

// ProjectResponse 项目详情
//
// Status 为存储状态, DerivedStatus 为按任务完成情况推导的展示状态
type ProjectResponse struct {
	ID            int64                 `json:"id"`
	Name          string                `json:"name"`
	Description   *string               `json:"description"`
	Lead          *UserSimpleResponse   `json:"lead"`
	Members       []*UserSimpleResponse `json:"members"`
	Status        string                `json:"status"`
	DerivedStatus string                `json:"derived_status"`
	Priority      string                `json:"priority"`
	Progress      int                   `json:"progress"`
	TotalTasks    int64                 `json:"total_tasks"`
	DoneTasks     int64                 `json:"done_tasks"`
	StartDate     *time.Time            `json:"start_date"`
	EndDate       *time.Time            `json:"end_date"`
	ClosedAt      *time.Time            `json:"closed_at"`
	ClosedByID    *int64                `json:"closed_by_id"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// DeleteProjectResponse 删除项目的级联结果
type DeleteProjectResponse struct {
	DeletedTasks              int64 `json:"deleted_tasks"`
	DeletedMembers            int64 `json:"deleted_members"`
	DeletedAccessTokens       int64 `json:"deleted_access_tokens"`
	DeletedMembershipRequests int64 `json:"deleted_membership_requests"`
}
