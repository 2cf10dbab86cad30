package dto

import "time"

// SubtaskInput 子任务, ID 为空时自动生成
type SubtaskInput struct {
	ID        string `json:"id" binding:"omitempty,max=64"`
	Title     string `json:"title" binding:"required,max=200"`
	Completed bool   `json:"completed"`
}

// CreateTaskRequest 创建任务, ProjectID 为空表示个人任务
type CreateTaskRequest struct {
	Title        string         `json:"title" binding:"required,max=200"`
	Description  *string        `json:"description"`
	ProjectID    *int64         `json:"project_id" binding:"omitempty,min=1"`
	AssignedToID int64          `json:"assigned_to_id" binding:"required,min=1"`
	Status       string         `json:"status" binding:"omitempty,oneof=Todo Planning 'In Progress' Done Blocked"`
	Priority     string         `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	DueDate      *time.Time     `json:"due_date"`
	Skills       []string       `json:"skills" binding:"omitempty,dive,max=50"`
	Subtasks     []SubtaskInput `json:"subtasks" binding:"omitempty,dive"`
}

// UpdateTaskRequest 更新任务详情
type UpdateTaskRequest struct {
	Title       *string        `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string        `json:"description"`
	Priority    *string        `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	DueDate     *time.Time     `json:"due_date"`
	Skills      []string       `json:"skills" binding:"omitempty,dive,max=50"`
	Subtasks    []SubtaskInput `json:"subtasks" binding:"omitempty,dive"`
}

// UpdateTaskStatusRequest 修改任务状态, 合法值在服务层校验
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ReassignTaskRequest 转派任务
type ReassignTaskRequest struct {
	AssignedToID int64 `json:"assigned_to_id" binding:"required,min=1"`
}

// SubtaskParam 子任务路径参数
type SubtaskParam struct {
	ID        int64  `uri:"id" binding:"required,min=1"`
	SubtaskID string `uri:"subtask_id" binding:"required"`
}

// TaskListQuery 任务列表查询
type TaskListQuery struct {
	PageQuery
	ProjectID    *int64 `form:"project_id"`
	AssignedToID *int64 `form:"assigned_to_id"`
	Status       string `form:"status"`
}

// SubtaskResponse 子任务
type SubtaskResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TaskResponse 任务详情
type TaskResponse struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	ProjectID    *int64            `json:"project_id"`
	AssignedToID int64             `json:"assigned_to_id"`
	AssignedByID int64             `json:"assigned_by_id"`
	Status       string            `json:"status"`
	Priority     string            `json:"priority"`
	DueDate      *time.Time        `json:"due_date"`
	CompletedAt  *time.Time        `json:"completed_at"`
	Skills       []string          `json:"skills"`
	Subtasks     []SubtaskResponse `json:"subtasks"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
