package model

import (
	"time"

	"gorm.io/datatypes"

	"taskhub/pkg/constants"
)

const TaskTableName = "tasks"

// Task 任务, ProjectID 为空表示个人任务
//
// 约束: Status == Done 当且仅当 CompletedAt 非空
type Task struct {
	BaseModel
	Title        string                       `gorm:"size:200;not null" json:"title"`
	Description  *string                      `gorm:"type:text" json:"description"`
	ProjectID    *int64                       `gorm:"column:project_id;index" json:"project_id"`
	AssignedToID int64                        `gorm:"column:assigned_to_id;not null;index" json:"assigned_to_id"`
	AssignedByID int64                        `gorm:"column:assigned_by_id;not null;index" json:"assigned_by_id"`
	Status       string                       `gorm:"size:20;not null;default:Todo;index" json:"status"`
	Priority     string                       `gorm:"size:20;not null;default:Medium" json:"priority"`
	DueDate      *time.Time                   `json:"due_date"`
	CompletedAt  *time.Time                   `json:"completed_at"`
	Skills       StringList                   `gorm:"column:skills;type:json" json:"skills"`
	Subtasks     datatypes.JSONSlice[Subtask] `gorm:"column:subtasks" json:"subtasks"`
}

func (Task) TableName() string {
	return TaskTableName
}

func (t *Task) IsDone() bool {
	return t.Status == constants.TaskStatusDone
}
