package model

import (
	"time"

	"github.com/samber/lo"

	"taskhub/pkg/constants"
)

const ProjectTableName = "projects"
const ProjectMemberTableName = "project_members"

// Project 项目
//
// Status 是存储状态, 只有 Closed 是权威值; 展示用的进度状态由任务完成情况在读取时推导,
// 见 core/lifecycle.DerivedStatus
type Project struct {
	BaseModel
	Name        string     `gorm:"size:100;not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description"`
	LeadID      int64      `gorm:"column:lead_id;not null;index" json:"lead_id"`
	Status      string     `gorm:"size:20;not null;default:'Not Started';index" json:"status"`
	Priority    string     `gorm:"size:20;not null;default:Medium" json:"priority"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	ClosedAt    *time.Time `json:"closed_at"`
	ClosedByID  *int64     `gorm:"column:closed_by_id" json:"closed_by_id"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Project) TableName() string {
	return ProjectTableName
}

func (p *Project) IsClosed() bool {
	return p.Status == constants.ProjectStatusClosed
}

// MemberIDs 成员ID列表（不含负责人, 除非负责人同时也在成员表中）
func (p *Project) MemberIDs() []int64 {
	ids := make([]int64, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember 是否为成员
func (p *Project) HasMember(userID int64) bool {
	return lo.ContainsBy(p.Members, func(m ProjectMember) bool { return m.UserID == userID })
}

// IsLeadOrMember 负责人或成员
func (p *Project) IsLeadOrMember(userID int64) bool {
	return p.LeadID == userID || p.HasMember(userID)
}

// ProjectMember 项目成员
type ProjectMember struct {
	ProjectID int64     `gorm:"column:project_id;primaryKey" json:"project_id"`
	UserID    int64     `gorm:"column:user_id;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (ProjectMember) TableName() string {
	return ProjectMemberTableName
}
