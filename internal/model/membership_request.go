package model

import "time"

const MembershipRequestTableName = "membership_requests"

// MembershipRequest 用户申请加入项目
type MembershipRequest struct {
	BaseModel
	ProjectID    int64      `gorm:"column:project_id;not null;index" json:"project_id"`
	UserID       int64      `gorm:"column:user_id;not null;index" json:"user_id"`
	Message      *string    `gorm:"type:text" json:"message"`
	Status       string     `gorm:"size:20;not null;default:Pending;index" json:"status"`
	ReviewedByID *int64     `gorm:"column:reviewed_by_id" json:"reviewed_by_id"`
	ReviewedAt   *time.Time `json:"reviewed_at"`
}

func (MembershipRequest) TableName() string {
	return MembershipRequestTableName
}
