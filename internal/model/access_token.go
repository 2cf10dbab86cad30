package model

import "time"

const ProjectAccessTokenTableName = "project_access_tokens"

// ProjectAccessToken 项目访客码
//
// UsedAt 只记录首次使用时间, 不限制重复使用; IsActive 才是开关
type ProjectAccessToken struct {
	BaseModel
	ProjectID   int64      `gorm:"column:project_id;not null;index" json:"project_id"`
	Email       string     `gorm:"size:191;not null" json:"email"`
	Token       string     `gorm:"size:64;not null;uniqueIndex" json:"token"` // 去空白并大写后存储
	ExpiresAt   *time.Time `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at"`
	IsActive    bool       `gorm:"not null;default:true;index" json:"is_active"`
	CreatedByID int64      `gorm:"column:created_by_id;not null" json:"created_by_id"`
}

func (ProjectAccessToken) TableName() string {
	return ProjectAccessTokenTableName
}

// Expired 是否已过期, 未设置过期时间视为永不过期
func (t *ProjectAccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
