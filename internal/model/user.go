package model

import (
	"time"

	"taskhub/pkg/constants"
)

const UserTableName = "users"

// User 用户, 全局角色 Admin/Lead/Member
type User struct {
	BaseModel
	Name        string     `gorm:"size:100;not null" json:"name"`
	Email       string     `gorm:"size:191;not null;uniqueIndex" json:"email"` // 统一小写存储
	Password    string     `gorm:"size:255" json:"-"`                          // bcrypt, 不返回到前端
	Role        string     `gorm:"size:20;not null;default:Member;index" json:"role"`
	Skills      StringList `gorm:"column:skills;type:json" json:"skills"`
	AccessCode  *string    `gorm:"size:64;uniqueIndex" json:"-"` // 统一大写存储
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return UserTableName
}

func (u *User) IsAdmin() bool {
	return u.Role == constants.RoleAdmin
}
