package model

import "time"

type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&Team{},
		&TeamMember{},
		&ProjectAccessToken{},
		&Secret{},
		&SecretAccess{},
		&MembershipRequest{},
	}
}
