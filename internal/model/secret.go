package model

import (
	"time"

	"github.com/samber/lo"
)

const SecretTableName = "secrets"
const SecretAccessTableName = "secret_access"

// Secret 由管理员维护的密码条目
//
// Value 按产品约定明文保存, 读取权限由 Access 列表控制
type Secret struct {
	BaseModel
	Name        string  `gorm:"size:128;not null" json:"name"`
	Value       string  `gorm:"type:text;not null" json:"value"`
	Description *string `gorm:"type:text" json:"description"`
	CreatedByID int64   `gorm:"column:created_by_id;not null" json:"created_by_id"`

	Access []SecretAccess `gorm:"foreignKey:SecretID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Secret) TableName() string {
	return SecretTableName
}

func (s *Secret) AccessIDs() []int64 {
	ids := make([]int64, 0, len(s.Access))
	for _, a := range s.Access {
		ids = append(ids, a.UserID)
	}
	return ids
}

func (s *Secret) CanRead(userID int64) bool {
	return lo.ContainsBy(s.Access, func(a SecretAccess) bool { return a.UserID == userID })
}

// SecretAccess 密码条目的访问授权
type SecretAccess struct {
	SecretID  int64     `gorm:"column:secret_id;primaryKey" json:"secret_id"`
	UserID    int64     `gorm:"column:user_id;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (SecretAccess) TableName() string {
	return SecretAccessTableName
}
