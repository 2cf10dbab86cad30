package model

import "time"

const TeamTableName = "teams"
const TeamMemberTableName = "team_members"

// Team 组织展示用的分组, 不参与项目/任务权限判断
type Team struct {
	BaseModel
	Name        string  `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	LeaderID    *int64  `gorm:"column:leader_id;index" json:"leader_id"`

	Members []TeamMember `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Team) TableName() string {
	return TeamTableName
}

func (t *Team) MemberIDs() []int64 {
	ids := make([]int64, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// TeamMember 团队成员
type TeamMember struct {
	TeamID    int64     `gorm:"column:team_id;primaryKey" json:"team_id"`
	UserID    int64     `gorm:"column:user_id;primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (TeamMember) TableName() string {
	return TeamMemberTableName
}
