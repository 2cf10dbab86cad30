package identity

import (
	"strconv"

	"taskhub/pkg/constants"
)

// Principal 已认证的调用方
//
// 访客只由令牌声明构造, UserID 为 0, ProjectScope 指向可访问的项目
type Principal struct {
	ID           string   `json:"id"`
	UserID       int64    `json:"user_id,omitempty"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Skills       []string `json:"skills"`
	ProjectScope *int64   `json:"project_scope,omitempty"`
	IsGuest      bool     `json:"is_guest"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && !p.IsGuest && p.Role == constants.RoleAdmin
}

func (p *Principal) IsLead() bool {
	return p != nil && !p.IsGuest && p.Role == constants.RoleLead
}

// Is 是否为指定的注册用户
func (p *Principal) Is(userID int64) bool {
	return p != nil && !p.IsGuest && userID != 0 && p.UserID == userID
}

// InScope 访客只能访问其令牌对应的项目; 注册用户不受此限制
func (p *Principal) InScope(projectID int64) bool {
	if p == nil {
		return false
	}
	if !p.IsGuest {
		return true
	}
	return p.ProjectScope != nil && *p.ProjectScope == projectID
}

func userPrincipalID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func guestPrincipalID(tokenID string) string {
	return constants.GuestIDPrefix + tokenID
}
