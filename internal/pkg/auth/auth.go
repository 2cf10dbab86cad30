package auth

import (
	"strings"

	"taskhub/pkg/constants"
)

// Permission 按 资源:动作 命名, 支持 * 通配
type Permission string

const (
	PermUserView       Permission = "user:view"
	PermUserRole       Permission = "user:role"
	PermUserDelete     Permission = "user:delete"
	PermProjectCreate  Permission = "project:create"
	PermProjectViewAll Permission = "project:view_all"
	PermMembershipView Permission = "membership:view"
	PermTaskStatus     Permission = "task:status"
	PermTaskAssign     Permission = "task:assign_any"
	PermTaskViewAll    Permission = "task:view_all"
	PermTeamWrite      Permission = "team:write"
	PermSecretWrite    Permission = "secret:write"
	PermSecretViewAll  Permission = "secret:view_all"
)

// RolePermissions 每个角色的全局权限, 与具体项目无关
var RolePermissions = map[string][]Permission{
	constants.RoleAdmin: {
		"*",
	},
	constants.RoleLead: {
		PermUserView,
		PermProjectCreate,
		PermProjectViewAll,
		PermMembershipView,
		PermTaskAssign,
		PermTaskViewAll,
		PermTaskStatus,
	},
	constants.RoleMember: {},
}

// Allow 判断角色是否拥有所需权限
func Allow(role string, need Permission) bool {
	for _, p := range RolePermissions[role] {
		if match(p, need) {
			return true
		}
	}
	return false
}

// match "*" 匹配全部, "task:*" 匹配 task 下的全部动作
func match(have, need Permission) bool {
	if have == need || have == "*" {
		return true
	}

	haveParts := strings.Split(string(have), ":")
	needParts := strings.Split(string(need), ":")
	if len(haveParts) > len(needParts) {
		return false
	}
	for i, part := range haveParts {
		if part == "*" {
			return true
		}
		if part != needParts[i] {
			return false
		}
	}
	return len(haveParts) == len(needParts)
}
