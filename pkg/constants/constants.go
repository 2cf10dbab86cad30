package constants

import (
	"strings"

	"github.com/samber/lo"
)

// 全局角色
const (
	RoleAdmin  = "Admin"
	RoleLead   = "Lead"
	RoleMember = "Member"
)

// Roles 按权限从高到低排列
var Roles = []string{RoleAdmin, RoleLead, RoleMember}

// ProjectStatus 项目状态, Closed 为终态且只能通过关闭操作到达
const (
	ProjectStatusNotStarted = "Not Started"
	ProjectStatusPlanning   = "Planning"
	ProjectStatusInProgress = "In Progress"
	ProjectStatusCompleted  = "Completed"
	ProjectStatusOnHold     = "On Hold"
	ProjectStatusClosed     = "Closed"
)

var ProjectStatuses = []string{
	ProjectStatusNotStarted,
	ProjectStatusPlanning,
	ProjectStatusInProgress,
	ProjectStatusCompleted,
	ProjectStatusOnHold,
	ProjectStatusClosed,
}

// TaskStatus 任务状态, 相互之间无顺序约束
const (
	TaskStatusTodo       = "Todo"
	TaskStatusPlanning   = "Planning"
	TaskStatusInProgress = "In Progress"
	TaskStatusDone       = "Done"
	TaskStatusBlocked    = "Blocked"
)

var TaskStatuses = []string{
	TaskStatusTodo,
	TaskStatusPlanning,
	TaskStatusInProgress,
	TaskStatusDone,
	TaskStatusBlocked,
}

// Priority 优先级（项目与任务共用）
const (
	PriorityLow      = "Low"
	PriorityMedium   = "Medium"
	PriorityHigh     = "High"
	PriorityCritical = "Critical"
)

var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// MembershipRequestStatus 入组申请状态
const (
	MembershipPending  = "Pending"
	MembershipApproved = "Approved"
	MembershipRejected = "Rejected"
)

// 认证类型
const (
	AuthTypeLDAP  = "ldap"
	AuthTypeLocal = "local"
)

// JWT / context 相关
const (
	ContextPrincipalKey = "principal"
	GuestIDPrefix       = "guest:"
)

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
	DefaultCookieName   = "token"
)

// NormalizeCode 访问码统一去掉所有空白并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// NormalizeEmail 邮箱大小写不敏感
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsValidRole(role string) bool { return lo.Contains(Roles, role) }
func IsValidProjectStatus(s string) bool { return lo.Contains(ProjectStatuses, s) }
func IsValidTaskStatus(s string) bool { return lo.Contains(TaskStatuses, s) }
func IsValidPriority(p string) bool { return lo.Contains(Priorities, p) }
