package policy

import (
	"taskhub/internal/core/lifecycle"
	"taskhub/internal/model"
)

// Action 可授权的操作, 由 Engine.Can 统一判定
type Action interface {
	Name() string
}

// ChangeAccessCode 修改个人登录访问码; HolderID 为当前持有该码的用户, 0 表示未被使用
type ChangeAccessCode struct {
	OwnerID  int64
	Code     string
	HolderID int64
}

type ViewMembershipRequests struct{}

type ListUsers struct{}

// ViewUser 查看用户资料
type ViewUser struct {
	TargetID int64
}

// UpdateProfile 修改名称/技能/密码
type UpdateProfile struct {
	TargetID int64
}

type RemoveUser struct {
	Target     *model.User
	References lifecycle.References
	AdminCount int64
}

type ChangeRole struct {
	Target      *model.User
	NewRole     string
	AdminCount  int64
	LedProjects int64
}

type CreateProject struct {
	// Lead 指定的负责人, nil 表示由操作者本人担任
	Lead *model.User
}

type ViewProject struct {
	Project *model.Project
}

type ListProjects struct{}

type UpdateProject struct {
	Project *model.Project
}

type ManageProjectMembers struct {
	Project *model.Project
}

type ChangeProjectLead struct {
	Project *model.Project
	NewLead *model.User
}

type CloseProject struct {
	Project *model.Project
	Total   int64
	Done    int64
}

type DeleteProject struct {
	Project *model.Project
	Total   int64
	Done    int64
}

// CreateTask Project 为 nil 表示个人任务
type CreateTask struct {
	Project  *model.Project
	Assignee *model.User
}

type ViewTask struct {
	Task    *model.Task
	Project *model.Project
}

type UpdateTask struct {
	Task    *model.Task
	Project *model.Project
}

type UpdateTaskStatus struct {
	Task    *model.Task
	Project *model.Project
	Status  string
}

type ReassignTask struct {
	Task        *model.Task
	Project     *model.Project
	NewAssignee *model.User
}

type DeleteTask struct {
	Task    *model.Task
	Project *model.Project
}

type WriteSecret struct{}

type ReadSecret struct {
	Secret *model.Secret
}

type CreateTeam struct {
	NameTaken bool
}

type ManageTeams struct{}

type RequestMembership struct {
	Project    *model.Project
	HasPending bool
}

type ReviewMembership struct {
	Project *model.Project
}

// ManageAccessTokens Issue 为 true 表示签发新的访客码
type ManageAccessTokens struct {
	Project *model.Project
	Issue   bool
}

func (ChangeAccessCode) Name() string { return "user.change_access_code" }
func (ViewMembershipRequests) Name() string { return "membership.view_pending" }
func (ListUsers) Name() string { return "user.list" }
func (ViewUser) Name() string { return "user.view" }
func (UpdateProfile) Name() string { return "user.update_profile" }
func (RemoveUser) Name() string { return "user.remove" }
func (ChangeRole) Name() string { return "user.change_role" }
func (CreateProject) Name() string { return "project.create" }
func (ViewProject) Name() string { return "project.view" }
func (ListProjects) Name() string { return "project.list" }
func (UpdateProject) Name() string { return "project.update" }
func (ManageProjectMembers) Name() string { return "project.manage_members" }
func (ChangeProjectLead) Name() string { return "project.change_lead" }
func (CloseProject) Name() string { return "project.close" }
func (DeleteProject) Name() string { return "project.delete" }
func (CreateTask) Name() string { return "task.create" }
func (ViewTask) Name() string { return "task.view" }
func (UpdateTask) Name() string { return "task.update" }
func (UpdateTaskStatus) Name() string { return "task.update_status" }
func (ReassignTask) Name() string { return "task.reassign" }
func (DeleteTask) Name() string { return "task.delete" }
func (WriteSecret) Name() string { return "secret.write" }
func (ReadSecret) Name() string { return "secret.read" }
func (CreateTeam) Name() string { return "team.create" }
func (ManageTeams) Name() string { return "team.manage" }
func (RequestMembership) Name() string { return "membership.request" }
func (ReviewMembership) Name() string { return "membership.review" }
func (ManageAccessTokens) Name() string { return "access_token.manage" }
