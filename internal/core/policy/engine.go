package policy

import (
	"fmt"

	"taskhub/internal/core/identity"
	"taskhub/internal/core/lifecycle"
	"taskhub/internal/model"
	"taskhub/internal/pkg/auth"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// Options 可配置的策略
type Options struct {
	// LeadGlobalTaskStatus 为 true 时任何 Lead 都可以修改任意任务状态, 否则仅限其负责的项目
	LeadGlobalTaskStatus bool
	MinAccessCodeLength  int
}

// Decision 判定结果, 拒绝时 Kind/Reason 必填
type Decision struct {
	Allowed bool
	Kind    pkgErrors.Kind
	Reason  string
	Details map[string]interface{}
}

// Err 允许时返回 nil
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	err := pkgErrors.New(d.Kind, d.Reason)
	for k, v := range d.Details {
		err = err.WithDetail(k, v)
	}
	return err
}

// Engine 无状态的授权判定
type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	if opts.MinAccessCodeLength <= 0 {
		opts.MinAccessCodeLength = 6
	}
	return &Engine{opts: opts}
}

// Can 判定 principal 能否执行 action
func (e *Engine) Can(p *identity.Principal, action Action) Decision {
	err := e.evaluate(p, action)
	if err == nil {
		return Decision{Allowed: true}
	}

	var appErr *pkgErrors.AppError
	if !pkgErrors.As(err, &appErr) {
		return Decision{Kind: pkgErrors.KindInternal, Reason: err.Error()}
	}
	return Decision{Kind: appErr.Kind, Reason: appErr.Message, Details: appErr.Details}
}

// Check 等价于 Can(p, action).Err()
func (e *Engine) Check(p *identity.Principal, action Action) error {
	return e.Can(p, action).Err()
}

func (e *Engine) evaluate(p *identity.Principal, action Action) error {
	if p == nil {
		return pkgErrors.ErrUnauthorized
	}

	switch a := action.(type) {
	case ViewProject:
		return e.viewProject(p, a.Project)
	case ViewTask:
		return e.viewTask(p, a.Task, a.Project)
	}

	// 以下操作访客一律禁止
	if p.IsGuest {
		return pkgErrors.ErrGuestNotAllowed
	}

	switch a := action.(type) {
	case ChangeAccessCode:
		return e.changeAccessCode(p, a)
	case ViewMembershipRequests:
		return requirePermission(p, auth.PermMembershipView, "只有管理员或负责人可以查看加入申请")
	case ListUsers:
		return requirePermission(p, auth.PermUserView, "无权查看用户列表")
	case ViewUser:
		if p.Is(a.TargetID) {
			return nil
		}
		return requirePermission(p, auth.PermUserView, "无权查看该用户")
	case UpdateProfile:
		if p.Is(a.TargetID) || p.IsAdmin() {
			return nil
		}
		return pkgErrors.Forbidden("只能修改自己的资料")
	case RemoveUser:
		return e.removeUser(p, a)
	case ChangeRole:
		return e.changeRole(p, a)
	case CreateProject:
		return e.createProject(p, a)
	case ListProjects:
		return nil
	case UpdateProject:
		return e.projectWrite(p, a.Project, "只有项目负责人或管理员可以修改项目")
	case ManageProjectMembers:
		return e.projectWrite(p, a.Project, "只有项目负责人或管理员可以管理成员")
	case ChangeProjectLead:
		return e.changeProjectLead(p, a)
	case CloseProject:
		if !isProjectLeadOrAdmin(p, a.Project) {
			return pkgErrors.Forbidden("只有项目负责人或管理员可以关闭项目")
		}
		return lifecycle.CheckClose(a.Project, a.Total, a.Done)
	case DeleteProject:
		if !p.IsAdmin() {
			return pkgErrors.Forbidden("只有管理员可以删除项目")
		}
		return lifecycle.CheckDelete(a.Project, a.Total, a.Done)
	case CreateTask:
		return e.createTask(p, a)
	case UpdateTask:
		return e.updateTask(p, a.Task, a.Project)
	case UpdateTaskStatus:
		return e.updateTaskStatus(p, a)
	case ReassignTask:
		return e.reassignTask(p, a)
	case DeleteTask:
		return e.deleteTask(p, a.Task, a.Project)
	case WriteSecret:
		return requirePermission(p, auth.PermSecretWrite, "只有管理员可以维护密码条目")
	case ReadSecret:
		if auth.Allow(p.Role, auth.PermSecretViewAll) || (a.Secret != nil && a.Secret.CanRead(p.UserID)) {
			return nil
		}
		return pkgErrors.Forbidden("无权查看该密码条目")
	case CreateTeam:
		if err := requirePermission(p, auth.PermTeamWrite, "只有管理员可以创建团队"); err != nil {
			return err
		}
		if a.NameTaken {
			return pkgErrors.Conflict("团队名称已存在")
		}
		return nil
	case ManageTeams:
		return requirePermission(p, auth.PermTeamWrite, "只有管理员可以管理团队")
	case RequestMembership:
		return e.requestMembership(p, a)
	case ReviewMembership:
		if !isProjectLeadOrAdmin(p, a.Project) {
			return pkgErrors.Forbidden("只有项目负责人或管理员可以处理加入申请")
		}
		return nil
	case ManageAccessTokens:
		if !isProjectLeadOrAdmin(p, a.Project) {
			return pkgErrors.Forbidden("只有项目负责人或管理员可以管理访客码")
		}
		if a.Issue && a.Project.IsClosed() {
			return pkgErrors.Conflict("项目已关闭，无法签发访客码")
		}
		return nil
	default:
		return pkgErrors.Internal(fmt.Sprintf("未知操作: %s", action.Name()), nil)
	}
}

func requirePermission(p *identity.Principal, need auth.Permission, reason string) error {
	if auth.Allow(p.Role, need) {
		return nil
	}
	return pkgErrors.Forbidden(reason)
}

func isProjectLead(p *identity.Principal, project *model.Project) bool {
	return project != nil && p.Is(project.LeadID)
}

func isProjectLeadOrAdmin(p *identity.Principal, project *model.Project) bool {
	return p.IsAdmin() || isProjectLead(p, project)
}

func isProjectParticipant(p *identity.Principal, project *model.Project) bool {
	return project != nil && !p.IsGuest && project.IsLeadOrMember(p.UserID)
}

func (e *Engine) viewProject(p *identity.Principal, project *model.Project) error {
	if project == nil {
		return pkgErrors.ErrNotFound
	}
	if p.IsGuest {
		if p.InScope(project.ID) {
			return nil
		}
		return pkgErrors.Forbidden("访客只能访问受邀项目")
	}
	if auth.Allow(p.Role, auth.PermProjectViewAll) || isProjectParticipant(p, project) {
		return nil
	}
	return pkgErrors.Forbidden("不是该项目的成员")
}

func (e *Engine) viewTask(p *identity.Principal, task *model.Task, project *model.Project) error {
	if task == nil {
		return pkgErrors.ErrNotFound
	}
	if p.IsGuest {
		if task.ProjectID != nil && p.InScope(*task.ProjectID) {
			return nil
		}
		return pkgErrors.Forbidden("访客只能访问受邀项目")
	}
	if auth.Allow(p.Role, auth.PermTaskViewAll) ||
		p.Is(task.AssignedToID) || p.Is(task.AssignedByID) ||
		isProjectParticipant(p, project) {
		return nil
	}
	return pkgErrors.Forbidden("无权查看该任务")
}

func (e *Engine) changeAccessCode(p *identity.Principal, a ChangeAccessCode) error {
	if !p.Is(a.OwnerID) {
		return pkgErrors.Forbidden("只能修改自己的访问码")
	}
	code := constants.NormalizeCode(a.Code)
	if len(code) < e.opts.MinAccessCodeLength {
		return pkgErrors.Validation(fmt.Sprintf("访问码长度不能少于 %d 位", e.opts.MinAccessCodeLength)).
			WithDetail("minLength", e.opts.MinAccessCodeLength)
	}
	if a.HolderID != 0 && a.HolderID != a.OwnerID {
		return pkgErrors.Conflict("访问码已被其他用户使用")
	}
	return nil
}

func (e *Engine) removeUser(p *identity.Principal, a RemoveUser) error {
	if !auth.Allow(p.Role, auth.PermUserDelete) {
		return pkgErrors.Forbidden("只有管理员可以删除用户")
	}
	if a.Target == nil {
		return pkgErrors.ErrNotFound
	}
	if p.Is(a.Target.ID) {
		return pkgErrors.Forbidden("不能删除自己")
	}
	if err := lifecycle.CheckUserRemoval(a.References); err != nil {
		return err
	}
	if a.Target.IsAdmin() && a.AdminCount <= 1 {
		return pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", a.AdminCount)
	}
	return nil
}

func (e *Engine) changeRole(p *identity.Principal, a ChangeRole) error {
	if !auth.Allow(p.Role, auth.PermUserRole) {
		return pkgErrors.Forbidden("只有管理员可以修改角色")
	}
	if a.Target == nil {
		return pkgErrors.ErrNotFound
	}
	if !constants.IsValidRole(a.NewRole) {
		return pkgErrors.Validation("无效的角色").WithDetail("role", a.NewRole)
	}
	if a.Target.IsAdmin() && a.NewRole != constants.RoleAdmin && a.AdminCount <= 1 {
		return pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", a.AdminCount)
	}
	if a.NewRole == constants.RoleMember && a.Target.Role != constants.RoleMember && a.LedProjects > 0 {
		return pkgErrors.Conflict(fmt.Sprintf("用户仍负责 %d 个项目，请先更换项目负责人", a.LedProjects)).
			WithDetail("ledProjects", a.LedProjects)
	}
	return nil
}

func canLead(u *model.User) bool {
	return u != nil && (u.Role == constants.RoleAdmin || u.Role == constants.RoleLead)
}

func (e *Engine) createProject(p *identity.Principal, a CreateProject) error {
	if !auth.Allow(p.Role, auth.PermProjectCreate) {
		return pkgErrors.Forbidden("只有负责人或管理员可以创建项目")
	}
	if a.Lead == nil || p.Is(a.Lead.ID) {
		return nil
	}
	if !p.IsAdmin() {
		return pkgErrors.Forbidden("只有管理员可以为项目指定其他负责人")
	}
	if !canLead(a.Lead) {
		return pkgErrors.Validation("项目负责人必须是 Lead 或 Admin").WithDetail("leadId", a.Lead.ID)
	}
	return nil
}

func (e *Engine) projectWrite(p *identity.Principal, project *model.Project, reason string) error {
	if project == nil {
		return pkgErrors.ErrNotFound
	}
	if !isProjectLeadOrAdmin(p, project) {
		return pkgErrors.Forbidden(reason)
	}
	if project.IsClosed() {
		return pkgErrors.Conflict("项目已关闭，无法修改").WithDetail("projectId", project.ID)
	}
	return nil
}

func (e *Engine) changeProjectLead(p *identity.Principal, a ChangeProjectLead) error {
	if err := e.projectWrite(p, a.Project, "只有当前负责人或管理员可以更换负责人"); err != nil {
		return err
	}
	if a.NewLead == nil {
		return pkgErrors.NotFound("新负责人不存在")
	}
	if !canLead(a.NewLead) {
		return pkgErrors.Validation("项目负责人必须是 Lead 或 Admin").WithDetail("leadId", a.NewLead.ID)
	}
	return nil
}

func (e *Engine) createTask(p *identity.Principal, a CreateTask) error {
	if a.Assignee == nil {
		return pkgErrors.NotFound("被指派人不存在")
	}
	if a.Project == nil {
		// 个人任务: Member 只能指派给自己
		if p.Is(a.Assignee.ID) || auth.Allow(p.Role, auth.PermTaskAssign) {
			return nil
		}
		return pkgErrors.Forbidden("只能为自己创建个人任务")
	}

	if !p.IsAdmin() && !isProjectParticipant(p, a.Project) {
		return pkgErrors.Forbidden("不是该项目的成员")
	}
	if err := lifecycle.CheckTaskMutable(a.Project); err != nil {
		return err
	}
	if !a.Project.IsLeadOrMember(a.Assignee.ID) {
		return pkgErrors.Conflict("被指派人不是该项目的成员").WithDetail("assigneeId", a.Assignee.ID)
	}
	return nil
}

func (e *Engine) updateTask(p *identity.Principal, task *model.Task, project *model.Project) error {
	if task == nil {
		return pkgErrors.ErrNotFound
	}
	if !p.IsAdmin() && !p.Is(task.AssignedToID) && !p.Is(task.AssignedByID) && !isProjectLead(p, project) {
		return pkgErrors.Forbidden("无权修改该任务")
	}
	return lifecycle.CheckTaskMutable(project)
}

func (e *Engine) updateTaskStatus(p *identity.Principal, a UpdateTaskStatus) error {
	if a.Task == nil {
		return pkgErrors.ErrNotFound
	}
	allowed := p.IsAdmin() || p.Is(a.Task.AssignedToID) || p.Is(a.Task.AssignedByID)
	if !allowed && p.IsLead() {
		allowed = e.opts.LeadGlobalTaskStatus || isProjectLead(p, a.Project)
	}
	if !allowed {
		return pkgErrors.Forbidden("无权修改该任务状态")
	}
	if !constants.IsValidTaskStatus(a.Status) {
		return pkgErrors.Validation("无效的任务状态").WithDetail("status", a.Status)
	}
	return lifecycle.CheckTaskMutable(a.Project)
}

func (e *Engine) reassignTask(p *identity.Principal, a ReassignTask) error {
	if a.Task == nil {
		return pkgErrors.ErrNotFound
	}
	if !isProjectLeadOrAdmin(p, a.Project) {
		return pkgErrors.Forbidden("只有项目负责人或管理员可以转派任务")
	}
	if a.NewAssignee == nil {
		return pkgErrors.NotFound("被指派人不存在")
	}
	if err := lifecycle.CheckTaskMutable(a.Project); err != nil {
		return err
	}
	if a.Project != nil && !a.Project.IsLeadOrMember(a.NewAssignee.ID) {
		return pkgErrors.Conflict("被指派人不是该项目的成员").WithDetail("assigneeId", a.NewAssignee.ID)
	}
	return nil
}

func (e *Engine) deleteTask(p *identity.Principal, task *model.Task, project *model.Project) error {
	if task == nil {
		return pkgErrors.ErrNotFound
	}
	if !p.IsAdmin() && !p.Is(task.AssignedByID) && !isProjectLead(p, project) {
		return pkgErrors.Forbidden("只有指派人、项目负责人或管理员可以删除任务")
	}
	return lifecycle.CheckTaskMutable(project)
}

func (e *Engine) requestMembership(p *identity.Principal, a RequestMembership) error {
	if a.Project == nil {
		return pkgErrors.ErrNotFound
	}
	if a.Project.IsClosed() {
		return pkgErrors.Conflict("项目已关闭")
	}
	if a.Project.IsLeadOrMember(p.UserID) {
		return pkgErrors.Conflict("已经是该项目的成员")
	}
	if a.HasPending {
		return pkgErrors.Conflict("已有待处理的申请")
	}
	return nil
}
