package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/core/identity"
	"taskhub/internal/core/lifecycle"
	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

func principal(id int64, role string) *identity.Principal {
	return &identity.Principal{ID: "u", UserID: id, Role: role}
}

func guest(projectID int64) *identity.Principal {
	return &identity.Principal{ID: "guest:1", Role: constants.RoleMember, ProjectScope: &projectID, IsGuest: true}
}

func user(id int64, role string) *model.User {
	return &model.User{BaseModel: model.BaseModel{ID: id}, Role: role}
}

func project(id, leadID int64, members ...int64) *model.Project {
	p := &model.Project{BaseModel: model.BaseModel{ID: id}, LeadID: leadID, Status: constants.ProjectStatusInProgress}
	for _, m := range members {
		p.Members = append(p.Members, model.ProjectMember{ProjectID: id, UserID: m})
	}
	return p
}

func task(projectID *int64, assignee, assigner int64) *model.Task {
	return &model.Task{BaseModel: model.BaseModel{ID: 100}, ProjectID: projectID, AssignedToID: assignee, AssignedByID: assigner, Status: constants.TaskStatusTodo}
}

func kindOf(t *testing.T, d Decision) pkgErrors.Kind {
	t.Helper()
	if d.Allowed {
		return ""
	}
	require.NotEmpty(t, d.Reason)
	return d.Kind
}

var (
	admin  = principal(1, constants.RoleAdmin)
	lead   = principal(2, constants.RoleLead)
	lead2  = principal(3, constants.RoleLead)
	member = principal(4, constants.RoleMember)
	other  = principal(5, constants.RoleMember)
)

func newEngine() *Engine {
	return NewEngine(Options{LeadGlobalTaskStatus: true, MinAccessCodeLength: 6})
}

func TestChangeAccessCode(t *testing.T) {
	e := newEngine()

	assert.True(t, e.Can(member, ChangeAccessCode{OwnerID: 4, Code: "abc-123"}).Allowed)
	assert.True(t, e.Can(member, ChangeAccessCode{OwnerID: 4, Code: "abc-123", HolderID: 4}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, ChangeAccessCode{OwnerID: 5, Code: "abcdef"})))
	assert.Equal(t, pkgErrors.KindValidationFailed, kindOf(t, e.Can(member, ChangeAccessCode{OwnerID: 4, Code: " ab c "})))
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(member, ChangeAccessCode{OwnerID: 4, Code: "abcdef", HolderID: 5})))
}

func TestViewMembershipRequests(t *testing.T) {
	e := newEngine()
	assert.True(t, e.Can(admin, ViewMembershipRequests{}).Allowed)
	assert.True(t, e.Can(lead, ViewMembershipRequests{}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, ViewMembershipRequests{})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(guest(1), ViewMembershipRequests{})))
}

func TestRemoveUser(t *testing.T) {
	e := newEngine()
	target := user(4, constants.RoleMember)

	assert.True(t, e.Can(admin, RemoveUser{Target: target, AdminCount: 1}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, RemoveUser{Target: target})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(admin, RemoveUser{Target: user(1, constants.RoleAdmin), AdminCount: 2})))

	d := e.Can(admin, RemoveUser{Target: target, References: lifecycle.References{AssignedTasks: 3}})
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, d))
	assert.Equal(t, int64(3), d.Details["assignedTasks"])

	d = e.Can(admin, RemoveUser{Target: target, References: lifecycle.References{MemberProjects: 2}})
	assert.Equal(t, int64(2), d.Details["memberProjects"])

	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(admin, RemoveUser{Target: user(9, constants.RoleAdmin), AdminCount: 1})))
}

func TestChangeRole(t *testing.T) {
	e := newEngine()

	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, ChangeRole{Target: user(4, constants.RoleMember), NewRole: constants.RoleLead})))
	assert.Equal(t, pkgErrors.KindValidationFailed, kindOf(t, e.Can(admin, ChangeRole{Target: user(4, constants.RoleMember), NewRole: "Owner"})))

	d := e.Can(admin, ChangeRole{Target: user(2, constants.RoleLead), NewRole: constants.RoleMember, LedProjects: 1})
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, d))
	assert.Equal(t, int64(1), d.Details["ledProjects"])
	assert.True(t, e.Can(admin, ChangeRole{Target: user(2, constants.RoleLead), NewRole: constants.RoleMember}).Allowed)

	// 最后一个管理员无条件不能降级
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(admin, ChangeRole{Target: user(1, constants.RoleAdmin), NewRole: constants.RoleLead, AdminCount: 1})))
	assert.True(t, e.Can(admin, ChangeRole{Target: user(1, constants.RoleAdmin), NewRole: constants.RoleLead, AdminCount: 2}).Allowed)
}

func TestCloseProject(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)

	d := e.Can(lead, CloseProject{Project: p, Total: 3, Done: 2})
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, d))
	assert.Equal(t, int64(1), d.Details["pendingTasks"])

	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(lead, CloseProject{Project: p})))
	assert.True(t, e.Can(lead, CloseProject{Project: p, Total: 3, Done: 3}).Allowed)
	assert.True(t, e.Can(admin, CloseProject{Project: p, Total: 3, Done: 3}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead2, CloseProject{Project: p, Total: 3, Done: 3})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, CloseProject{Project: p, Total: 3, Done: 3})))

	p.Status = constants.ProjectStatusClosed
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(lead, CloseProject{Project: p, Total: 3, Done: 3})))
}

func TestDeleteProject(t *testing.T) {
	e := newEngine()
	p := project(10, 2)

	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, DeleteProject{Project: p})))
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(admin, DeleteProject{Project: p})))

	p.Status = constants.ProjectStatusClosed
	assert.True(t, e.Can(admin, DeleteProject{Project: p, Total: 2, Done: 2}).Allowed)
	assert.True(t, e.Can(admin, DeleteProject{Project: p}).Allowed)
}

func TestReassignTask(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)
	pid := p.ID
	tk := task(&pid, 4, 2)

	d := e.Can(lead, ReassignTask{Task: tk, Project: p, NewAssignee: user(5, constants.RoleMember)})
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, d))
	assert.True(t, e.Can(lead, ReassignTask{Task: tk, Project: p, NewAssignee: user(4, constants.RoleMember)}).Allowed)
	assert.True(t, e.Can(admin, ReassignTask{Task: tk, Project: p, NewAssignee: user(2, constants.RoleLead)}).Allowed)

	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead2, ReassignTask{Task: tk, Project: p, NewAssignee: user(4, constants.RoleMember)})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, ReassignTask{Task: tk, Project: p, NewAssignee: user(4, constants.RoleMember)})))
	assert.Equal(t, pkgErrors.KindNotFound, kindOf(t, e.Can(lead, ReassignTask{Task: tk, Project: p})))

	// 个人任务只有管理员可以转派
	personal := task(nil, 4, 4)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, ReassignTask{Task: personal, NewAssignee: user(5, constants.RoleMember)})))
	assert.True(t, e.Can(admin, ReassignTask{Task: personal, NewAssignee: user(5, constants.RoleMember)}).Allowed)
}

func TestUpdateTaskStatus(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)
	pid := p.ID
	tk := task(&pid, 4, 2)

	for _, who := range []*identity.Principal{admin, lead, lead2, member} {
		assert.True(t, e.Can(who, UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusDone}).Allowed, who.UserID)
	}
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(other, UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusDone})))
	assert.Equal(t, pkgErrors.KindValidationFailed, kindOf(t, e.Can(member, UpdateTaskStatus{Task: tk, Project: p, Status: "Archived"})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(guest(10), UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusDone})))

	narrow := NewEngine(Options{LeadGlobalTaskStatus: false})
	assert.True(t, narrow.Can(lead, UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusDone}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, narrow.Can(lead2, UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusDone})))

	p.Status = constants.ProjectStatusClosed
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(member, UpdateTaskStatus{Task: tk, Project: p, Status: constants.TaskStatusTodo})))
}

func TestCreateTask(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)

	assert.True(t, e.Can(member, CreateTask{Project: p, Assignee: user(2, constants.RoleLead)}).Allowed)
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(lead, CreateTask{Project: p, Assignee: user(5, constants.RoleMember)})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(other, CreateTask{Project: p, Assignee: user(4, constants.RoleMember)})))
	assert.True(t, e.Can(admin, CreateTask{Project: p, Assignee: user(4, constants.RoleMember)}).Allowed)

	// 个人任务
	assert.True(t, e.Can(member, CreateTask{Assignee: user(4, constants.RoleMember)}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, CreateTask{Assignee: user(5, constants.RoleMember)})))
	assert.True(t, e.Can(lead, CreateTask{Assignee: user(5, constants.RoleMember)}).Allowed)
}

func TestSecrets(t *testing.T) {
	e := newEngine()
	secret := &model.Secret{Access: []model.SecretAccess{{UserID: 4}}}

	assert.True(t, e.Can(admin, WriteSecret{}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, WriteSecret{})))
	assert.True(t, e.Can(admin, ReadSecret{Secret: secret}).Allowed)
	assert.True(t, e.Can(member, ReadSecret{Secret: secret}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(other, ReadSecret{Secret: secret})))
}

func TestCreateTeam(t *testing.T) {
	e := newEngine()
	assert.True(t, e.Can(admin, CreateTeam{}).Allowed)
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(admin, CreateTeam{NameTaken: true})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(lead, CreateTeam{})))
}

func TestGuestScope(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)
	pid := p.ID
	tk := task(&pid, 4, 2)

	assert.True(t, e.Can(guest(10), ViewProject{Project: p}).Allowed)
	assert.True(t, e.Can(guest(10), ViewTask{Task: tk, Project: p}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(guest(11), ViewProject{Project: p})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(guest(10), ViewTask{Task: task(nil, 4, 4)})))
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(guest(10), UpdateProject{Project: p})))
}

func TestProjectWrites(t *testing.T) {
	e := newEngine()
	p := project(10, 2, 4)

	assert.True(t, e.Can(lead, UpdateProject{Project: p}).Allowed)
	assert.Equal(t, pkgErrors.KindForbidden, kindOf(t, e.Can(member, UpdateProject{Project: p})))
	assert.Equal(t, pkgErrors.KindValidationFailed, kindOf(t, e.Can(lead, ChangeProjectLead{Project: p, NewLead: user(4, constants.RoleMember)})))
	assert.True(t, e.Can(lead, ChangeProjectLead{Project: p, NewLead: user(3, constants.RoleLead)}).Allowed)

	p.Status = constants.ProjectStatusClosed
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(lead, ManageProjectMembers{Project: p})))
	assert.Equal(t, pkgErrors.KindConflict, kindOf(t, e.Can(admin, ManageAccessTokens{Project: p, Issue: true})))
	assert.True(t, e.Can(admin, ManageAccessTokens{Project: p}).Allowed)
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err())

	err := Decision{Kind: pkgErrors.KindConflict, Reason: "r", Details: map[string]interface{}{"n": 1}}.Err()
	var appErr *pkgErrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgErrors.KindConflict, appErr.Kind)
	assert.Equal(t, 1, appErr.Details["n"])
}
