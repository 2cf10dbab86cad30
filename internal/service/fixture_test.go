package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/identity"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/repository/memory"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(msg *notification.NotificationMessage) {
	m.Called(msg)
}

func notificationOf(typ notification.NotificationType, to ...string) interface{} {
	return mock.MatchedBy(func(msg *notification.NotificationMessage) bool {
		if msg.Type != typ {
			return false
		}
		for _, addr := range to {
			found := false
			for _, got := range msg.To {
				if got == addr {
					found = true
				}
			}
			if !found {
				return false
			}
		}
		return true
	})
}

type fixture struct {
	ctx      context.Context
	store    *repository.Store
	engine   *policy.Engine
	notifier *mockNotifier

	users       UserService
	projects    ProjectService
	tasks       TaskService
	teams       TeamService
	secrets     SecretService
	tokens      AccessTokenService
	memberships MembershipService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithPolicy(t, policy.Options{LeadGlobalTaskStatus: true})
}

func newFixtureWithPolicy(t *testing.T, opts policy.Options) *fixture {
	t.Helper()
	store := memory.NewStore()
	engine := policy.NewEngine(opts)
	n := new(mockNotifier)
	n.On("Notify", mock.Anything).Return().Maybe()
	logger := zap.NewNop()

	return &fixture{
		ctx:         context.Background(),
		store:       store,
		engine:      engine,
		notifier:    n,
		users:       NewUserService(store, engine, logger),
		projects:    NewProjectService(store, engine, n, logger),
		tasks:       NewTaskService(store, engine, n, logger),
		teams:       NewTeamService(store, engine, logger),
		secrets:     NewSecretService(store, engine, logger),
		tokens:      NewAccessTokenService(store, engine, n, logger),
		memberships: NewMembershipService(store, engine, n, logger),
	}
}

func principalOf(u *model.User) *identity.Principal {
	return &identity.Principal{
		ID:     strconv.FormatInt(u.ID, 10),
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Skills: []string{},
	}
}

func guestOf(projectID int64) *identity.Principal {
	scope := projectID
	return &identity.Principal{
		ID:           constants.GuestIDPrefix + "1",
		Name:         "guest@example.com",
		Email:        "guest@example.com",
		Role:         constants.RoleMember,
		ProjectScope: &scope,
		IsGuest:      true,
	}
}

// user 直接写入存储并返回对应的 Principal
func (f *fixture) user(t *testing.T, name, role string) *identity.Principal {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, f.store.Users.Create(f.ctx, u))
	return principalOf(u)
}

func (f *fixture) project(t *testing.T, lead *identity.Principal, members ...*identity.Principal) *dto.ProjectResponse {
	t.Helper()
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	resp, err := f.projects.Create(f.ctx, lead, &dto.CreateProjectRequest{Name: "Apollo", MemberIDs: ids})
	require.NoError(t, err)
	return resp
}

func (f *fixture) task(t *testing.T, by *identity.Principal, projectID *int64, to *identity.Principal) *dto.TaskResponse {
	t.Helper()
	resp, err := f.tasks.Create(f.ctx, by, &dto.CreateTaskRequest{
		Title:        "task",
		ProjectID:    projectID,
		AssignedToID: to.UserID,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) setStatus(t *testing.T, p *identity.Principal, taskID int64, status string) *dto.TaskResponse {
	t.Helper()
	resp, err := f.tasks.UpdateStatus(f.ctx, p, taskID, &dto.UpdateTaskStatusRequest{Status: status})
	require.NoError(t, err)
	return resp
}

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func assertKind(t *testing.T, err error, kind pkgErrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, pkgErrors.KindOf(err), err.Error())
}

func detailOf(t *testing.T, err error, key string) interface{} {
	t.Helper()
	var appErr *pkgErrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Details[key]
}
