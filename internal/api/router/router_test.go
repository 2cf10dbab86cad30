package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core"
	"taskhub/internal/pkg/config"
	"taskhub/internal/repository/memory"
	"taskhub/pkg/constants"
)

type envelope struct {
	Code    int                    `json:"code"`
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
	Data    json.RawMessage        `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "taskhub", Mode: "test"},
		Auth: config.AuthConfig{
			JWT:        config.JWTConfig{Secret: "test-secret", AccessTokenExpire: 3600, GuestTokenExpire: 600},
			Local:      config.LocalConfig{Enabled: true},
			CookieName: "token",
		},
		Policy:       config.PolicyConfig{LeadGlobalTaskStatus: true, MinAccessCodeLength: 6},
		Notification: config.NotificationConfig{Timeout: "1s"},
	}
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	engine := core.NewCoreEngine(cfg, memory.NewStore(), notification.NewLogNotifier(zap.NewNop()), zap.NewNop())
	return Setup(cfg, engine, zap.NewNop())
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.HeaderBearerPrefix+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

type loginData struct {
	AccessToken string `json:"access_token"`
	User        struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	} `json:"user"`
}

func signup(t *testing.T, r *gin.Engine, name string) loginData {
	t.Helper()
	w, env := call(t, r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"name":     name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data loginData
	decode(t, env, &data)
	return data
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupSetsCookieAndFirstUserIsAdmin(t *testing.T) {
	r := setupRouter(t)

	w, env := call(t, r, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"name": "root", "email": "root@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var data loginData
	decode(t, env, &data)
	assert.Equal(t, constants.RoleAdmin, data.User.Role)
	assert.NotEmpty(t, data.AccessToken)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	second := signup(t, r, "bob")
	assert.Equal(t, constants.RoleMember, second.User.Role)
}

func TestCookieAuthentication(t *testing.T) {
	r := setupRouter(t)
	admin := signup(t, r, "root")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: admin.AccessToken})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"root@example.com"`)
}

func TestUnauthenticated(t *testing.T) {
	r := setupRouter(t)

	w, env := call(t, r, http.MethodGet, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", env.Kind)

	w, _ = call(t, r, http.MethodGet, "/api/v1/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidationError(t *testing.T) {
	r := setupRouter(t)
	admin := signup(t, r, "root")

	w, env := call(t, r, http.MethodPost, "/api/v1/tasks", admin.AccessToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", env.Kind)

	w, env = call(t, r, http.MethodGet, "/api/v1/projects/abc", admin.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", env.Kind)
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	r := setupRouter(t)
	admin := signup(t, r, "root")
	lead := signup(t, r, "lena")
	member := signup(t, r, "mike")

	w, _ := call(t, r, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/role", lead.User.UserID), admin.AccessToken, gin.H{"role": constants.RoleLead})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Member 不能创建项目
	w, env := call(t, r, http.MethodPost, "/api/v1/projects", member.AccessToken, gin.H{"name": "Nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Kind)

	w, env = call(t, r, http.MethodPost, "/api/v1/projects", admin.AccessToken, gin.H{
		"name":       "Apollo",
		"lead_id":    lead.User.UserID,
		"member_ids": []int64{member.User.UserID},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var project struct {
		ID       int64 `json:"id"`
		Progress int   `json:"progress"`
		Status   string
	}
	decode(t, env, &project)

	w, env = call(t, r, http.MethodPost, "/api/v1/tasks", lead.AccessToken, gin.H{
		"title":          "Launch",
		"project_id":     project.ID,
		"assigned_to_id": member.User.UserID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var task struct {
		ID int64 `json:"id"`
	}
	decode(t, env, &task)

	closePath := fmt.Sprintf("/api/v1/projects/%d/close", project.ID)
	w, env = call(t, r, http.MethodPost, closePath, lead.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Kind)
	assert.EqualValues(t, 1, env.Details["pendingTasks"])

	w, _ = call(t, r, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/status", task.ID), member.AccessToken, gin.H{"status": constants.TaskStatusDone})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = call(t, r, http.MethodPost, closePath, lead.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, env, &project)
	assert.Equal(t, 100, project.Progress)
	assert.Equal(t, constants.ProjectStatusClosed, project.Status)

	// 关闭后只读
	w, _ = call(t, r, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d", task.ID), lead.AccessToken, gin.H{"title": "Again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = call(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", project.ID), lead.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = call(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", project.ID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var deleted struct {
		DeletedTasks int64 `json:"deleted_tasks"`
	}
	decode(t, env, &deleted)
	assert.Equal(t, int64(1), deleted.DeletedTasks)

	w, _ = call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", project.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestAccessOverHTTP(t *testing.T) {
	r := setupRouter(t)
	admin := signup(t, r, "root")

	w, env := call(t, r, http.MethodPost, "/api/v1/projects", admin.AccessToken, gin.H{"name": "Apollo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var project struct {
		ID int64 `json:"id"`
	}
	decode(t, env, &project)

	w, env = call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/access-tokens", project.ID), admin.AccessToken, gin.H{
		"email": "Visitor@Example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var token struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Token string `json:"token"`
	}
	decode(t, env, &token)
	assert.Equal(t, "visitor@example.com", token.Email)

	w, env = call(t, r, http.MethodPost, "/api/v1/auth/login/guest", "", gin.H{"code": token.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var guest loginData
	decode(t, env, &guest)

	w, _ = call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", project.ID), guest.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/v1/tasks", guest.AccessToken, gin.H{
		"title": "x", "project_id": project.ID, "assigned_to_id": admin.User.UserID,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d/access-tokens/%d", project.ID, token.ID), admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, r, http.MethodPost, "/api/v1/auth/login/guest", "", gin.H{"code": token.Token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	r := setupRouter(t)

	w, _ := call(t, r, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}
