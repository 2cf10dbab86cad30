package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
	"taskhub/internal/pkg/config"
	"taskhub/internal/pkg/database"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// newTestStore 每个测试一个独立的 sqlite 文件, 走与线上相同的迁移
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		Database:     filepath.Join(t.TempDir(), "taskhub.db"),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     "silent",
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return NewStore(db)
}

func seedUser(t *testing.T, s *Store, name, role string) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func seedProject(t *testing.T, s *Store, lead *model.User, members ...*model.User) *model.Project {
	t.Helper()
	p := &model.Project{
		Name:     "Apollo",
		LeadID:   lead.ID,
		Status:   constants.ProjectStatusNotStarted,
		Priority: constants.PriorityMedium,
	}
	for _, m := range members {
		p.Members = append(p.Members, model.ProjectMember{UserID: m.ID})
	}
	require.NoError(t, s.Projects.Create(context.Background(), p))
	return p
}

func seedTask(t *testing.T, s *Store, projectID *int64, to, by *model.User, status string) *model.Task {
	t.Helper()
	task := &model.Task{
		Title:        fmt.Sprintf("task for %s", to.Name),
		ProjectID:    projectID,
		AssignedToID: to.ID,
		AssignedByID: by.ID,
		Status:       status,
		Priority:     constants.PriorityMedium,
	}
	if status == constants.TaskStatusDone {
		now := time.Now()
		task.CompletedAt = &now
	}
	require.NoError(t, s.Tasks.Create(context.Background(), task))
	return task
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
