// Package memory 提供 repository 接口的内存实现, 用于 driver=memory 的单机运行和测试.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

// db 所有集合共用一把锁, 每个方法内的读改写是原子的
type db struct {
	mu     sync.RWMutex
	nextID map[string]int64

	users          map[int64]*model.User
	projects       map[int64]*model.Project
	projectMembers map[int64]map[int64]time.Time // projectID -> userID -> joinedAt
	tasks          map[int64]*model.Task
	teams          map[int64]*model.Team
	teamMembers    map[int64]map[int64]time.Time
	accessTokens   map[int64]*model.ProjectAccessToken
	secrets        map[int64]*model.Secret
	secretAccess   map[int64]map[int64]time.Time
	memberships    map[int64]*model.MembershipRequest
}

// NewStore 创建空的内存存储
func NewStore() *repository.Store {
	d := &db{
		nextID:         make(map[string]int64),
		users:          make(map[int64]*model.User),
		projects:       make(map[int64]*model.Project),
		projectMembers: make(map[int64]map[int64]time.Time),
		tasks:          make(map[int64]*model.Task),
		teams:          make(map[int64]*model.Team),
		teamMembers:    make(map[int64]map[int64]time.Time),
		accessTokens:   make(map[int64]*model.ProjectAccessToken),
		secrets:        make(map[int64]*model.Secret),
		secretAccess:   make(map[int64]map[int64]time.Time),
		memberships:    make(map[int64]*model.MembershipRequest),
	}
	return &repository.Store{
		Users:        &userRepo{d},
		Projects:     &projectRepo{d},
		Tasks:        &taskRepo{d},
		Teams:        &teamRepo{d},
		AccessTokens: &accessTokenRepo{d},
		Secrets:      &secretRepo{d},
		Memberships:  &membershipRepo{d},
	}
}

func (d *db) newID(table string) int64 {
	d.nextID[table]++
	return d.nextID[table]
}

func stamp(base *model.BaseModel, id int64) {
	now := time.Now()
	base.ID = id
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func ptrTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func ptrInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func ptrString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneStrings(l model.StringList) model.StringList {
	if l == nil {
		return nil
	}
	return append(model.StringList{}, l...)
}

func sortedKeys(m map[int64]time.Time) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func paginate[T any](items []T, p repository.Page) []T {
	if p.PageSize <= 0 {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func duplicate(msg string) error {
	return pkgErrors.Conflict(msg + ": 数据已存在")
}

func newestFirst(a, b model.BaseModel) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func isDone(status string) bool {
	return status == constants.TaskStatusDone
}
