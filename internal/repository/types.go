package repository

import (
	"errors"

	"gorm.io/gorm"

	pkgErrors "taskhub/pkg/errors"
)

// Store 所有数据访问对象的集合, 由 main 显式构造并注入到各个服务
type Store struct {
	Users        UserRepository
	Projects     ProjectRepository
	Tasks        TaskRepository
	Teams        TeamRepository
	AccessTokens AccessTokenRepository
	Secrets      SecretRepository
	Memberships  MembershipRequestRepository
}

// NewStore 基于 gorm 的实现
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Users:        NewUserRepository(db),
		Projects:     NewProjectRepository(db),
		Tasks:        NewTaskRepository(db),
		Teams:        NewTeamRepository(db),
		AccessTokens: NewAccessTokenRepository(db),
		Secrets:      NewSecretRepository(db),
		Memberships:  NewMembershipRequestRepository(db),
	}
}

// Page 分页参数, PageSize <= 0 表示不分页
type Page struct {
	Page     int
	PageSize int
}

func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return db
	}
	return db.Offset(p.Offset()).Limit(p.PageSize)
}

// UserFilter 用户查询条件
type UserFilter struct {
	Keyword string
	Role    string
	Page
}

// ProjectFilter 项目查询条件
type ProjectFilter struct {
	// VisibleTo 非空时只返回该用户负责或参与的项目
	VisibleTo *int64
	IDs       []int64
	LeadID    *int64
	Status    string
	Keyword   string
	Page
}

// TaskFilter 任务查询条件
type TaskFilter struct {
	ProjectID    *int64
	AssignedToID *int64
	AssignedByID *int64
	Status       string
	// VisibleTo 非空时只返回与该用户相关的任务: 指派给他的, 他指派的, 以及 VisibleProjectIDs 中的项目任务
	VisibleTo         *int64
	VisibleProjectIDs []int64
	Page
}

// TaskStats 项目任务统计
type TaskStats struct {
	Total int64 `json:"total"`
	Done  int64 `json:"done"`
	// Todo 只在 StatsByProjects 中统计
	Todo int64 `json:"todo"`
}

func (s TaskStats) Pending() int64 {
	return s.Total - s.Done
}

// Started 存在已离开 Todo 的任务
func (s TaskStats) Started() bool {
	return s.Total-s.Todo > 0
}

// ProjectDeleteResult 删除项目时级联清理的数量
type ProjectDeleteResult struct {
	Tasks              int64 `json:"tasks"`
	Members            int64 `json:"members"`
	AccessTokens       int64 `json:"access_tokens"`
	MembershipRequests int64 `json:"membership_requests"`
}

// UserUnlinkResult 删除用户时解除的组织关联数量
type UserUnlinkResult struct {
	TeamMemberships    int64 `json:"team_memberships"`
	TeamsLed           int64 `json:"teams_led"`
	SecretGrants       int64 `json:"secret_grants"`
	MembershipRequests int64 `json:"membership_requests"`
}

// UserReferences 阻止删除用户的引用数量
type UserReferences struct {
	AssignedTasks   int64 `json:"assigned_tasks"`
	AssignedByTasks int64 `json:"assigned_by_tasks"`
	LedProjects     int64 `json:"led_projects"`
	MemberProjects  int64 `json:"member_projects"`
}

func (r UserReferences) Blocking() bool {
	return r.AssignedTasks > 0 || r.AssignedByTasks > 0 || r.LedProjects > 0 || r.MemberProjects > 0
}

// wrapError 统一转换 gorm 错误
func wrapError(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgErrors.ErrRecordNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgErrors.Wrap(pkgErrors.KindConflict, msg+": 数据已存在", err)
	}
	var appErr *pkgErrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return pkgErrors.Internal(msg, err)
}

func like(keyword string) string {
	return "%" + keyword + "%"
}
