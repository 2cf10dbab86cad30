package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id int64) (*model.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]*model.Project, int64, error)
	// Update 只更新基本字段, 不含负责人; 已关闭的项目返回 Conflict
	Update(ctx context.Context, project *model.Project) error
	// ChangeLead 比较并交换负责人, 负责人已被并发修改或项目已关闭时返回 Conflict
	ChangeLead(ctx context.Context, id, from, to int64) (*model.Project, error)
	AddMember(ctx context.Context, projectID, userID int64) error
	RemoveMember(ctx context.Context, projectID, userID int64) (bool, error)
	// Close 在事务内复查任务完成情况并比较并交换状态
	Close(ctx context.Context, id, actorID int64, at time.Time) (*model.Project, error)
	// DeleteClosed 只删除已关闭的项目, 先级联删除任务
	DeleteClosed(ctx context.Context, id int64) (ProjectDeleteResult, error)
	ListIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	ListIDsLedBy(ctx context.Context, userID int64) ([]int64, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return wrapError("创建项目失败", err)
	}
	return nil
}

func (r *projectRepository) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Preload("Members").First(&project, id).Error; err != nil {
		return nil, wrapError("查询项目失败", err)
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]*model.Project, int64, error) {
	var projects []*model.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Project{})
	if filter.VisibleTo != nil {
		query = query.Where("lead_id = ? OR id IN (?)", *filter.VisibleTo,
			r.db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", *filter.VisibleTo))
	}
	if filter.IDs != nil {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.LeadID != nil {
		query = query.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		query = query.Where("name LIKE ? OR description LIKE ?", like(filter.Keyword), like(filter.Keyword))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapError("统计项目数量失败", err)
	}
	err := filter.Page.apply(query).Preload("Members").Order("created_at DESC, id DESC").Find(&projects).Error
	if err != nil {
		return nil, 0, wrapError("查询项目列表失败", err)
	}
	return projects, total, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND status <> ?", project.ID, constants.ProjectStatusClosed).
		Select("name", "description", "status", "priority", "start_date", "end_date", "updated_at").
		Updates(project)
	if result.Error != nil {
		return wrapError("更新项目失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.Conflict("项目已关闭，无法修改")
	}
	return nil
}

func (r *projectRepository) ChangeLead(ctx context.Context, id, from, to int64) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 锁住新负责人, 与降级为 Member 的事务互斥
		var lead model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lead, to).Error; err != nil {
			return wrapError("查询用户失败", err)
		}
		if lead.Role == constants.RoleMember {
			return pkgErrors.Conflict("Member 不能担任项目负责人").WithDetail("role", lead.Role)
		}

		result := tx.Model(&model.Project{}).
			Where("id = ? AND lead_id = ? AND status <> ?", id, from, constants.ProjectStatusClosed).
			Updates(map[string]interface{}{"lead_id": to, "updated_at": time.Now()})
		if result.Error != nil {
			return wrapError("更换项目负责人失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.ErrStatusConflict
		}
		if err := tx.Preload("Members").First(&project, id).Error; err != nil {
			return wrapError("查询项目失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) AddMember(ctx context.Context, projectID, userID int64) error {
	member := &model.ProjectMember{ProjectID: projectID, UserID: userID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error
	if err != nil {
		return wrapError("添加项目成员失败", err)
	}
	return nil
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{})
	if result.Error != nil {
		return false, wrapError("移除项目成员失败", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *projectRepository) Close(ctx context.Context, id, actorID int64, at time.Time) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&project, id).Error; err != nil {
			return wrapError("查询项目失败", err)
		}
		if project.IsClosed() {
			return pkgErrors.Conflict("项目已关闭")
		}

		var stats TaskStats
		if err := countTasks(tx, id, &stats); err != nil {
			return err
		}
		if stats.Total == 0 || stats.Pending() > 0 {
			return pkgErrors.Conflict("项目仍有未完成的任务").
				WithDetail("totalTasks", stats.Total).
				WithDetail("pendingTasks", stats.Pending())
		}

		from := project.Status
		project.Status = constants.ProjectStatusClosed
		project.ClosedAt = &at
		project.ClosedByID = &actorID
		project.Progress = 100

		// 乐观锁: 只在状态未被并发修改时更新
		result := tx.Model(&model.Project{}).
			Where("id = ? AND status = ?", id, from).
			Updates(map[string]interface{}{
				"status":       project.Status,
				"closed_at":    project.ClosedAt,
				"closed_by_id": project.ClosedByID,
				"progress":     project.Progress,
				"updated_at":   at,
			})
		if result.Error != nil {
			return wrapError("关闭项目失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.ErrStatusConflict
		}
		return tx.Where("project_id = ?", id).Find(&project.Members).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) DeleteClosed(ctx context.Context, id int64) (ProjectDeleteResult, error) {
	var result ProjectDeleteResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&project, id).Error; err != nil {
			return wrapError("查询项目失败", err)
		}
		if !project.IsClosed() {
			return pkgErrors.Conflict("只能删除已关闭的项目").WithDetail("status", project.Status)
		}

		res := tx.Where("project_id = ?", id).Delete(&model.Task{})
		if res.Error != nil {
			return wrapError("删除项目任务失败", res.Error)
		}
		result.Tasks = res.RowsAffected

		res = tx.Where("project_id = ?", id).Delete(&model.ProjectAccessToken{})
		if res.Error != nil {
			return wrapError("删除访客码失败", res.Error)
		}
		result.AccessTokens = res.RowsAffected

		res = tx.Where("project_id = ?", id).Delete(&model.MembershipRequest{})
		if res.Error != nil {
			return wrapError("删除加入申请失败", res.Error)
		}
		result.MembershipRequests = res.RowsAffected

		res = tx.Where("project_id = ?", id).Delete(&model.ProjectMember{})
		if res.Error != nil {
			return wrapError("删除项目成员失败", res.Error)
		}
		result.Members = res.RowsAffected

		res = tx.Where("id = ? AND status = ?", id, constants.ProjectStatusClosed).Delete(&model.Project{})
		if res.Error != nil {
			return wrapError("删除项目失败", res.Error)
		}
		if res.RowsAffected == 0 {
			return pkgErrors.ErrStatusConflict
		}
		return nil
	})
	return result, err
}

func (r *projectRepository) ListIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("lead_id = ? OR id IN (?)", userID,
			r.db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrapError("查询用户项目失败", err)
	}
	return ids, nil
}

func (r *projectRepository) ListIDsLedBy(ctx context.Context, userID int64) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&model.Project{}).Where("lead_id = ?", userID).Pluck("id", &ids).Error
	if err != nil {
		return nil, wrapError("查询负责项目失败", err)
	}
	return ids, nil
}
