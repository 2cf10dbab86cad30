package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*model.Task, int64, error)
	// Update 更新任务详情（不含状态与负责人）
	Update(ctx context.Context, task *model.Task) error
	// UpdateStatus 比较并交换 status, 同时写入 completed_at
	UpdateStatus(ctx context.Context, task *model.Task, from string) error
	// Reassign 比较并交换 assigned_to_id
	Reassign(ctx context.Context, id, from, to int64) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, projectID int64) (TaskStats, error)
	StatsByProjects(ctx context.Context, projectIDs []int64) (map[int64]TaskStats, error)
	CountAssignedTo(ctx context.Context, userID int64) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return wrapError("创建任务失败", err)
	}
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, wrapError("查询任务失败", err)
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]*model.Task, int64, error) {
	var tasks []*model.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Task{})
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.AssignedByID != nil {
		query = query.Where("assigned_by_id = ?", *filter.AssignedByID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VisibleTo != nil {
		if len(filter.VisibleProjectIDs) > 0 {
			query = query.Where("assigned_to_id = ? OR assigned_by_id = ? OR project_id IN ?",
				*filter.VisibleTo, *filter.VisibleTo, filter.VisibleProjectIDs)
		} else {
			query = query.Where("assigned_to_id = ? OR assigned_by_id = ?", *filter.VisibleTo, *filter.VisibleTo)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapError("统计任务数量失败", err)
	}
	if err := filter.Page.apply(query).Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, 0, wrapError("查询任务列表失败", err)
	}
	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Model(task).
		Select("title", "description", "priority", "due_date", "skills", "subtasks", "updated_at").
		Updates(task).Error
	if err != nil {
		return wrapError("更新任务失败", err)
	}
	return nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, task *model.Task, from string) error {
	task.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND status = ?", task.ID, from).
		Updates(map[string]interface{}{
			"status":       task.Status,
			"completed_at": task.CompletedAt,
			"updated_at":   task.UpdatedAt,
		})
	if result.Error != nil {
		return wrapError("更新任务状态失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrStatusConflict
	}
	return nil
}

func (r *taskRepository) Reassign(ctx context.Context, id, from, to int64) error {
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND assigned_to_id = ?", id, from).
		Updates(map[string]interface{}{"assigned_to_id": to, "updated_at": time.Now()})
	if result.Error != nil {
		return wrapError("转派任务失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrStatusConflict
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if result.Error != nil {
		return wrapError("删除任务失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) Stats(ctx context.Context, projectID int64) (TaskStats, error) {
	var stats TaskStats
	err := countTasks(r.db.WithContext(ctx), projectID, &stats)
	return stats, err
}

func countTasks(db *gorm.DB, projectID int64, stats *TaskStats) error {
	if err := db.Model(&model.Task{}).Where("project_id = ?", projectID).Count(&stats.Total).Error; err != nil {
		return wrapError("统计任务数量失败", err)
	}
	err := db.Model(&model.Task{}).
		Where("project_id = ? AND status = ?", projectID, constants.TaskStatusDone).
		Count(&stats.Done).Error
	if err != nil {
		return wrapError("统计任务数量失败", err)
	}
	return nil
}

func (r *taskRepository) StatsByProjects(ctx context.Context, projectIDs []int64) (map[int64]TaskStats, error) {
	stats := make(map[int64]TaskStats, len(projectIDs))
	if len(projectIDs) == 0 {
		return stats, nil
	}

	var rows []struct {
		ProjectID int64
		Total     int64
		Done      int64
		Todo      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("project_id, COUNT(*) AS total, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS done, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS todo",
			constants.TaskStatusDone, constants.TaskStatusTodo).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapError("统计任务数量失败", err)
	}
	for _, row := range rows {
		stats[row.ProjectID] = TaskStats{Total: row.Total, Done: row.Done, Todo: row.Todo}
	}
	return stats, nil
}

func (r *taskRepository) CountAssignedTo(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("assigned_to_id = ?", userID).Count(&n).Error; err != nil {
		return 0, wrapError("统计任务数量失败", err)
	}
	return n, nil
}
