package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"taskhub/internal/adapter/notification"
	"taskhub/internal/core/identity"
	"taskhub/internal/core/lifecycle"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/pkg/auth"
	"taskhub/internal/repository"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type TaskService interface {
	Create(ctx context.Context, p *identity.Principal, req *dto.CreateTaskRequest) (*dto.TaskResponse, error)
	Get(ctx context.Context, p *identity.Principal, id int64) (*dto.TaskResponse, error)
	List(ctx context.Context, p *identity.Principal, req *dto.TaskListQuery) ([]*dto.TaskResponse, int64, error)
	Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	ToggleSubtask(ctx context.Context, p *identity.Principal, id int64, subtaskID string) (*dto.TaskResponse, error)
	UpdateStatus(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error)
	Reassign(ctx context.Context, p *identity.Principal, id int64, req *dto.ReassignTaskRequest) (*dto.TaskResponse, error)
	Delete(ctx context.Context, p *identity.Principal, id int64) error
}

type taskService struct {
	store    *repository.Store
	engine   *policy.Engine
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewTaskService(store *repository.Store, engine *policy.Engine, notifier Notifier, logger *zap.Logger) TaskService {
	return &taskService{
		store:    store,
		engine:   engine,
		notifier: orNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, p *identity.Principal, req *dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var project *model.Project
	if req.ProjectID != nil {
		found, err := s.store.Projects.FindByID(ctx, *req.ProjectID)
		if err != nil {
			return nil, notFound(err, "项目不存在")
		}
		project = found
	}
	assignee, err := s.store.Users.FindByID(ctx, req.AssignedToID)
	if err != nil && !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}

	if err := s.engine.Check(p, policy.CreateTask{Project: project, Assignee: assignee}); err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		ProjectID:    req.ProjectID,
		AssignedToID: assignee.ID,
		AssignedByID: p.UserID,
		Status:       constants.TaskStatusTodo,
		Priority:     lo.Ternary(req.Priority == "", constants.PriorityMedium, req.Priority),
		DueDate:      req.DueDate,
		Skills:       normalizeSkills(req.Skills),
		Subtasks:     toSubtasks(req.Subtasks),
	}
	if task.Title == "" {
		return nil, pkgErrors.Validation("任务标题不能为空")
	}
	if req.Status != "" {
		if _, err := lifecycle.ApplyTaskStatus(task, req.Status, s.now()); err != nil {
			return nil, err
		}
	}

	if err := s.store.Tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	if assignee.ID != p.UserID {
		s.notifier.Notify(&notification.NotificationMessage{
			Type:    notification.NotifyTaskAssigned,
			To:      []string{assignee.Email},
			Title:   fmt.Sprintf("新任务: %s", task.Title),
			Content: fmt.Sprintf("%s 给你指派了任务「%s」。", p.Name, task.Title),
			Extra:   map[string]interface{}{"task_id": task.ID},
		})
	}
	return toTaskResponse(task), nil
}

func (s *taskService) Get(ctx context.Context, p *identity.Principal, id int64) (*dto.TaskResponse, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ViewTask{Task: task, Project: project}); err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

func (s *taskService) List(ctx context.Context, p *identity.Principal, req *dto.TaskListQuery) ([]*dto.TaskResponse, int64, error) {
	if p == nil {
		return nil, 0, pkgErrors.ErrUnauthorized
	}

	filter := repository.TaskFilter{
		ProjectID:    req.ProjectID,
		AssignedToID: req.AssignedToID,
		Status:       req.Status,
		Page:         repository.Page{Page: req.GetPage(), PageSize: req.GetPageSize()},
	}
	switch {
	case p.IsGuest:
		if p.ProjectScope == nil {
			return []*dto.TaskResponse{}, 0, nil
		}
		if req.ProjectID != nil && *req.ProjectID != *p.ProjectScope {
			return nil, 0, pkgErrors.Forbidden("访客只能访问受邀项目")
		}
		filter.ProjectID = p.ProjectScope
	case auth.Allow(p.Role, auth.PermTaskViewAll):
	default:
		projectIDs, err := s.store.Projects.ListIDsForUser(ctx, p.UserID)
		if err != nil {
			return nil, 0, err
		}
		filter.VisibleTo = &p.UserID
		filter.VisibleProjectIDs = projectIDs
	}

	tasks, total, err := s.store.Tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return lo.Map(tasks, func(t *model.Task, _ int) *dto.TaskResponse { return toTaskResponse(t) }), total, nil
}

func (s *taskService) Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.UpdateTask{Task: task, Project: project}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkgErrors.Validation("任务标题不能为空")
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Skills != nil {
		task.Skills = normalizeSkills(req.Skills)
	}
	if req.Subtasks != nil {
		task.Subtasks = toSubtasks(req.Subtasks)
	}

	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

func (s *taskService) ToggleSubtask(ctx context.Context, p *identity.Principal, id int64, subtaskID string) (*dto.TaskResponse, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.UpdateTask{Task: task, Project: project}); err != nil {
		return nil, err
	}

	_, idx, ok := lo.FindIndexOf(task.Subtasks, func(st model.Subtask) bool { return st.ID == subtaskID })
	if !ok {
		return nil, pkgErrors.NotFound("子任务不存在").WithDetail("subtaskId", subtaskID)
	}
	task.Subtasks[idx].Completed = !task.Subtasks[idx].Completed

	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

func (s *taskService) UpdateStatus(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTaskStatusRequest) (*dto.TaskResponse, error) {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.UpdateTaskStatus{Task: task, Project: project, Status: req.Status}); err != nil {
		return nil, err
	}

	from, err := lifecycle.ApplyTaskStatus(task, req.Status, s.now())
	if err != nil {
		return nil, err
	}
	// 按原状态做条件更新, 并发修改同一任务时后到者返回 Conflict
	if err := s.store.Tasks.UpdateStatus(ctx, task, from); err != nil {
		return nil, err
	}

	s.logger.Debug("修改任务状态",
		zap.Int64("operator", p.UserID),
		zap.Int64("task_id", id),
		zap.String("from", from),
		zap.String("to", task.Status))

	return toTaskResponse(task), nil
}

func (s *taskService) Reassign(ctx context.Context, p *identity.Principal, id int64, req *dto.ReassignTaskRequest) (*dto.TaskResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	task, project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	assignee, err := s.store.Users.FindByID(ctx, req.AssignedToID)
	if err != nil && !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ReassignTask{Task: task, Project: project, NewAssignee: assignee}); err != nil {
		return nil, err
	}
	if task.AssignedToID == assignee.ID {
		return toTaskResponse(task), nil
	}

	from := task.AssignedToID
	if err := s.store.Tasks.Reassign(ctx, id, from, assignee.ID); err != nil {
		return nil, err
	}
	task.AssignedToID = assignee.ID

	s.logger.Info("转派任务",
		zap.Int64("operator", p.UserID),
		zap.Int64("task_id", id),
		zap.Int64("from", from),
		zap.Int64("to", assignee.ID))

	s.notifier.Notify(&notification.NotificationMessage{
		Type:    notification.NotifyTaskReassigned,
		To:      []string{assignee.Email},
		Title:   fmt.Sprintf("任务转派: %s", task.Title),
		Content: fmt.Sprintf("%s 将任务「%s」转派给了你。", p.Name, task.Title),
		Extra:   map[string]interface{}{"task_id": task.ID, "from": from},
	})
	return toTaskResponse(task), nil
}

func (s *taskService) Delete(ctx context.Context, p *identity.Principal, id int64) error {
	task, project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.Check(p, policy.DeleteTask{Task: task, Project: project}); err != nil {
		return err
	}
	return s.store.Tasks.Delete(ctx, id)
}

// load 加载任务及其所属项目, 个人任务的项目为 nil
func (s *taskService) load(ctx context.Context, id int64) (*model.Task, *model.Project, error) {
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "任务不存在")
	}
	if task.ProjectID == nil {
		return task, nil, nil
	}
	project, err := s.store.Projects.FindByID(ctx, *task.ProjectID)
	if err != nil {
		return nil, nil, notFound(err, "项目不存在")
	}
	return task, project, nil
}

func toSubtasks(inputs []dto.SubtaskInput) datatypes.JSONSlice[model.Subtask] {
	subtasks := make(datatypes.JSONSlice[model.Subtask], 0, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = uuid.NewString()
		}
		subtasks = append(subtasks, model.Subtask{
			ID:        id,
			Title:     strings.TrimSpace(in.Title),
			Completed: in.Completed,
		})
	}
	return subtasks
}

func toTaskResponse(t *model.Task) *dto.TaskResponse {
	skills := []string(t.Skills)
	if skills == nil {
		skills = []string{}
	}
	subtasks := make([]dto.SubtaskResponse, 0, len(t.Subtasks))
	for _, st := range t.Subtasks {
		subtasks = append(subtasks, dto.SubtaskResponse{ID: st.ID, Title: st.Title, Completed: st.Completed})
	}
	return &dto.TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		ProjectID:    t.ProjectID,
		AssignedToID: t.AssignedToID,
		AssignedByID: t.AssignedByID,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		CompletedAt:  t.CompletedAt,
		Skills:       skills,
		Subtasks:     subtasks,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
