package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

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

type ProjectService interface {
	Create(ctx context.Context, p *identity.Principal, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error)
	Get(ctx context.Context, p *identity.Principal, id int64) (*dto.ProjectResponse, error)
	List(ctx context.Context, p *identity.Principal, req *dto.ProjectListQuery) ([]*dto.ProjectResponse, int64, error)
	Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error)
	AddMember(ctx context.Context, p *identity.Principal, id int64, req *dto.AddMemberRequest) (*dto.ProjectResponse, error)
	RemoveMember(ctx context.Context, p *identity.Principal, id, userID int64) (*dto.ProjectResponse, error)
	ChangeLead(ctx context.Context, p *identity.Principal, id int64, req *dto.ChangeLeadRequest) (*dto.ProjectResponse, error)
	// Close 全部任务完成后关闭项目, 关闭后项目及其任务只读
	Close(ctx context.Context, p *identity.Principal, id int64) (*dto.ProjectResponse, error)
	// Delete 删除已关闭的项目并级联删除其任务, 返回级联数量
	Delete(ctx context.Context, p *identity.Principal, id int64) (*dto.DeleteProjectResponse, error)
}

type projectService struct {
	store    *repository.Store
	engine   *policy.Engine
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewProjectService(store *repository.Store, engine *policy.Engine, notifier Notifier, logger *zap.Logger) ProjectService {
	return &projectService{
		store:    store,
		engine:   engine,
		notifier: orNop(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *projectService) Create(ctx context.Context, p *identity.Principal, req *dto.CreateProjectRequest) (*dto.ProjectResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var lead *model.User
	if req.LeadID != nil {
		u, err := s.store.Users.FindByID(ctx, *req.LeadID)
		if err != nil {
			return nil, notFound(err, "负责人不存在")
		}
		lead = u
	}
	if err := s.engine.Check(p, policy.CreateProject{Lead: lead}); err != nil {
		return nil, err
	}

	leadID := p.UserID
	if lead != nil {
		leadID = lead.ID
	}

	memberIDs := lo.Uniq(req.MemberIDs)
	if _, err := requireUsers(ctx, s.store.Users, memberIDs); err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		LeadID:      leadID,
		Status:      lo.Ternary(req.Status == "", constants.ProjectStatusNotStarted, req.Status),
		Priority:    lo.Ternary(req.Priority == "", constants.PriorityMedium, req.Priority),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if project.Name == "" {
		return nil, pkgErrors.Validation("项目名称不能为空")
	}
	if err := checkDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckStoredStatus(project, project.Status); err != nil {
		return nil, err
	}
	for _, uid := range memberIDs {
		project.Members = append(project.Members, model.ProjectMember{UserID: uid})
	}

	if err := s.store.Projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("创建项目",
		zap.Int64("operator", p.UserID),
		zap.Int64("project_id", project.ID),
		zap.Int64("lead_id", leadID))

	return s.reload(ctx, project.ID)
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgErrors.Validation("结束日期不能早于开始日期")
	}
	return nil
}

func (s *projectService) Get(ctx context.Context, p *identity.Principal, id int64) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ViewProject{Project: project}); err != nil {
		return nil, err
	}
	return s.toResponse(ctx, project)
}

func (s *projectService) List(ctx context.Context, p *identity.Principal, req *dto.ProjectListQuery) ([]*dto.ProjectResponse, int64, error) {
	if p == nil {
		return nil, 0, pkgErrors.ErrUnauthorized
	}
	// 访客的可见范围由令牌决定, 不经过 ListProjects 判定
	if !p.IsGuest {
		if err := s.engine.Check(p, policy.ListProjects{}); err != nil {
			return nil, 0, err
		}
	}

	filter := repository.ProjectFilter{
		Status:  req.Status,
		Keyword: strings.TrimSpace(req.Keyword),
		Page:    repository.Page{Page: req.GetPage(), PageSize: req.GetPageSize()},
	}
	switch {
	case p.IsGuest:
		if p.ProjectScope == nil {
			return []*dto.ProjectResponse{}, 0, nil
		}
		filter.IDs = []int64{*p.ProjectScope}
	case auth.Allow(p.Role, auth.PermProjectViewAll):
	default:
		filter.VisibleTo = &p.UserID
	}

	projects, total, err := s.store.Projects.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	resp, err := s.toResponses(ctx, projects)
	if err != nil {
		return nil, 0, err
	}
	return resp, total, nil
}

func (s *projectService) Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateProjectRequest) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.UpdateProject{Project: project}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgErrors.Validation("项目名称不能为空")
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Status != nil {
		if err := lifecycle.CheckStoredStatus(project, *req.Status); err != nil {
			return nil, err
		}
		project.Status = *req.Status
	}
	if req.Priority != nil {
		project.Priority = *req.Priority
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		project.EndDate = req.EndDate
	}
	if err := checkDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.Projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *projectService) AddMember(ctx context.Context, p *identity.Principal, id int64, req *dto.AddMemberRequest) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ManageProjectMembers{Project: project}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.Users.FindByID(ctx, req.UserID); err != nil {
		return nil, notFound(err, "用户不存在")
	}
	if project.HasMember(req.UserID) {
		return nil, pkgErrors.Conflict("已经是该项目的成员").WithDetail("userId", req.UserID)
	}

	if err := s.store.Projects.AddMember(ctx, id, req.UserID); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *projectService) RemoveMember(ctx context.Context, p *identity.Principal, id, userID int64) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ManageProjectMembers{Project: project}); err != nil {
		return nil, err
	}

	removed, err := s.store.Projects.RemoveMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, pkgErrors.NotFound("该用户不是项目成员").WithDetail("userId", userID)
	}
	return s.reload(ctx, id)
}

func (s *projectService) ChangeLead(ctx context.Context, p *identity.Principal, id int64, req *dto.ChangeLeadRequest) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	newLead, err := s.store.Users.FindByID(ctx, req.LeadID)
	if err != nil && !pkgErrors.Is(err, pkgErrors.KindNotFound) {
		return nil, err
	}
	if err := s.engine.Check(p, policy.ChangeProjectLead{Project: project, NewLead: newLead}); err != nil {
		return nil, err
	}
	if project.LeadID == newLead.ID {
		return s.toResponse(ctx, project)
	}

	from := project.LeadID
	project, err = s.store.Projects.ChangeLead(ctx, id, from, newLead.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("更换项目负责人",
		zap.Int64("operator", p.UserID),
		zap.Int64("project_id", id),
		zap.Int64("from", from),
		zap.Int64("to", newLead.ID))

	return s.toResponse(ctx, project)
}

func (s *projectService) Close(ctx context.Context, p *identity.Principal, id int64) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Tasks.Stats(ctx, id)
	if err != nil {
		return nil, err
	}

	action := policy.CloseProject{Project: project, Total: stats.Total, Done: stats.Done}
	if err := s.engine.Check(p, action); err != nil {
		return nil, err
	}

	// 仓储层在事务中复查任务状态, 并发关闭只有一个成功
	closed, err := s.store.Projects.Close(ctx, id, p.UserID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("关闭项目",
		zap.Int64("operator", p.UserID),
		zap.Int64("project_id", id),
		zap.Int64("tasks", stats.Total))

	resp, err := s.toResponse(ctx, closed)
	if err != nil {
		return nil, err
	}
	s.notifyClosed(ctx, closed, p)
	return resp, nil
}

func (s *projectService) notifyClosed(ctx context.Context, project *model.Project, p *identity.Principal) {
	ids := append([]int64{project.LeadID}, project.MemberIDs()...)
	users, err := usersByID(ctx, s.store.Users, ids)
	if err != nil {
		s.logger.Warn("加载通知对象失败", zap.Int64("project_id", project.ID), zap.Error(err))
		return
	}
	s.notifier.Notify(&notification.NotificationMessage{
		Type:    notification.NotifyProjectClosed,
		To:      emailsOf(users, ids...),
		Title:   fmt.Sprintf("项目「%s」已关闭", project.Name),
		Content: fmt.Sprintf("项目「%s」的全部任务已完成, 由 %s 关闭。", project.Name, p.Name),
		Extra:   map[string]interface{}{"project_id": project.ID},
	})
}

func (s *projectService) Delete(ctx context.Context, p *identity.Principal, id int64) (*dto.DeleteProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Tasks.Stats(ctx, id)
	if err != nil {
		return nil, err
	}

	action := policy.DeleteProject{Project: project, Total: stats.Total, Done: stats.Done}
	if err := s.engine.Check(p, action); err != nil {
		return nil, err
	}

	result, err := s.store.Projects.DeleteClosed(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("删除项目",
		zap.Int64("operator", p.UserID),
		zap.Int64("project_id", id),
		zap.Any("cascade", result))

	return &dto.DeleteProjectResponse{
		DeletedTasks:              result.Tasks,
		DeletedMembers:            result.Members,
		DeletedAccessTokens:       result.AccessTokens,
		DeletedMembershipRequests: result.MembershipRequests,
	}, nil
}

func (s *projectService) find(ctx context.Context, id int64) (*model.Project, error) {
	project, err := s.store.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "项目不存在")
	}
	return project, nil
}

func (s *projectService) reload(ctx context.Context, id int64) (*dto.ProjectResponse, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, project)
}

func (s *projectService) toResponse(ctx context.Context, project *model.Project) (*dto.ProjectResponse, error) {
	resp, err := s.toResponses(ctx, []*model.Project{project})
	if err != nil {
		return nil, err
	}
	return resp[0], nil
}

// toResponses 批量加载负责人/成员和任务统计, 推导展示状态
func (s *projectService) toResponses(ctx context.Context, projects []*model.Project) ([]*dto.ProjectResponse, error) {
	ids := make([]int64, 0, len(projects))
	userIDs := make([]int64, 0, len(projects))
	for _, project := range projects {
		ids = append(ids, project.ID)
		userIDs = append(userIDs, project.LeadID)
		userIDs = append(userIDs, project.MemberIDs()...)
	}

	users, err := usersByID(ctx, s.store.Users, userIDs)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Tasks.StatsByProjects(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.ProjectResponse, 0, len(projects))
	for _, project := range projects {
		st := stats[project.ID]
		members := make([]*dto.UserSimpleResponse, 0, len(project.Members))
		for _, uid := range project.MemberIDs() {
			if u, ok := users[uid]; ok {
				members = append(members, toUserSimple(u))
			}
		}
		resp = append(resp, &dto.ProjectResponse{
			ID:            project.ID,
			Name:          project.Name,
			Description:   project.Description,
			Lead:          toUserSimple(users[project.LeadID]),
			Members:       members,
			Status:        project.Status,
			DerivedStatus: lifecycle.DerivedStatus(project, st.Total, st.Done, st.Started()),
			Priority:      project.Priority,
			Progress:      lifecycle.Progress(project, st.Total, st.Done),
			TotalTasks:    st.Total,
			DoneTasks:     st.Done,
			StartDate:     project.StartDate,
			EndDate:       project.EndDate,
			ClosedAt:      project.ClosedAt,
			ClosedByID:    project.ClosedByID,
			CreatedAt:     project.CreatedAt,
			UpdatedAt:     project.UpdatedAt,
		})
	}
	return resp, nil
}
