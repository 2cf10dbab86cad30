package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/core/identity"
	"taskhub/internal/core/policy"
	"taskhub/internal/dto"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	pkgErrors "taskhub/pkg/errors"
)

type TeamService interface {
	Create(ctx context.Context, p *identity.Principal, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	GetByID(ctx context.Context, p *identity.Principal, id int64) (*dto.TeamResponse, error)
	List(ctx context.Context, p *identity.Principal, keyword string) ([]*dto.TeamResponse, error)
	Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error)
	Delete(ctx context.Context, p *identity.Principal, id int64) error
	AddMember(ctx context.Context, p *identity.Principal, id int64, req *dto.TeamMemberRequest) (*dto.TeamResponse, error)
	RemoveMember(ctx context.Context, p *identity.Principal, id, userID int64) (*dto.TeamResponse, error)
}

type teamService struct {
	repo   repository.TeamRepository
	users  repository.UserRepository
	engine *policy.Engine
	logger *zap.Logger
}

func NewTeamService(store *repository.Store, engine *policy.Engine, logger *zap.Logger) TeamService {
	return &teamService{
		repo:   store.Teams,
		users:  store.Users,
		engine: engine,
		logger: logger,
	}
}

// nameTaken 名称被其他团队占用; excludeID 为正在修改的团队
func (s *teamService) nameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if pkgErrors.Is(err, pkgErrors.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}

func (s *teamService) Create(ctx context.Context, p *identity.Principal, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgErrors.Validation("团队名称不能为空")
	}
	taken, err := s.nameTaken(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Check(p, policy.CreateTeam{NameTaken: taken}); err != nil {
		return nil, err
	}

	ids := append([]int64{}, req.MemberIDs...)
	if req.LeaderID != nil {
		ids = append(ids, *req.LeaderID)
	}
	if _, err := requireUsers(ctx, s.users, ids); err != nil {
		return nil, err
	}

	team := &model.Team{
		Name:        name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
	}
	seen := make(map[int64]bool, len(req.MemberIDs))
	for _, uid := range req.MemberIDs {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		team.Members = append(team.Members, model.TeamMember{UserID: uid})
	}

	// 唯一索引兜底并发创建同名团队
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info("创建团队", zap.Int64("operator", p.UserID), zap.Int64("team_id", team.ID), zap.String("name", name))
	return s.reload(ctx, team.ID)
}

func (s *teamService) GetByID(ctx context.Context, p *identity.Principal, id int64) (*dto.TeamResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *teamService) List(ctx context.Context, p *identity.Principal, keyword string) ([]*dto.TeamResponse, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	teams, err := s.repo.List(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, teams)
}

func (s *teamService) Update(ctx context.Context, p *identity.Principal, id int64, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error) {
	if err := s.engine.Check(p, policy.ManageTeams{}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "团队不存在")
	}

	// 检查名称是否冲突
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgErrors.Validation("团队名称不能为空")
		}
		taken, err := s.nameTaken(ctx, name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, pkgErrors.Conflict("团队名称已存在").WithDetail("name", name)
		}
		team.Name = name
	}
	if req.Description != nil {
		team.Description = req.Description
	}
	if req.LeaderID != nil {
		if *req.LeaderID == 0 {
			team.LeaderID = nil
		} else {
			if _, err := s.users.FindByID(ctx, *req.LeaderID); err != nil {
				return nil, notFound(err, "用户不存在")
			}
			leaderID := *req.LeaderID
			team.LeaderID = &leaderID
		}
	}

	if err := s.repo.Update(ctx, team); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *teamService) Delete(ctx context.Context, p *identity.Principal, id int64) error {
	if err := s.engine.Check(p, policy.ManageTeams{}); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err, "团队不存在")
	}
	return s.repo.Delete(ctx, id)
}

func (s *teamService) AddMember(ctx context.Context, p *identity.Principal, id int64, req *dto.TeamMemberRequest) (*dto.TeamResponse, error) {
	if err := s.engine.Check(p, policy.ManageTeams{}); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "团队不存在")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, notFound(err, "用户不存在")
	}

	if err := s.repo.AddMember(ctx, id, req.UserID); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *teamService) RemoveMember(ctx context.Context, p *identity.Principal, id, userID int64) (*dto.TeamResponse, error) {
	if err := s.engine.Check(p, policy.ManageTeams{}); err != nil {
		return nil, err
	}
	removed, err := s.repo.RemoveMember(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, pkgErrors.NotFound("该用户不是团队成员").WithDetail("userId", userID)
	}
	return s.reload(ctx, id)
}

func (s *teamService) reload(ctx context.Context, id int64) (*dto.TeamResponse, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "团队不存在")
	}
	resp, err := s.toResponses(ctx, []*model.Team{team})
	if err != nil {
		return nil, err
	}
	return resp[0], nil
}

func (s *teamService) toResponses(ctx context.Context, teams []*model.Team) ([]*dto.TeamResponse, error) {
	var ids []int64
	for _, team := range teams {
		ids = append(ids, team.MemberIDs()...)
		if team.LeaderID != nil {
			ids = append(ids, *team.LeaderID)
		}
	}
	users, err := usersByID(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.TeamResponse, len(teams))
	for i, team := range teams {
		members := make([]*dto.UserSimpleResponse, 0, len(team.Members))
		for _, uid := range team.MemberIDs() {
			if u, ok := users[uid]; ok {
				members = append(members, toUserSimple(u))
			}
		}
		var leader *dto.UserSimpleResponse
		if team.LeaderID != nil {
			leader = toUserSimple(users[*team.LeaderID])
		}
		responses[i] = &dto.TeamResponse{
			ID:          team.ID,
			Name:        team.Name,
			Description: team.Description,
			Leader:      leader,
			Members:     members,
			CreatedAt:   team.CreatedAt,
			UpdatedAt:   team.UpdatedAt,
		}
	}
	return responses, nil
}
