package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	FindByID(ctx context.Context, id int64) (*model.Team, error)
	FindByName(ctx context.Context, name string) (*model.Team, error)
	List(ctx context.Context, keyword string) ([]*model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, teamID, userID int64) error
	RemoveMember(ctx context.Context, teamID, userID int64) (bool, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	if err := r.db.WithContext(ctx).Create(team).Error; err != nil {
		return wrapError("创建团队失败", err)
	}
	return nil
}

func (r *teamRepository) FindByID(ctx context.Context, id int64) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).Preload("Members").First(&team, id).Error; err != nil {
		return nil, wrapError("查询团队失败", err)
	}
	return &team, nil
}

func (r *teamRepository) FindByName(ctx context.Context, name string) (*model.Team, error) {
	var team model.Team
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&team).Error; err != nil {
		return nil, wrapError("查询团队失败", err)
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context, keyword string) ([]*model.Team, error) {
	var teams []*model.Team
	query := r.db.WithContext(ctx).Preload("Members")
	if keyword != "" {
		query = query.Where("name LIKE ?", like(keyword))
	}
	if err := query.Order("name ASC").Find(&teams).Error; err != nil {
		return nil, wrapError("查询团队列表失败", err)
	}
	return teams, nil
}

func (r *teamRepository) Update(ctx context.Context, team *model.Team) error {
	err := r.db.WithContext(ctx).Model(team).
		Select("name", "description", "leader_id", "updated_at").
		Updates(team).Error
	if err != nil {
		return wrapError("更新团队失败", err)
	}
	return nil
}

func (r *teamRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&model.TeamMember{}).Error; err != nil {
			return wrapError("删除团队成员失败", err)
		}
		result := tx.Delete(&model.Team{}, id)
		if result.Error != nil {
			return wrapError("删除团队失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapError("删除团队失败", gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *teamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	member := &model.TeamMember{TeamID: teamID, UserID: userID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member).Error; err != nil {
		return wrapError("添加团队成员失败", err)
	}
	return nil
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID int64) (bool, error) {
	result := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&model.TeamMember{})
	if result.Error != nil {
		return false, wrapError("移除团队成员失败", result.Error)
	}
	return result.RowsAffected > 0, nil
}
