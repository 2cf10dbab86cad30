package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type AccessTokenRepository interface {
	Create(ctx context.Context, token *model.ProjectAccessToken) error
	FindByID(ctx context.Context, id int64) (*model.ProjectAccessToken, error)
	// FindByToken 按规范化后的访客码查询
	FindByToken(ctx context.Context, code string) (*model.ProjectAccessToken, error)
	ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectAccessToken, error)
	// MarkUsed 记录首次使用时间; deactivate 为 true 时同时停用. 访客码已被停用返回 Conflict
	MarkUsed(ctx context.Context, id int64, at time.Time, deactivate bool) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type accessTokenRepository struct {
	db *gorm.DB
}

func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepository{db: db}
}

func (r *accessTokenRepository) Create(ctx context.Context, token *model.ProjectAccessToken) error {
	token.Token = constants.NormalizeCode(token.Token)
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return wrapError("创建访客码失败", err)
	}
	return nil
}

func (r *accessTokenRepository) FindByID(ctx context.Context, id int64) (*model.ProjectAccessToken, error) {
	var token model.ProjectAccessToken
	if err := r.db.WithContext(ctx).First(&token, id).Error; err != nil {
		return nil, wrapError("查询访客码失败", err)
	}
	return &token, nil
}

func (r *accessTokenRepository) FindByToken(ctx context.Context, code string) (*model.ProjectAccessToken, error) {
	var token model.ProjectAccessToken
	err := r.db.WithContext(ctx).Where("token = ?", constants.NormalizeCode(code)).First(&token).Error
	if err != nil {
		return nil, wrapError("查询访客码失败", err)
	}
	return &token, nil
}

func (r *accessTokenRepository) ListByProject(ctx context.Context, projectID int64) ([]*model.ProjectAccessToken, error) {
	var tokens []*model.ProjectAccessToken
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC, id DESC").Find(&tokens).Error
	if err != nil {
		return nil, wrapError("查询访客码列表失败", err)
	}
	return tokens, nil
}

func (r *accessTokenRepository) MarkUsed(ctx context.Context, id int64, at time.Time, deactivate bool) error {
	updates := map[string]interface{}{
		"used_at":    gorm.Expr("COALESCE(used_at, ?)", at),
		"updated_at": at,
	}
	if deactivate {
		updates["is_active"] = false
	}
	result := r.db.WithContext(ctx).Model(&model.ProjectAccessToken{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	if result.Error != nil {
		return wrapError("更新访客码失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrStatusConflict
	}
	return nil
}

func (r *accessTokenRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Model(&model.ProjectAccessToken{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	if result.Error != nil {
		return wrapError("停用访客码失败", result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

func (r *accessTokenRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.ProjectAccessToken{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	if result.Error != nil {
		return 0, wrapError("停用过期访客码失败", result.Error)
	}
	return result.RowsAffected, nil
}
