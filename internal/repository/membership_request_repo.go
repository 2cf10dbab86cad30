package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/model"
	"taskhub/pkg/constants"
	pkgErrors "taskhub/pkg/errors"
)

type MembershipRequestRepository interface {
	Create(ctx context.Context, req *model.MembershipRequest) error
	FindByID(ctx context.Context, id int64) (*model.MembershipRequest, error)
	FindPending(ctx context.Context, projectID, userID int64) (*model.MembershipRequest, error)
	// ListPending projectIDs 为 nil 表示全部项目
	ListPending(ctx context.Context, projectIDs []int64) ([]*model.MembershipRequest, error)
	// Decide 只处理仍为 Pending 的申请; approve 时在同一事务内加入项目成员
	Decide(ctx context.Context, req *model.MembershipRequest) error
}

type membershipRequestRepository struct {
	db *gorm.DB
}

func NewMembershipRequestRepository(db *gorm.DB) MembershipRequestRepository {
	return &membershipRequestRepository{db: db}
}

func (r *membershipRequestRepository) Create(ctx context.Context, req *model.MembershipRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return wrapError("创建加入申请失败", err)
	}
	return nil
}

func (r *membershipRequestRepository) FindByID(ctx context.Context, id int64) (*model.MembershipRequest, error) {
	var req model.MembershipRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, wrapError("查询加入申请失败", err)
	}
	return &req, nil
}

func (r *membershipRequestRepository) FindPending(ctx context.Context, projectID, userID int64) (*model.MembershipRequest, error) {
	var req model.MembershipRequest
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, constants.MembershipPending).
		First(&req).Error
	if err != nil {
		return nil, wrapError("查询加入申请失败", err)
	}
	return &req, nil
}

func (r *membershipRequestRepository) ListPending(ctx context.Context, projectIDs []int64) ([]*model.MembershipRequest, error) {
	reqs := make([]*model.MembershipRequest, 0)
	if projectIDs != nil && len(projectIDs) == 0 {
		return reqs, nil
	}
	query := r.db.WithContext(ctx).Where("status = ?", constants.MembershipPending)
	if projectIDs != nil {
		query = query.Where("project_id IN ?", projectIDs)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&reqs).Error; err != nil {
		return nil, wrapError("查询加入申请失败", err)
	}
	return reqs, nil
}

func (r *membershipRequestRepository) Decide(ctx context.Context, req *model.MembershipRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.MembershipRequest{}).
			Where("id = ? AND status = ?", req.ID, constants.MembershipPending).
			Updates(map[string]interface{}{
				"status":         req.Status,
				"reviewed_by_id": req.ReviewedByID,
				"reviewed_at":    req.ReviewedAt,
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return wrapError("处理加入申请失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.Conflict("申请已被处理")
		}
		if req.Status != constants.MembershipApproved {
			return nil
		}

		var project model.Project
		if err := tx.Select("id", "status").First(&project, req.ProjectID).Error; err != nil {
			return wrapError("查询项目失败", err)
		}
		if project.IsClosed() {
			return pkgErrors.Conflict("项目已关闭，无法加入")
		}
		member := &model.ProjectMember{ProjectID: req.ProjectID, UserID: req.UserID}
		if err := tx.Where(member).FirstOrCreate(member).Error; err != nil {
			return wrapError("添加项目成员失败", err)
		}
		return nil
	})
}
