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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByAccessCode(ctx context.Context, code string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]*model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	// UpdateRole 比较并交换; 角色已被并发修改, 会移除最后一个 Admin,
	// 或降级为 Member 时仍负责项目, 均返回 Conflict
	UpdateRole(ctx context.Context, id int64, from, to string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
	References(ctx context.Context, id int64) (UserReferences, error)
	// Delete 在事务内复查引用, 解除团队/密码授权/申请等组织关联后删除
	Delete(ctx context.Context, id int64) (UserUnlinkResult, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return wrapError("创建用户失败", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, wrapError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", constants.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, wrapError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) FindByAccessCode(ctx context.Context, code string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("access_code = ?", constants.NormalizeCode(code)).First(&user).Error
	if err != nil {
		return nil, wrapError("查询用户失败", err)
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	users := make([]*model.User, 0)
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, wrapError("查询用户失败", err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Keyword != "" {
		query = query.Where("name LIKE ? OR email LIKE ?", like(filter.Keyword), like(filter.Keyword))
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapError("统计用户数量失败", err)
	}
	if err := filter.Page.apply(query).Order("id ASC").Find(&users).Error; err != nil {
		return nil, 0, wrapError("查询用户列表失败", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("name", "skills", "password", "access_code", "updated_at").
		Updates(user).Error
	if err != nil {
		return wrapError("更新用户失败", err)
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, from, to string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先锁住用户行, 更换负责人的事务也锁同一行
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return wrapError("查询用户失败", err)
		}
		if to == constants.RoleMember {
			var led int64
			if err := tx.Model(&model.Project{}).Where("lead_id = ?", id).Count(&led).Error; err != nil {
				return wrapError("统计项目数量失败", err)
			}
			if led > 0 {
				return pkgErrors.Conflict("用户仍是项目负责人，请先更换负责人").WithDetail("ledProjects", led)
			}
		}
		if from == constants.RoleAdmin && to != constants.RoleAdmin {
			var admins int64
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&model.User{}).
				Where("role = ?", constants.RoleAdmin).Count(&admins).Error; err != nil {
				return wrapError("统计管理员数量失败", err)
			}
			if admins <= 1 {
				return pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", admins)
			}
		}

		result := tx.Model(&model.User{}).
			Where("id = ? AND role = ?", id, from).
			Updates(map[string]interface{}{"role": to, "updated_at": time.Now()})
		if result.Error != nil {
			return wrapError("更新用户角色失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.ErrStatusConflict
		}
		return nil
	})
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	if err != nil {
		return wrapError("更新登录时间失败", err)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, wrapError("统计用户数量失败", err)
	}
	return n, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, wrapError("统计用户数量失败", err)
	}
	return n, nil
}

func (r *userRepository) References(ctx context.Context, id int64) (UserReferences, error) {
	return countUserReferences(r.db.WithContext(ctx), id)
}

func countUserReferences(db *gorm.DB, id int64) (UserReferences, error) {
	var refs UserReferences
	if err := db.Model(&model.Task{}).Where("assigned_to_id = ?", id).Count(&refs.AssignedTasks).Error; err != nil {
		return refs, wrapError("统计任务数量失败", err)
	}
	// 自己分配给自己的任务已计入 AssignedTasks
	if err := db.Model(&model.Task{}).Where("assigned_by_id = ? AND assigned_to_id <> ?", id, id).
		Count(&refs.AssignedByTasks).Error; err != nil {
		return refs, wrapError("统计任务数量失败", err)
	}
	if err := db.Model(&model.Project{}).Where("lead_id = ?", id).Count(&refs.LedProjects).Error; err != nil {
		return refs, wrapError("统计项目数量失败", err)
	}
	if err := db.Model(&model.ProjectMember{}).Where("user_id = ?", id).Count(&refs.MemberProjects).Error; err != nil {
		return refs, wrapError("统计项目成员失败", err)
	}
	return refs, nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) (UserUnlinkResult, error) {
	var result UserUnlinkResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			return wrapError("查询用户失败", err)
		}

		refs, err := countUserReferences(tx, id)
		if err != nil {
			return err
		}
		if refs.Blocking() {
			return pkgErrors.ErrStatusConflict
		}

		if user.Role == constants.RoleAdmin {
			var admins int64
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&model.User{}).
				Where("role = ?", constants.RoleAdmin).Count(&admins).Error; err != nil {
				return wrapError("统计管理员数量失败", err)
			}
			if admins <= 1 {
				return pkgErrors.Conflict("至少需要保留一名管理员").WithDetail("adminCount", admins)
			}
		}

		res := tx.Where("user_id = ?", id).Delete(&model.TeamMember{})
		if res.Error != nil {
			return wrapError("移除团队成员失败", res.Error)
		}
		result.TeamMemberships = res.RowsAffected

		res = tx.Model(&model.Team{}).Where("leader_id = ?", id).Update("leader_id", nil)
		if res.Error != nil {
			return wrapError("清除团队负责人失败", res.Error)
		}
		result.TeamsLed = res.RowsAffected

		res = tx.Where("user_id = ?", id).Delete(&model.SecretAccess{})
		if res.Error != nil {
			return wrapError("移除密码授权失败", res.Error)
		}
		result.SecretGrants = res.RowsAffected

		res = tx.Where("user_id = ?", id).Delete(&model.MembershipRequest{})
		if res.Error != nil {
			return wrapError("删除加入申请失败", res.Error)
		}
		result.MembershipRequests = res.RowsAffected

		if err := tx.Delete(&model.User{}, id).Error; err != nil {
			return wrapError("删除用户失败", err)
		}
		return nil
	})
	return result, err
}
