package repository

import (
	"context"

	"gorm.io/gorm"

	"taskhub/internal/model"
)

type SecretRepository interface {
	Create(ctx context.Context, secret *model.Secret) error
	FindByID(ctx context.Context, id int64) (*model.Secret, error)
	// List readerID 为空返回全部, 否则只返回该用户有权读取的条目
	List(ctx context.Context, readerID *int64) ([]*model.Secret, error)
	// Update 更新字段并整体替换访问列表
	Update(ctx context.Context, secret *model.Secret) error
	Delete(ctx context.Context, id int64) error
}

type secretRepository struct {
	db *gorm.DB
}

func NewSecretRepository(db *gorm.DB) SecretRepository {
	return &secretRepository{db: db}
}

func (r *secretRepository) Create(ctx context.Context, secret *model.Secret) error {
	if err := r.db.WithContext(ctx).Create(secret).Error; err != nil {
		return wrapError("创建密码条目失败", err)
	}
	return nil
}

func (r *secretRepository) FindByID(ctx context.Context, id int64) (*model.Secret, error) {
	var secret model.Secret
	if err := r.db.WithContext(ctx).Preload("Access").First(&secret, id).Error; err != nil {
		return nil, wrapError("查询密码条目失败", err)
	}
	return &secret, nil
}

func (r *secretRepository) List(ctx context.Context, readerID *int64) ([]*model.Secret, error) {
	var secrets []*model.Secret
	query := r.db.WithContext(ctx).Preload("Access")
	if readerID != nil {
		query = query.Where("id IN (?)",
			r.db.Model(&model.SecretAccess{}).Select("secret_id").Where("user_id = ?", *readerID))
	}
	if err := query.Order("name ASC, id ASC").Find(&secrets).Error; err != nil {
		return nil, wrapError("查询密码条目失败", err)
	}
	return secrets, nil
}

func (r *secretRepository) Update(ctx context.Context, secret *model.Secret) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(secret).Select("name", "value", "description", "updated_at").Updates(secret)
		if result.Error != nil {
			return wrapError("更新密码条目失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapError("更新密码条目失败", gorm.ErrRecordNotFound)
		}
		if err := tx.Where("secret_id = ?", secret.ID).Delete(&model.SecretAccess{}).Error; err != nil {
			return wrapError("更新访问列表失败", err)
		}
		if len(secret.Access) == 0 {
			return nil
		}
		for i := range secret.Access {
			secret.Access[i].SecretID = secret.ID
		}
		if err := tx.Create(&secret.Access).Error; err != nil {
			return wrapError("更新访问列表失败", err)
		}
		return nil
	})
}

func (r *secretRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("secret_id = ?", id).Delete(&model.SecretAccess{}).Error; err != nil {
			return wrapError("删除访问列表失败", err)
		}
		result := tx.Delete(&model.Secret{}, id)
		if result.Error != nil {
			return wrapError("删除密码条目失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapError("删除密码条目失败", gorm.ErrRecordNotFound)
		}
		return nil
	})
}
