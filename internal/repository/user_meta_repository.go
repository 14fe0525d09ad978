package repository

import (
	"errors"

	"github.com/storelink-next/internal/models"

	"gorm.io/gorm"
)

// UserMetaRepository 用户元数据数据访问接口
type UserMetaRepository interface {
	Get(userID uint, metaKey string) (*models.UserMeta, error)
	GetValue(userID uint, metaKey string) (string, error)
	Upsert(userID uint, metaKey, metaValue string) (*models.UserMeta, error)
	Delete(userID uint, metaKey string) error
}

// GormUserMetaRepository GORM 实现
type GormUserMetaRepository struct {
	db *gorm.DB
}

// NewUserMetaRepository 创建用户元数据仓库
func NewUserMetaRepository(db *gorm.DB) *GormUserMetaRepository {
	return &GormUserMetaRepository{db: db}
}

// Get 获取单条元数据
func (r *GormUserMetaRepository) Get(userID uint, metaKey string) (*models.UserMeta, error) {
	var meta models.UserMeta
	if err := r.db.Where("user_id = ? AND meta_key = ?", userID, metaKey).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// GetValue 获取元数据值，不存在时返回空字符串
func (r *GormUserMetaRepository) GetValue(userID uint, metaKey string) (string, error) {
	meta, err := r.Get(userID, metaKey)
	if err != nil {
		return "", err
	}
	if meta == nil {
		return "", nil
	}
	return meta.MetaValue, nil
}

// Upsert 更新或创建元数据
func (r *GormUserMetaRepository) Upsert(userID uint, metaKey, metaValue string) (*models.UserMeta, error) {
	meta, err := r.Get(userID, metaKey)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &models.UserMeta{
			UserID:    userID,
			MetaKey:   metaKey,
			MetaValue: metaValue,
		}
		if err := r.db.Create(meta).Error; err != nil {
			return nil, err
		}
		return meta, nil
	}

	meta.MetaValue = metaValue
	if err := r.db.Save(meta).Error; err != nil {
		return nil, err
	}
	return meta, nil
}

// Delete 删除元数据
func (r *GormUserMetaRepository) Delete(userID uint, metaKey string) error {
	return r.db.Where("user_id = ? AND meta_key = ?", userID, metaKey).Delete(&models.UserMeta{}).Error
}
