package repository

import (
	"errors"
	"time"

	"github.com/storelink-next/internal/constants"
	"github.com/storelink-next/internal/models"

	"gorm.io/gorm"
)

// AffiliateAccountRepository 联盟账号数据访问接口
type AffiliateAccountRepository interface {
	GetByUserID(userID uint) (*models.AffiliateAccount, error)
	MarkLinked(userID uint, affiliateID string) (*models.AffiliateAccount, error)
	MarkFailed(userID uint, reason string) (*models.AffiliateAccount, error)
}

// GormAffiliateAccountRepository GORM 实现
type GormAffiliateAccountRepository struct {
	db *gorm.DB
}

// NewAffiliateAccountRepository 创建联盟账号仓库
func NewAffiliateAccountRepository(db *gorm.DB) *GormAffiliateAccountRepository {
	return &GormAffiliateAccountRepository{db: db}
}

// GetByUserID 根据用户 ID 获取绑定记录
func (r *GormAffiliateAccountRepository) GetByUserID(userID uint) (*models.AffiliateAccount, error) {
	var account models.AffiliateAccount
	if err := r.db.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// MarkLinked 记录同步成功，已有记录则覆盖
func (r *GormAffiliateAccountRepository) MarkLinked(userID uint, affiliateID string) (*models.AffiliateAccount, error) {
	account, err := r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if account == nil {
		account = &models.AffiliateAccount{UserID: userID}
	}
	account.AffiliateID = affiliateID
	account.Status = constants.AffiliateStatusLinked
	account.LastError = ""
	account.SyncedAt = &now
	if err := r.db.Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// MarkFailed 记录同步失败原因，保留已绑定的联盟账号 ID
func (r *GormAffiliateAccountRepository) MarkFailed(userID uint, reason string) (*models.AffiliateAccount, error) {
	account, err := r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = &models.AffiliateAccount{
			UserID: userID,
			Status: constants.AffiliateStatusFailed,
		}
	}
	if account.AffiliateID == "" {
		account.Status = constants.AffiliateStatusFailed
	}
	account.LastError = reason
	if err := r.db.Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}
