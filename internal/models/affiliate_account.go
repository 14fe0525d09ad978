package models

import "time"

// AffiliateAccount 联盟账号绑定表
type AffiliateAccount struct {
	ID          uint       `gorm:"primarykey" json:"id"`                   // 主键
	UserID      uint       `gorm:"uniqueIndex;not null" json:"user_id"`    // 用户 ID（一人一条）
	AffiliateID string     `gorm:"index;default:''" json:"affiliate_id"`   // 上游联盟账号 ID
	Status      string     `gorm:"default:'failed';index" json:"status"`   // 同步状态（linked/failed）
	LastError   string     `gorm:"type:text;default:''" json:"last_error"` // 最近一次失败原因
	SyncedAt    *time.Time `json:"synced_at"`                              // 最近一次成功同步时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`                // 更新时间
}

// TableName 指定表名
func (AffiliateAccount) TableName() string {
	return "affiliate_accounts"
}
