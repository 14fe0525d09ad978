package models

import "time"

// UserMeta 用户元数据表（键值对扩展字段）
type UserMeta struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                   // 主键
	UserID    uint      `gorm:"uniqueIndex:idx_user_meta_key;not null" json:"user_id"`  // 用户 ID
	MetaKey   string    `gorm:"uniqueIndex:idx_user_meta_key;not null" json:"meta_key"` // 元数据键
	MetaValue string    `gorm:"type:text" json:"meta_value"`                            // 元数据值
	CreatedAt time.Time `json:"created_at"`                                             // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (UserMeta) TableName() string {
	return "user_metas"
}
