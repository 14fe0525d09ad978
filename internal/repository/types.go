package repository

import "time"

// UserListFilter 用户列表查询条件
type UserListFilter struct {
	Keyword       string
	Status        string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	LastLoginFrom *time.Time
	LastLoginTo   *time.Time
	Page          int
	PageSize      int
}
