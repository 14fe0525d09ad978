package queue

import (
	"encoding/json"

	"github.com/storelink-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAffiliateSync 联盟账号同步任务
	TaskAffiliateSync = constants.TaskAffiliateSync
)

// AffiliateSyncPayload 联盟账号同步任务载荷
type AffiliateSyncPayload struct {
	UserID uint   `json:"user_id"`
	Source string `json:"source"`
}

// NewAffiliateSyncTask 创建联盟账号同步任务
func NewAffiliateSyncTask(payload AffiliateSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliateSync, body), nil
}
