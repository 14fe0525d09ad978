package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/storelink-next/internal/logger"
	"github.com/storelink-next/internal/provider"
	"github.com/storelink-next/internal/queue"
	"github.com/storelink-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAffiliateSync, c.handleAffiliateSync)
}

// handleAffiliateSync 消费联盟账号同步任务。
// 同步失败已落库，不向队列返回错误，避免对上游的自动重试。
func (c *Consumer) handleAffiliateSync(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_affiliate_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AffiliateSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_affiliate_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 {
		logger.Debugw("worker_affiliate_sync_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	if c.AffiliateSyncService == nil {
		logger.Warnw("worker_affiliate_sync_skip_service_nil", "user_id", payload.UserID)
		return nil
	}

	if err := c.AffiliateSyncService.SyncOnRegistration(payload.UserID, payload.Source, ""); err != nil {
		switch {
		case errors.Is(err, service.ErrAffiliateSyncDisabled):
			logger.Debugw("worker_affiliate_sync_skip_disabled", "user_id", payload.UserID)
		case errors.Is(err, service.ErrAffiliateAlreadyLinked):
			logger.Debugw("worker_affiliate_sync_skip_linked", "user_id", payload.UserID)
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_affiliate_sync_skip_user_not_found", "user_id", payload.UserID)
		default:
			logger.Warnw("worker_affiliate_sync_failed", "user_id", payload.UserID, "source", payload.Source, "error", err)
		}
	}
	return nil
}
