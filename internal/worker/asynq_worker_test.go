package worker

import (
	"context"
	"testing"

	"github.com/storelink-next/internal/provider"
	"github.com/storelink-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleAffiliateSyncMalformedPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskAffiliateSync, []byte("not-json"))

	if err := consumer.handleAffiliateSync(context.Background(), task); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestHandleAffiliateSyncInvalidUserID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewAffiliateSyncTask(queue.AffiliateSyncPayload{UserID: 0})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}

	if err := consumer.handleAffiliateSync(context.Background(), task); err != nil {
		t.Fatalf("expected nil for zero user id, got %v", err)
	}
}

func TestHandleAffiliateSyncServiceMissing(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task, err := queue.NewAffiliateSyncTask(queue.AffiliateSyncPayload{UserID: 7, Source: "registration"})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}

	if err := consumer.handleAffiliateSync(context.Background(), task); err != nil {
		t.Fatalf("expected nil when sync service missing, got %v", err)
	}
}
