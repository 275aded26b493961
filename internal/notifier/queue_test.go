package notifier

import (
	"encoding/json"
	"testing"

	"storefront_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type fakeQueueConfig struct {
	url  string
	name string
}

func (f fakeQueueConfig) GetRedisURL() string      { return f.url }
func (f fakeQueueConfig) GetQueueName() string     { return f.name }
func (f fakeQueueConfig) GetQueueConcurrency() int { return 1 }

func TestQueueDispatcherEnqueues(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := fakeQueueConfig{url: "redis://" + srv.Addr(), name: "notifications"}
	dispatcher, err := NewQueueDispatcher(cfg, logger.New("development"))
	if err != nil {
		t.Fatalf("new queue dispatcher: %v", err)
	}
	defer dispatcher.Close()

	snap := testSnapshot()
	dispatcher.Dispatch(EventOffered, snap)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("notifications")
	if err != nil {
		t.Fatalf("list pending tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskNotificationDeliver {
		t.Fatalf("expected task type %s, got %s", TaskNotificationDeliver, tasks[0].Type)
	}

	var payload DeliverPayload
	if err := json.Unmarshal(tasks[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Event != EventOffered {
		t.Fatalf("expected event OFFERED, got %s", payload.Event)
	}
	if payload.Snapshot.Number != snap.Number {
		t.Fatalf("expected snapshot number %s, got %s", snap.Number, payload.Snapshot.Number)
	}
}

func TestNewQueueDispatcherRequiresRedisURL(t *testing.T) {
	_, err := NewQueueDispatcher(fakeQueueConfig{}, logger.New("development"))
	if err == nil {
		t.Fatal("expected error without redis url")
	}
}
