package notifier

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationDeliver = "notification.deliver"

// DeliverPayload is the queued form of one notification dispatch.
type DeliverPayload struct {
	Event    Event    `json:"event"`
	Snapshot Snapshot `json:"snapshot"`
}

func NewDeliverTask(payload DeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, data), nil
}

func ParseDeliverPayload(task *asynq.Task) (DeliverPayload, error) {
	var payload DeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DeliverPayload{}, err
	}
	return payload, nil
}
