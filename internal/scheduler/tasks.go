// Package scheduler runs the periodic background work: the pending-order
// expiry sweep, the polling fallback delivery path, and the recovery sweep
// for inbound messages whose first correlation run failed.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskPendingOrderExpiry = "orders.pending.expire"

const TaskInboundPoll = "messaging.inbound.poll"

const TaskStuckMessageRecovery = "messaging.inbound.recover"

// PendingOrderExpiryPayload carries the retention window for one sweep so a
// queued task survives a config change without sweeping the wrong horizon.
type PendingOrderExpiryPayload struct {
	Retention time.Duration `json:"retention"`
}

func NewPendingOrderExpiryTask(payload PendingOrderExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPendingOrderExpiry, data), nil
}

func ParsePendingOrderExpiryPayload(task *asynq.Task) (PendingOrderExpiryPayload, error) {
	var payload PendingOrderExpiryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PendingOrderExpiryPayload{}, err
	}
	return payload, nil
}

func NewInboundPollTask() *asynq.Task {
	return asynq.NewTask(TaskInboundPoll, nil)
}

func NewStuckMessageRecoveryTask() *asynq.Task {
	return asynq.NewTask(TaskStuckMessageRecovery, nil)
}
