package jobs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockReconcile recomputes the used meters of every active stock lot.
	TaskStockReconcile = "stock:reconcile"
	// NightlyReconcileSpec runs reconciliation at 02:30 UTC.
	NightlyReconcileSpec = "30 2 * * *"
)

// ReconcilePayload records who asked for a reconcile run.
type ReconcilePayload struct {
	RequestedBy string `json:"requested_by"`
}

// NewStockReconcileTask constructs the reconcile task. Duplicate requests
// within ten minutes collapse into one.
func NewStockReconcileTask(requestedBy string) (*asynq.Task, error) {
	if requestedBy == "" {
		requestedBy = "scheduler"
	}
	data, err := json.Marshal(ReconcilePayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(10*time.Minute),
	), nil
}

// RedisOpt builds asynq connection options from host:port or a redis:// URL.
func RedisOpt(addr string) (asynq.RedisConnOpt, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		return asynq.ParseRedisURI(addr)
	}
	return asynq.RedisClientOpt{Addr: addr}, nil
}
