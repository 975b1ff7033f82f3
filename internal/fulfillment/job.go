package fulfillment

import (
	"time"

	"github.com/user/vendbot/internal/types"
)

// Job is one verified, resolved sale waiting to be delivered.
type Job struct {
	ID         types.JobID
	Buyer      types.ActorID
	Item       *types.Item
	Sale       *types.Sale
	EnqueuedAt time.Time
}

// LaneKey groups jobs per buyer so one buyer's deliveries stay ordered.
func (j *Job) LaneKey() string {
	return "buyer:" + j.Buyer.String()
}
