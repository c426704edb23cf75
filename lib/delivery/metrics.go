package delivery

import "github.com/inventerdesign/pushdeck/lib/models"

// BatchResult is the aggregate outcome of one campaign send. Counts are
// tallied from attempt results on a single goroutine, never from shared
// mutable increments inside the delivery workers.
type BatchResult struct {
	Sent   int
	Failed int
	Fatal  bool
}

func (r *BatchResult) Processed() int {
	return r.Sent + r.Failed
}

// attempt is the outcome of one subscriber's delivery, produced by a worker
// goroutine and consumed by the serial persist loop.
type attempt struct {
	sub *models.Subscriber
	err error
}
