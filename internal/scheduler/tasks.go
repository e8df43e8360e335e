// Package scheduler runs background jobs over asynq: the periodic quote
// expiration sweep.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskQuoteExpirationSweep = "quotes.expiration.sweep"

type QuoteExpirationSweepPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewQuoteExpirationSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(QuoteExpirationSweepPayload{RequestedAt: time.Now()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteExpirationSweep, data), nil
}

func ParseQuoteExpirationSweepPayload(task *asynq.Task) (QuoteExpirationSweepPayload, error) {
	var payload QuoteExpirationSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return QuoteExpirationSweepPayload{}, err
	}
	return payload, nil
}
