package queue

import (
	"context"
	"time"
)

// retryHandler runs handler on data until it succeeds or ctx ends. The pause
// between attempts starts at initial and doubles up to maxWait. onFail, when
// set, sees every failed attempt.
func retryHandler(ctx context.Context, data []byte, handler MessageHandler, initial, maxWait time.Duration, onFail func(attempt int, err error)) error {
	wait := initial
	for attempt := 1; ; attempt++ {
		err := handler(data)
		if err == nil {
			return nil
		}
		if onFail != nil {
			onFail(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}
