package installer

import (
	"context"
	"sync"
)

// taskFunc runs one device's whole queue and returns its report.
type taskFunc[T any] func(ctx context.Context, deviceID string) T

// taskResult pairs a device with what its worker produced.
type taskResult[T any] struct {
	DeviceID string
	Value    T
}

// fanOut runs task once per device id on at most limit workers and
// collects the results in completion order. Callers that need plan
// order must reorder. When ctx is canceled, ids not yet handed to a
// worker are dropped; the caller accounts for them.
func fanOut[T any](ctx context.Context, limit int, ids []string, task taskFunc[T]) []taskResult[T] {
	results := make([]taskResult[T], 0, len(ids))
	if len(ids) == 0 {
		return results
	}
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	idCh := make(chan string)
	resCh := make(chan taskResult[T], len(ids))

	var wg sync.WaitGroup
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				resCh <- taskResult[T]{DeviceID: id, Value: task(ctx, id)}
			}
		}()
	}

	go func() {
		defer func() {
			close(idCh)
			wg.Wait()
			close(resCh)
		}()
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case idCh <- id:
			}
		}
	}()

	for res := range resCh {
		results = append(results, res)
	}
	return results
}
