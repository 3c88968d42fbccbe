package installer

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFanOut_RunsEveryID(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	results := fanOut(context.Background(), 3, ids, func(_ context.Context, id string) string {
		return "done-" + id
	})

	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}
	got := make([]string, 0, len(results))
	for _, r := range results {
		if r.Value != "done-"+r.DeviceID {
			t.Errorf("result %s = %q", r.DeviceID, r.Value)
		}
		got = append(got, r.DeviceID)
	}
	sort.Strings(got)
	if !sort.StringsAreSorted(got) || len(got) != 5 {
		t.Errorf("ids handled = %v", got)
	}
}

func TestFanOut_RespectsWorkerLimit(t *testing.T) {
	var active, peak int32
	var mu sync.Mutex
	block := make(chan struct{})

	go func() {
		// Let two tasks pile up before releasing anyone.
		for i := 0; i < 6; i++ {
			block <- struct{}{}
		}
	}()

	fanOut(context.Background(), 2, []string{"a", "b", "c", "d", "e", "f"}, func(_ context.Context, id string) int {
		n := atomic.AddInt32(&active, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		<-block
		atomic.AddInt32(&active, -1)
		return 0
	})

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
}

func TestFanOut_CanceledContextDropsUndispatched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := fanOut(ctx, 1, []string{"a", "b"}, func(_ context.Context, id string) int {
		return 1
	})
	if len(results) > 2 {
		t.Errorf("got %d results for 2 ids", len(results))
	}
}

func TestFanOut_NoIDs(t *testing.T) {
	results := fanOut(context.Background(), 4, nil, func(_ context.Context, id string) int { return 0 })
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
