package eventpubsub

import (
	"sync/atomic"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// historyRing is a bounded circular buffer of published events. Writers
// claim slots with an atomic counter, never a mutex. A reader racing the
// writer on the overwrite boundary may observe one stale slot; the race is
// confined to that single slot and accepted.
type historyRing struct {
	slots []eventmodels.Event
	next  uint64
}

func newHistoryRing(size int) *historyRing {
	if size <= 0 {
		size = 1
	}

	return &historyRing{slots: make([]eventmodels.Event, size)}
}

func (r *historyRing) append(event eventmodels.Event) {
	i := atomic.AddUint64(&r.next, 1) - 1
	r.slots[i%uint64(len(r.slots))] = event
}

// snapshot returns up to limit events, oldest first. limit <= 0 means all
// retained events.
func (r *historyRing) snapshot(name eventmodels.EventName, limit int) []eventmodels.Event {
	n := atomic.LoadUint64(&r.next)
	size := uint64(len(r.slots))

	start := uint64(0)
	if n > size {
		start = n - size
	}

	out := make([]eventmodels.Event, 0, n-start)
	for i := start; i < n; i++ {
		ev := r.slots[i%size]
		if name != "" && ev.Name != name {
			continue
		}

		out = append(out, ev)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	return out
}
