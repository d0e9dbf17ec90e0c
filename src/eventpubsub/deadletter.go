package eventpubsub

import (
	"sync"
	"time"

	"github.com/avinashpai/market-signals/src/eventmodels"
)

// deadLetterSink retains the most recent failed handler executions. Not on
// the hot dispatch path, so a plain mutex is fine here.
type deadLetterSink struct {
	mu      sync.Mutex
	letters []DeadLetter
	max     int
}

func newDeadLetterSink(max int) *deadLetterSink {
	if max <= 0 {
		max = 1
	}

	return &deadLetterSink{max: max}
}

func (s *deadLetterSink) add(event eventmodels.Event, subscriberID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.letters = append(s.letters, DeadLetter{
		Event:        event,
		SubscriberID: subscriberID,
		Err:          err,
		Timestamp:    time.Now().UTC(),
	})

	if len(s.letters) > s.max {
		s.letters = s.letters[len(s.letters)-s.max:]
	}
}

func (s *deadLetterSink) snapshot(limit int) []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters := s.letters
	if limit > 0 && len(letters) > limit {
		letters = letters[len(letters)-limit:]
	}

	out := make([]DeadLetter, len(letters))
	copy(out, letters)
	return out
}
