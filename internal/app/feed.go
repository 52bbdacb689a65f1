package app

import "sync"

// Feed fans the ranked leaderboard out to subscribers after each accepted
// submission.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan []RankedRow]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan []RankedRow]struct{})}
}

func (f *Feed) subscribe() (chan []RankedRow, func()) {
	ch := make(chan []RankedRow, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) broadcast(rows []RankedRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		deliver(ch, rows)
	}
}

// send pushes a snapshot to a single subscriber, used for the initial state.
func (f *Feed) send(ch chan []RankedRow, rows []RankedRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[ch]; ok {
		deliver(ch, rows)
	}
}

// deliver drops the oldest pending snapshot when the subscriber's buffer is
// full so a slow client never blocks the broadcast.
func deliver(ch chan []RankedRow, rows []RankedRow) {
	select {
	case ch <- rows:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- rows
	}
}
