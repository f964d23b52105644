package services

import "sync"

// CaseFeed replaces hidden module-level live-query handles with explicit
// subscription values. Consumers re-fetch the case set when signalled; the
// feed carries no payload.
type CaseFeed struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

type FeedHandle struct {
	// C receives one signal per case-set change. Signals are coalesced if
	// the consumer lags.
	C      <-chan struct{}
	cancel func()
}

func (h *FeedHandle) Cancel() { h.cancel() }

func NewCaseFeed() *CaseFeed {
	return &CaseFeed{subs: map[int]chan struct{}{}}
}

func (f *CaseFeed) Subscribe() *FeedHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan struct{}, 1)
	f.subs[id] = ch
	return &FeedHandle{
		C: ch,
		cancel: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if sub, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(sub)
			}
		},
	}
}

func (f *CaseFeed) Broadcast() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
