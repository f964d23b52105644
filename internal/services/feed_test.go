package services

import "testing"

func TestFeedSignalsSubscribers(t *testing.T) {
	feed := NewCaseFeed()
	h := feed.Subscribe()
	defer h.Cancel()

	feed.Broadcast()
	select {
	case <-h.C:
	default:
		t.Fatalf("expected a signal after broadcast")
	}
}

func TestFeedCoalescesWhenConsumerLags(t *testing.T) {
	feed := NewCaseFeed()
	h := feed.Subscribe()
	defer h.Cancel()

	feed.Broadcast()
	feed.Broadcast()
	feed.Broadcast()

	<-h.C
	select {
	case <-h.C:
		t.Fatalf("expected coalesced signals, got a second one")
	default:
	}
}

func TestFeedCancelStopsSignals(t *testing.T) {
	feed := NewCaseFeed()
	h := feed.Subscribe()
	h.Cancel()
	h.Cancel() // idempotent

	feed.Broadcast()
	if _, ok := <-h.C; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestFeedIndependentHandles(t *testing.T) {
	feed := NewCaseFeed()
	a := feed.Subscribe()
	b := feed.Subscribe()
	defer b.Cancel()
	a.Cancel()

	feed.Broadcast()
	select {
	case <-b.C:
	default:
		t.Fatalf("remaining handle should still be signalled")
	}
}
