// Package event provides a small, typed publish/subscribe primitive for
// the chain service's notification fan-out (§4.7's BuildStatusRequest
// surface plus the block/head/reorg notifications that monitor, archiver,
// and HTTP SSE consumers read), grounded on prysm's async/event package
// (itself carried over from go-ethereum's event.Feed, see feed_test.go in
// the retrieval pack: Subscribe/Send/Unsubscribe with single-type payloads
// delivered to every live subscriber).
//
// This package deliberately narrows go-ethereum's reflection-based,
// any-type Feed to one concrete payload type per Feed value: the chain
// service only ever sends one notification shape, so the generality that
// upstream's feedTypeError/reflect.Value machinery buys isn't exercised
// here and would be unjustified complexity (see DESIGN.md).
package event

import "sync"

// Subscription is returned by Feed.Subscribe. Unsubscribe stops delivery
// to the channel passed to Subscribe and may be called more than once.
type Subscription struct {
	feed *Feed
	ch   chan Notification
	once sync.Once
}

// Unsubscribe removes the subscription. It does not close the channel
// the caller supplied to Subscribe, matching go-ethereum's Feed contract
// (the caller owns the channel).
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.feed.remove(s.ch)
	})
}

// Notification is the single payload type this package's Feed carries:
// a chain-service event tagged by Kind, naming the affected block root
// and slot.
type Notification struct {
	Kind Kind
	Root [32]byte
	Slot uint64
	// Reason is populated for Kind == Reorg: human-readable cause, e.g.
	// "proposer boost expired".
	Reason string
}

// Kind enumerates the chain-service notifications §4.7/SPEC_FULL.md's
// event.Feed fan-out carries.
type Kind int

const (
	BlockProcessed Kind = iota
	HeadChanged
	Reorg
)

// Feed is a one-to-many, non-blocking fan-out of Notification values.
// Zero value is ready to use.
type Feed struct {
	mu   sync.Mutex
	subs map[chan Notification]struct{}
}

// Subscribe registers ch to receive every future Send. The returned
// Subscription must be closed with Unsubscribe when the caller is done.
func (f *Feed) Subscribe(ch chan Notification) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[chan Notification]struct{})
	}
	f.subs[ch] = struct{}{}
	return &Subscription{feed: f, ch: ch}
}

// Send delivers n to every current subscriber. Slow subscribers are
// skipped rather than blocking the sender (the chain service's mutex is
// held across Send in some call sites, so Send must never stall on a
// reader that has stopped draining its channel).
func (f *Feed) Send(n Notification) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	delivered := 0
	for ch := range f.subs {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (f *Feed) remove(ch chan Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, ch)
}
