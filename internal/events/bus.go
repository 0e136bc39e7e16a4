// Package events implements a per-device broadcast bus standing in for the
// original signal/slot mechanism (valueSetByClient, valueSetByServer,
// languageAddedPushUpdate). Each signal kind gets its own Bus: the Connect
// dispatcher subscribes one channel per live session and the device-side
// mutation path publishes into it. This realizes the design note's
// preferred alternative to copy-on-emit multicast signals — a per-device
// broadcast channel with one reader per session, which avoids reentrancy
// hazards at emit time and simplifies cancellation.
package events

import "sync"

// ValueChanged is published on a device's value-change bus whenever a
// client- or server-initiated write succeeds.
type ValueChanged struct {
	Oid    string
	Params []string // OIDs of affected sub-parameters, if any (arrays/structs)
}

// LanguageAdded is published whenever a device gains a new language pack.
type LanguageAdded struct {
	LanguageId string
}

// Bus is a generic in-memory pub/sub with drop-if-full delivery: a slow or
// wedged subscriber never blocks the publisher or other subscribers.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[int]chan T
	next int
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new buffered subscriber and returns its channel and
// a cancel function that deregisters and closes it. Safe to call from any
// goroutine; the returned cancel must be called exactly once.
func (b *Bus[T]) Subscribe(buffer int) (ch <-chan T, cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	c := make(chan T, buffer)
	b.subs[id] = c
	cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sc, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sc)
		}
	}
	return c, cancel
}

// Publish fans e out to every live subscriber. A subscriber whose channel is
// full is skipped rather than blocking the publisher — this keeps the
// device's signal-emission path (which may run on an arbitrary device
// thread) from ever stalling on a slow Connect session.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount reports the number of currently registered subscribers,
// used by metrics.
func (b *Bus[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
