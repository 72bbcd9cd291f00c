package localstore

import (
	"sync"

	"catalog-sync/internal/model"
)

// broker fans out per-kind change notifications. Each subscriber channel holds
// at most one pending signal, so bursts of writes coalesce into one re-query.
type broker struct {
	mu     sync.Mutex
	subs   map[model.Kind]map[chan struct{}]struct{}
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[model.Kind]map[chan struct{}]struct{})}
}

// subscribe registers for changes to kind. The returned func unregisters and
// closes the channel; it is safe to call more than once.
func (b *broker) subscribe(kind model.Kind) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[chan struct{}]struct{})
	}
	b.subs[kind][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[kind][ch]; ok {
				delete(b.subs[kind], ch)
				close(ch)
			}
		})
	}
}

// publish signals every subscriber of the given kinds without blocking.
func (b *broker) publish(kinds ...model.Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, kind := range kinds {
		for ch := range b.subs[kind] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// close closes every subscriber channel and rejects new subscriptions.
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for kind, subs := range b.subs {
		for ch := range subs {
			close(ch)
		}
		delete(b.subs, kind)
	}
}

func (b *broker) subscriberCount(kind model.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[kind])
}
