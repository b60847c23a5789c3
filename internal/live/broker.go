// Package live fans out "something changed" signals to open dashboard streams.
// Events carry no payload; subscribers re-read their snapshot from the database.
package live

import (
	"context"
	"sync"
)

// Broker publishes and delivers change signals per topic.
type Broker interface {
	Publish(ctx context.Context, topic string) error
	// Subscribe returns a channel that receives a value after each Publish on topic.
	// Signals coalesce when the subscriber is slow. The channel is closed once ctx is done.
	Subscribe(ctx context.Context, topic string) (<-chan struct{}, error)
	Close() error
}

// ReferralsTopic is signalled when a submission credits uid.
func ReferralsTopic(uid string) string { return "referrals:" + uid }

// ClaimsTopic is signalled when one of uid's reward claims changes.
func ClaimsTopic(uid string) string { return "claims:" + uid }

// MemoryBroker is an in-process Broker for single-instance deployments.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	closed bool
}

// NewMemoryBroker creates an empty MemoryBroker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish signals every subscriber of topic without blocking.
func (b *MemoryBroker) Publish(ctx context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[topic] {
		notify(ch)
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan struct{}]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(topic, ch)
	}()
	return ch, nil
}

func (b *MemoryBroker) remove(topic string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[topic][ch]; !ok {
		return
	}
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for topic, chans := range b.subs {
		for ch := range chans {
			close(ch)
		}
		delete(b.subs, topic)
	}
	return nil
}

// notify performs a non-blocking send; a pending signal already covers this one.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
