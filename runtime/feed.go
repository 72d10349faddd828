package runtime

import (
	"log/slog"
	"presence-chat/contract"
	"presence-chat/domain"
	"presence-chat/errors"
	"sync"
)

var _ contract.MessagePublisher = (*Feed)(nil)

// Subscription is one live connection reading the feed on behalf of a viewer.
type Subscription struct {
	id     uint64
	viewer string
	events chan domain.FeedEvent
}

// Events is closed when the subscription ends, either by Unsubscribe,
// by Close, or because the reader fell too far behind.
func (s *Subscription) Events() <-chan domain.FeedEvent {
	return s.events
}

func (s *Subscription) Viewer() string {
	return s.viewer
}

// Feed fans stored messages out to live subscribers.
// Each subscriber only receives messages visible to its viewer, through a
// bounded buffer. A subscriber whose buffer is full is dropped so a slow
// reader never blocks the writers.
type Feed struct {
	mu          sync.Mutex
	log         *slog.Logger
	bufferSize  int
	nextID      uint64
	subscribers map[uint64]*Subscription
	closed      bool
}

func NewFeed(log *slog.Logger, bufferSize int) *Feed {
	return &Feed{
		log:         log,
		bufferSize:  max(bufferSize, 1),
		subscribers: make(map[uint64]*Subscription),
	}
}

func (f *Feed) Subscribe(viewer string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.ErrFeedClosed
	}
	f.nextID++
	sub := &Subscription{
		id:     f.nextID,
		viewer: viewer,
		events: make(chan domain.FeedEvent, f.bufferSize),
	}
	f.subscribers[sub.id] = sub
	f.log.Debug("Feed subscriber added", "viewer", viewer, "subscribers", len(f.subscribers))
	return sub, nil
}

// Unsubscribe is idempotent.
func (f *Feed) Unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remove(sub)
}

func (f *Feed) Publish(event domain.FeedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subscribers {
		if !event.Message.IsVisibleTo(sub.viewer) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			f.log.Warn("Feed subscriber too slow, dropped", "viewer", sub.viewer)
			f.remove(sub)
		}
	}
}

// Close ends every subscription and refuses new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for _, sub := range f.subscribers {
		f.remove(sub)
	}
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

func (f *Feed) remove(sub *Subscription) {
	if _, ok := f.subscribers[sub.id]; !ok {
		return
	}
	delete(f.subscribers, sub.id)
	close(sub.events)
}
