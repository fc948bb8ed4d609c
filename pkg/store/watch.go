package store

import (
	"github.com/google/uuid"

	"github.com/VinayaSathyanarayana/rxdb/pkg/querychange"
)

// Subscription is a handle on the store's change stream. Events arrive in
// commit order on a buffered channel.
type Subscription struct {
	id    uuid.UUID
	ch    chan querychange.Event
	store *Store
}

// Watch subscribes to the store's change events.
func (s *Store) Watch() *Subscription {
	s.mu.Lock()
	sub := s.watchLocked()
	s.mu.Unlock()

	s.log.V(2).Info("new subscription", "id", sub.id)

	return sub
}

// watchLocked registers a new subscription. Callers hold s.mu.
func (s *Store) watchLocked() *Subscription {
	sub := &Subscription{
		id:    uuid.New(),
		ch:    make(chan querychange.Event, DefaultWatchChannelBuffer),
		store: s,
	}
	s.watchers[sub.id] = sub.ch
	return sub
}

// Events returns the subscription's event channel. The channel is closed by
// Cancel.
func (sub *Subscription) Events() <-chan querychange.Event { return sub.ch }

// Cancel tears the subscription down and closes its channel. Safe to call
// once.
func (sub *Subscription) Cancel() {
	sub.store.mu.Lock()
	if _, ok := sub.store.watchers[sub.id]; ok {
		delete(sub.store.watchers, sub.id)
		close(sub.ch)
	}
	sub.store.mu.Unlock()
}
