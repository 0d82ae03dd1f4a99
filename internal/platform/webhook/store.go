package webhook

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrSubscriptionNotFound = errors.New("webhook subscription not found")
	ErrDeliveryNotFound     = errors.New("webhook delivery not found")
)

// Store persists subscriptions and the delivery history. The in-memory
// implementation loses state on restart; deployments that need durable
// subscriptions wire the Redis store instead.
type Store interface {
	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*Subscription, error)
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	DeleteSubscription(ctx context.Context, id string) error

	RecordDelivery(ctx context.Context, d *DeliveryRecord) error
	ListDeliveries(ctx context.Context, filter DeliveryFilter, limit int) ([]*DeliveryRecord, error)
}

// ---------------------------------------------------------------------------
// InMemoryStore
// ---------------------------------------------------------------------------

// InMemoryStore is a thread-safe in-memory Store. Delivery records are
// append-only; subscriptions keep insertion order for deterministic listing.
type InMemoryStore struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	subOrder   []string
	deliveries []*DeliveryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[string]*Subscription)}
}

func (s *InMemoryStore) CreateSubscription(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		s.subOrder = append(s.subOrder, sub.ID)
	}
	s.subs[sub.ID] = copySubscription(sub)
	return nil
}

func (s *InMemoryStore) GetSubscription(_ context.Context, id string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return copySubscription(sub), nil
}

func (s *InMemoryStore) ListSubscriptions(_ context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.subOrder))
	for _, id := range s.subOrder {
		if sub, ok := s.subs[id]; ok {
			out = append(out, copySubscription(sub))
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateSubscription(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		return ErrSubscriptionNotFound
	}
	s.subs[sub.ID] = copySubscription(sub)
	return nil
}

func (s *InMemoryStore) DeleteSubscription(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[id]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(s.subs, id)
	for i, sid := range s.subOrder {
		if sid == id {
			s.subOrder = append(s.subOrder[:i], s.subOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) RecordDelivery(_ context.Context, d *DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, copyDelivery(d))
	return nil
}

// ListDeliveries returns matching records newest-first.
func (s *InMemoryStore) ListDeliveries(_ context.Context, filter DeliveryFilter, limit int) ([]*DeliveryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DeliveryRecord
	for i := len(s.deliveries) - 1; i >= 0; i-- {
		d := s.deliveries[i]
		if !filter.matches(d) {
			continue
		}
		out = append(out, copyDelivery(d))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Copies keep callers from mutating stored state through returned pointers.

func copySubscription(sub *Subscription) *Subscription {
	dup := *sub
	dup.Events = append([]string(nil), sub.Events...)
	if sub.Headers != nil {
		dup.Headers = make(map[string]string, len(sub.Headers))
		for k, v := range sub.Headers {
			dup.Headers[k] = v
		}
	}
	return &dup
}

func copyDelivery(d *DeliveryRecord) *DeliveryRecord {
	dup := *d
	dup.Payload = append([]byte(nil), d.Payload...)
	return &dup
}
