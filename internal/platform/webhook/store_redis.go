package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisSubPrefix    = "rxguard:webhook:sub:"
	redisSubIndexKey  = "rxguard:webhook:subs"
	redisDeliveryKey  = "rxguard:webhook:deliveries"
	redisDeliveryKeep = 1000
)

// RedisStore is a Store backed by Redis, for deployments that must keep
// subscriptions across restarts. Subscriptions live as JSON values under a
// per-id key with an insertion-ordered id list; the delivery history is a
// capped list, newest first.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisSubPrefix+sub.ID, raw, 0)
	pipe.RPush(ctx, redisSubIndexKey, sub.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	raw, err := s.client.Get(ctx, redisSubPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("unmarshal subscription %s: %w", id, err)
	}
	return &sub, nil
}

func (s *RedisStore) ListSubscriptions(ctx context.Context) ([]*Subscription, error) {
	ids, err := s.client.LRange(ctx, redisSubIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := s.GetSubscription(ctx, id)
		if errors.Is(err, ErrSubscriptionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (s *RedisStore) UpdateSubscription(ctx context.Context, sub *Subscription) error {
	exists, err := s.client.Exists(ctx, redisSubPrefix+sub.ID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrSubscriptionNotFound
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	return s.client.Set(ctx, redisSubPrefix+sub.ID, raw, 0).Err()
}

func (s *RedisStore) DeleteSubscription(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, redisSubPrefix+id).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrSubscriptionNotFound
	}
	return s.client.LRem(ctx, redisSubIndexKey, 0, id).Err()
}

func (s *RedisStore) RecordDelivery(ctx context.Context, d *DeliveryRecord) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, redisDeliveryKey, raw)
	pipe.LTrim(ctx, redisDeliveryKey, 0, redisDeliveryKeep-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListDeliveries(ctx context.Context, filter DeliveryFilter, limit int) ([]*DeliveryRecord, error) {
	raws, err := s.client.LRange(ctx, redisDeliveryKey, 0, redisDeliveryKeep-1).Result()
	if err != nil {
		return nil, err
	}
	var out []*DeliveryRecord
	for _, raw := range raws {
		var d DeliveryRecord
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			continue
		}
		if !filter.matches(&d) {
			continue
		}
		out = append(out, &d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
