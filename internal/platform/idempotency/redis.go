package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyNamespace = "idem"

// RedisOption customises the RedisStore behaviour.
type RedisOption func(*RedisStore)

// WithKeyNamespace overrides the key namespace used for idempotency records.
func WithKeyNamespace(namespace string) RedisOption {
	return func(store *RedisStore) {
		if namespace != "" {
			store.namespace = namespace
		}
	}
}

// RedisStore implements Store backed by Redis. Record expiry rides on Redis
// key TTLs, so CleanupExpired is a no-op.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisStore constructs a Redis-backed idempotency store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client:    client,
		namespace: defaultKeyNamespace,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Reserve ensures the key is uniquely associated with the fingerprint and
// returns any stored response.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	record := Record{
		Key:         key,
		Fingerprint: fingerprint,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: encode record: %w", err)
	}

	id := s.recordKey(key)
	created, err := s.client.SetNX(ctx, id, raw, ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("idempotency: reserve %s: %w", key, err)
	}
	if created {
		return Reservation{State: ReservationStateNew, Record: record}, nil
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if existing == nil {
		// Record expired between SetNX and Get; treat as a fresh reservation.
		if err := s.client.Set(ctx, id, raw, ttl).Err(); err != nil {
			return Reservation{}, fmt.Errorf("idempotency: reserve %s: %w", key, err)
		}
		return Reservation{State: ReservationStateNew, Record: record}, nil
	}

	if existing.Fingerprint != fingerprint {
		return Reservation{}, ErrFingerprintMismatch
	}
	if existing.Status == StatusCompleted {
		return Reservation{State: ReservationStateCompleted, Record: *existing}, nil
	}
	return Reservation{State: ReservationStatePending, Record: *existing}, nil
}

// SaveResponse stores the response for future replays.
func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now = now.UTC()
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	id := s.recordKey(key)
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}

	record := Record{
		Key:            key,
		Fingerprint:    fingerprint,
		Status:         StatusCompleted,
		ResponseStatus: resp.Status,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	if existing != nil && !existing.CreatedAt.IsZero() {
		record.CreatedAt = existing.CreatedAt
	}
	record.ResponseHeaders = sanitizeHeaders(resp.Headers)
	if len(resp.Body) > 0 {
		record.ResponseBody = append([]byte(nil), resp.Body...)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}
	if err := s.client.Set(ctx, id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: save %s: %w", key, err)
	}
	return nil
}

// Release deletes the reservation so that subsequent attempts may retry.
func (s *RedisStore) Release(ctx context.Context, key, fingerprint string) error {
	if err := s.client.Del(ctx, s.recordKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release %s: %w", key, err)
	}
	return nil
}

// CleanupExpired is a no-op; Redis evicts expired records via key TTLs.
func (s *RedisStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: read %s: %w", id, err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("idempotency: decode %s: %w", id, err)
	}
	return &record, nil
}

func (s *RedisStore) recordKey(key string) string {
	return s.namespace + ":" + storageKey(key)
}
