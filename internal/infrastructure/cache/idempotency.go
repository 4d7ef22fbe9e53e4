package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SafetyDady/smart-erp-backend/internal/domain"
)

const pendingMarker = "__pending__"

// StoredResponse is the replayable outcome of a request made with an Idempotency-Key.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers responses per (scope, key) so retried writes are not applied twice.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore builds the store. Keys expire after ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func redisKey(scope, key string) string {
	return "idempotency:" + scope + ":" + key
}

// Reserve claims the key for a new request. When the key was already used it returns the stored
// response instead; a key whose first request is still running yields an ErrConflict.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string) (*StoredResponse, bool, error) {
	k := redisKey(scope, key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("cache: reserve idempotency key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("cache: reserve idempotency key: %w", err)
		}
		if ok {
			return nil, true, nil
		}
		return nil, false, domain.Errorf(domain.ErrConflict, "request with Idempotency-Key %q is in progress", key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read idempotency key: %w", err)
	}
	if string(raw) == pendingMarker {
		return nil, false, domain.Errorf(domain.ErrConflict, "request with Idempotency-Key %q is in progress", key)
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("cache: decode stored response: %w", err)
	}
	return &resp, false, nil
}

// Complete stores the final response of a reserved key.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key string, resp StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache: encode response: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(scope, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache: store response: %w", err)
	}
	return nil
}

// Release drops a reservation so the client may retry, used when the request failed.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("cache: release idempotency key: %w", err)
	}
	return nil
}
