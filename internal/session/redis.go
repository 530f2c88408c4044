package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-dashboard/internal/ledger"
	"inventory-dashboard/internal/redisclient"

	"github.com/google/uuid"
)

const (
	lockTTL      = 10 * time.Second
	lockRetryGap = 25 * time.Millisecond
)

// RedisStore keeps ledger snapshots in Redis so sessions survive restarts
// and can be served by any replica.
type RedisStore struct {
	client *redisclient.Client
	ttl    time.Duration
	opts   []ledger.Option
}

// NewRedisStore creates a store whose loaded ledgers are rebuilt with opts
func NewRedisStore(client *redisclient.Client, ttl time.Duration, opts ...ledger.Option) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, opts: opts}
}

func (s *RedisStore) Save(ctx context.Context, id string, l *ledger.Ledger) error {
	data, err := EncodeSnapshot(l)
	if err != nil {
		return err
	}
	return s.client.SaveSession(ctx, id, data, s.ttl)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*ledger.Ledger, error) {
	data, err := s.client.LoadSession(ctx, id, s.ttl)
	if errors.Is(err, redisclient.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return DecodeSnapshot(data, s.opts...)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, redisclient.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Lock spins on a Redis lock until acquired or ctx ends
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := "session:" + id
	token := uuid.New().String()

	for {
		ok, err := s.client.AcquireLock(ctx, key, token, lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = s.client.ReleaseLock(ctx, key, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryGap):
		}
	}
}

// EncodeSnapshot serialises a ledger to JSON
func EncodeSnapshot(l *ledger.Ledger) ([]byte, error) {
	data, err := json.Marshal(l.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot rebuilds a ledger from EncodeSnapshot output
func DecodeSnapshot(data []byte, opts ...ledger.Option) (*ledger.Ledger, error) {
	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger snapshot: %w", err)
	}
	return ledger.Restore(snap, opts...)
}
