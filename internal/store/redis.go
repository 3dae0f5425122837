package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix   = "doc:"
	indexKeyPrefix = "doc:index:"
	unsyncedKey    = "doc:unsynced"
)

// RedisLocal is the durable local cache mirror. Every document lives under
// doc:{collection}:{id}; per-collection and unsynced index sets support
// offline queries and the reconciliation pass. Entries carry no TTL.
type RedisLocal struct {
	client *redis.Client
}

// NewRedisLocal constructs the local cache.
func NewRedisLocal(client *redis.Client) *RedisLocal {
	return &RedisLocal{client: client}
}

func docKey(collection, id string) string {
	return docKeyPrefix + collection + ":" + id
}

func member(collection, id string) string {
	return collection + ":" + id
}

// Set writes an envelope and maintains the index sets.
func (l *RedisLocal) Set(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store/redis: marshal envelope: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.Set(ctx, docKey(env.Collection, env.ID), data, 0)
	pipe.SAdd(ctx, indexKeyPrefix+env.Collection, env.ID)
	if env.SyncStatus == SyncSynced {
		pipe.SRem(ctx, unsyncedKey, member(env.Collection, env.ID))
	} else {
		pipe.SAdd(ctx, unsyncedKey, member(env.Collection, env.ID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store/redis: set %s/%s: %w", env.Collection, env.ID, err)
	}
	return nil
}

// Get fetches one envelope; returns (nil, nil) when absent.
func (l *RedisLocal) Get(ctx context.Context, collection, id string) (*Envelope, error) {
	data, err := l.client.Get(ctx, docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("store/redis: get %s/%s: %w", collection, id, err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("store/redis: decode %s/%s: %w", collection, id, err)
	}
	return &env, nil
}

// Delete removes the envelope and its index memberships.
func (l *RedisLocal) Delete(ctx context.Context, collection, id string) error {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, docKey(collection, id))
	pipe.SRem(ctx, indexKeyPrefix+collection, id)
	pipe.SRem(ctx, unsyncedKey, member(collection, id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store/redis: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List returns every cached envelope of a collection.
func (l *RedisLocal) List(ctx context.Context, collection string) ([]Envelope, error) {
	ids, err := l.client.SMembers(ctx, indexKeyPrefix+collection).Result()
	if err != nil {
		return nil, fmt.Errorf("store/redis: list %s: %w", collection, err)
	}
	return l.fetch(ctx, collection, ids)
}

// Unsynced returns every envelope whose last write did not reach the remote store.
func (l *RedisLocal) Unsynced(ctx context.Context) ([]Envelope, error) {
	members, err := l.client.SMembers(ctx, unsyncedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store/redis: list unsynced: %w", err)
	}
	var envs []Envelope
	for _, m := range members {
		data, err := l.client.Get(ctx, docKeyPrefix+m).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("store/redis: get unsynced %s: %w", m, err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("store/redis: decode unsynced %s: %w", m, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (l *RedisLocal) fetch(ctx context.Context, collection string, ids []string) ([]Envelope, error) {
	var envs []Envelope
	for _, id := range ids {
		env, err := l.Get(ctx, collection, id)
		if err != nil {
			return nil, err
		}
		if env != nil {
			envs = append(envs, *env)
		}
	}
	return envs, nil
}
