package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// setNXer is the slice of the redis client the ledger needs.
type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis claims keys with SET NX so several evaluator instances can share one ledger.
// A zero ttl keeps claims forever; a positive ttl must outlive the longest period.
type Redis struct {
	client    setNXer
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	return newRedis(client, namespace, ttl)
}

func newRedis(client setNXer, namespace string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = "claim"
	}
	return &Redis{client: client, namespace: namespace, ttl: ttl, now: time.Now}
}

// NewRedisClient builds a single-node or cluster client, like the shared cache helper.
func NewRedisClient(addrs []string, password string, useCluster bool) redis.UniversalClient {
	if useCluster && len(addrs) > 1 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    addrs,
			Password: password,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     addrs[0],
		Password: password,
		DB:       0,
	})
}

func (l *Redis) Claim(ctx context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	ok, err := l.client.SetNX(ctx, l.namespace+":"+key.String(), l.now().UTC().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}
