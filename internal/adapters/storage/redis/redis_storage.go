// Package redis disponibiliza a implementação do storage baseada em Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
	"github.com/SerpentAI/selenium-respectful/internal/core/ports"
)

const defaultPrefix = "RESPECTFUL"

type Storage struct {
	client *redis.Client
	keys   keySet
}

var _ ports.Storage = (*Storage)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &domain.StoreConnectionError{Err: fmt.Errorf("redis ping failed: %w", err)}
	}

	return &Storage{client: client, keys: keySet{prefix: cfg.Prefix}}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) PutRealm(ctx context.Context, realm domain.Realm) (bool, error) {
	exists, err := s.client.HExists(ctx, s.keys.realm(realm.Name), domain.FieldMaxRequests).Result()
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.keys.realm(realm.Name),
		domain.FieldMaxRequests, realm.MaxRequests,
		domain.FieldTimespan, realm.TimespanSeconds(),
	)
	pipe.SAdd(ctx, s.keys.index(), realm.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) UpdateRealmFields(ctx context.Context, name string, fields map[string]int) error {
	if len(fields) == 0 {
		return nil
	}
	pairs := make([]any, 0, len(fields)*2)
	for field, value := range fields {
		pairs = append(pairs, field, value)
	}
	return s.client.HSet(ctx, s.keys.realm(name), pairs...).Err()
}

func (s *Storage) GetRealm(ctx context.Context, name string) (domain.Realm, error) {
	values, err := s.client.HGetAll(ctx, s.keys.realm(name)).Result()
	if err != nil {
		return domain.Realm{}, err
	}
	if len(values) == 0 {
		return domain.Realm{}, &domain.RealmNotFoundError{Realms: []string{name}}
	}

	maxRequests, err := strconv.Atoi(values[domain.FieldMaxRequests])
	if err != nil {
		return domain.Realm{}, fmt.Errorf("realm %q has a corrupt max_requests field: %w", name, err)
	}
	timespan, err := strconv.Atoi(values[domain.FieldTimespan])
	if err != nil {
		return domain.Realm{}, fmt.Errorf("realm %q has a corrupt timespan field: %w", name, err)
	}

	return domain.Realm{
		Name:        name,
		MaxRequests: maxRequests,
		Timespan:    time.Duration(timespan) * time.Second,
	}, nil
}

func (s *Storage) DeleteRealm(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keys.realm(name))
	pipe.SRem(ctx, s.keys.index(), name)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListRealms(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.keys.index()).Result()
}

func (s *Storage) UnknownRealms(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	members := make([]any, len(names))
	for i, name := range names {
		members[i] = name
	}
	registered, err := s.client.SMIsMember(ctx, s.keys.index(), members...).Result()
	if err != nil {
		return nil, err
	}

	var missing []string
	for i, ok := range registered {
		if !ok {
			missing = append(missing, names[i])
		}
	}
	return missing, nil
}

func (s *Storage) ActiveLeases(ctx context.Context, realm string) (int64, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.client.ZCount(ctx, s.keys.window(realm), "("+now, "+inf").Result()
}

func (s *Storage) IssueLease(ctx context.Context, realm string, ttl time.Duration) (domain.Lease, error) {
	id := uuid.NewString()
	expiresAt := time.Now().Add(ttl)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.lease(realm, id), id, ttl)
	pipe.ZAdd(ctx, s.keys.window(realm), redis.Z{Score: float64(expiresAt.UnixMilli()), Member: id})
	// All leases of a realm share the same TTL, so the newest one always
	// expires last and the window key can simply follow it.
	pipe.Expire(ctx, s.keys.window(realm), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Lease{}, err
	}

	return domain.Lease{Realm: realm, ID: id, ExpiresAt: expiresAt}, nil
}

func (s *Storage) PurgeLeases(ctx context.Context, realm string) error {
	if err := s.client.Del(ctx, s.keys.window(realm)).Err(); err != nil {
		return err
	}

	iter := s.client.Scan(ctx, 0, s.keys.leasePattern(realm), 100).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return s.client.Del(ctx, stale...).Err()
}
