package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// SupplierCache holds recently looked-up suppliers. Get returns nil, nil on a miss.
type SupplierCache interface {
	Get(ctx context.Context, id string) (*domain.Supplier, error)
	Set(ctx context.Context, supplier *domain.Supplier, ttl time.Duration) error
	Invalidate(ctx context.Context, id string) error
}

type redisSupplierCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSupplierCache builds a cache on the given client.
func NewRedisSupplierCache(client *redis.Client) SupplierCache {
	return &redisSupplierCache{client: client, prefix: "suppliers:"}
}

type cachedSupplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	SLAHours  int       `json:"sla_hours"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *redisSupplierCache) key(id string) string {
	return c.prefix + id
}

func (c *redisSupplierCache) Get(ctx context.Context, id string) (*domain.Supplier, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cachedSupplier
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &domain.Supplier{
		ID:        entry.ID,
		Name:      entry.Name,
		Category:  domain.SupplierCategory(entry.Category),
		SLAHours:  entry.SLAHours,
		Active:    entry.Active,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, nil
}

func (c *redisSupplierCache) Set(ctx context.Context, supplier *domain.Supplier, ttl time.Duration) error {
	raw, err := json.Marshal(cachedSupplier{
		ID:        supplier.ID,
		Name:      supplier.Name,
		Category:  string(supplier.Category),
		SLAHours:  supplier.SLAHours,
		Active:    supplier.Active,
		CreatedAt: supplier.CreatedAt,
		UpdatedAt: supplier.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(supplier.ID), raw, ttl).Err()
}

func (c *redisSupplierCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
