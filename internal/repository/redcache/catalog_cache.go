package redcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fsdevblog/groph-boost/internal/domain"
)

const serviceTTL = 5 * time.Minute

// CatalogCache кеш каталога услуг поверх redis. Промах транслируется в
// domain.ErrRecordNotFound, чтобы вызывающий код не знал про redis.Nil.
type CatalogCache struct {
	client *redis.Client
}

func New(client *redis.Client) *CatalogCache {
	return &CatalogCache{client: client}
}

func (c *CatalogCache) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	raw, err := c.client.Get(ctx, serviceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("reading service %d from cache: %w", id, err)
	}

	var svc domain.Service
	if unmarshalErr := json.Unmarshal(raw, &svc); unmarshalErr != nil {
		return nil, fmt.Errorf("decoding cached service %d: %w", id, unmarshalErr)
	}
	return &svc, nil
}

func (c *CatalogCache) SetService(ctx context.Context, service *domain.Service) error {
	raw, marshalErr := json.Marshal(service)
	if marshalErr != nil {
		return fmt.Errorf("encoding service %d for cache: %w", service.ID, marshalErr)
	}
	if err := c.client.Set(ctx, serviceKey(service.ID), raw, serviceTTL).Err(); err != nil {
		return fmt.Errorf("writing service %d to cache: %w", service.ID, err)
	}
	return nil
}

func serviceKey(id int64) string {
	return fmt.Sprintf("service:%d", id)
}
