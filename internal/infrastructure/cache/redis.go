package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jhoicas/Envios-api/internal/application/dto"
	"github.com/jhoicas/Envios-api/internal/application/tracking"
)

var _ tracking.Cache = (*TrackingCache)(nil)

// TrackingCache guarda en Redis la respuesta del seguimiento público por tenant y código.
type TrackingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackingCache conecta con Redis y verifica la conexión con PING.
func NewTrackingCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*TrackingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return NewTrackingCacheWithClient(client, ttl), nil
}

// NewTrackingCacheWithClient usa un cliente ya construido.
func NewTrackingCacheWithClient(client *redis.Client, ttl time.Duration) *TrackingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TrackingCache{client: client, ttl: ttl}
}

// TrackingKey clave de la entrada de seguimiento.
func TrackingKey(tenantID, code string) string {
	return fmt.Sprintf("tracking:%s:%s", tenantID, code)
}

// GetTracking devuelve (nil, nil) si la clave no existe.
func (c *TrackingCache) GetTracking(ctx context.Context, tenantID, code string) (*dto.TrackingResponse, error) {
	data, err := c.client.Get(ctx, TrackingKey(tenantID, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tracking cache: %w", err)
	}
	var resp dto.TrackingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode tracking cache: %w", err)
	}
	return &resp, nil
}

// SetTracking guarda la respuesta con el TTL configurado.
func (c *TrackingCache) SetTracking(ctx context.Context, tenantID, code string, resp *dto.TrackingResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode tracking cache: %w", err)
	}
	if err := c.client.Set(ctx, TrackingKey(tenantID, code), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set tracking cache: %w", err)
	}
	return nil
}

// Invalidate borra las entradas de los códigos dados (numero y código de transportadora).
func (c *TrackingCache) Invalidate(ctx context.Context, tenantID string, codes ...string) error {
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		if code != "" {
			keys = append(keys, TrackingKey(tenantID, code))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate tracking cache: %w", err)
	}
	return nil
}

// Close cierra la conexión.
func (c *TrackingCache) Close() error {
	return c.client.Close()
}
