package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExposureCache mantiene en Redis la exposición pendiente por número de la
// franja del día. Alimenta el panel de riesgo en vivo; la colocación NUNCA
// lee de acá: el chequeo de límite siempre recalcula contra Postgres dentro
// de la transacción.
type ExposureCache struct {
	r   *redis.Client
	ttl time.Duration
}

func NewExposureCache(r *redis.Client, ttl time.Duration) *ExposureCache {
	return &ExposureCache{r: r, ttl: ttl}
}

func key(drawDate, slot string) string {
	return fmt.Sprintf("exposure:%s:%s", drawDate, slot)
}

func ticketsKey(drawDate, slot string) string {
	return fmt.Sprintf("exposure_tickets:%s:%s", drawDate, slot)
}

// Add acumula una apuesta aceptada (lo llama el settlement-worker).
func (c *ExposureCache) Add(ctx context.Context, drawDate, slot, number string, amountCents int64) error {
	k := key(drawDate, slot)
	tk := ticketsKey(drawDate, slot)

	pipe := c.r.TxPipeline()
	pipe.HIncrBy(ctx, k, number, amountCents)
	pipe.HIncrBy(ctx, tk, number, 1)
	pipe.Expire(ctx, k, c.ttl)
	pipe.Expire(ctx, tk, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Get devuelve exposición y cantidad de tiquetes por número. ok=false cuando
// no hay nada cacheado y el caller debe caer a Postgres.
func (c *ExposureCache) Get(ctx context.Context, drawDate, slot string) (exposure map[string]int64, tickets map[string]int64, ok bool, err error) {
	raw, err := c.r.HGetAll(ctx, key(drawDate, slot)).Result()
	if err != nil {
		return nil, nil, false, err
	}
	if len(raw) == 0 {
		return nil, nil, false, nil
	}

	exposure = make(map[string]int64, len(raw))
	for n, v := range raw {
		cents, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		exposure[n] = cents
	}

	rawT, err := c.r.HGetAll(ctx, ticketsKey(drawDate, slot)).Result()
	if err != nil {
		return nil, nil, false, err
	}
	tickets = make(map[string]int64, len(rawT))
	for n, v := range rawT {
		cnt, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		tickets[n] = cnt
	}
	return exposure, tickets, true, nil
}

// Clear elimina los contadores de una franja ya liquidada.
func (c *ExposureCache) Clear(ctx context.Context, drawDate, slot string) error {
	return c.r.Del(ctx, key(drawDate, slot), ticketsKey(drawDate, slot)).Err()
}
