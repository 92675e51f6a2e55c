package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agendor/agendor-server/internal/scheduling"
)

// AgendaCache keeps rendered daily agendas in Redis for a short TTL. It is a
// pure optimization: every failure downgrades to the database path, and a
// successful booking deletes the doctor's entry for that day.
type AgendaCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewAgendaCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *AgendaCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgendaCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func agendaKey(doctorID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("agenda:%s:%s", doctorID.String(), day.Format("2006-01-02"))
}

func (c *AgendaCache) Get(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]scheduling.AgendaSlot, bool) {
	raw, err := c.client.Get(ctx, agendaKey(doctorID, day)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("agenda cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var slots []scheduling.AgendaSlot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Warn("agenda cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return slots, true
}

func (c *AgendaCache) Set(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []scheduling.AgendaSlot) {
	raw, err := json.Marshal(slots)
	if err != nil {
		c.logger.Warn("agenda cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, agendaKey(doctorID, day), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("agenda cache write failed", zap.Error(err))
	}
}

func (c *AgendaCache) Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time) {
	if err := c.client.Del(ctx, agendaKey(doctorID, day)).Err(); err != nil {
		c.logger.Warn("agenda cache invalidate failed", zap.Error(err))
	}
}
