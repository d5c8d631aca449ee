// internal/history/store.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
)

const keyFmt = "chat:history:%s"

// Store keeps per-conversation turns in a Redis list, newest last. Each
// conversation is capped at the configured number of turns and expires a
// TTL after its last append, so abandoned conversations clean themselves up.
type Store struct {
	redis  *database.RedisClient
	limit  int64
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(redis *database.RedisClient, limit int, ttl time.Duration, log logger.Logger) *Store {
	if limit <= 0 {
		limit = 20
	}
	return &Store{
		redis:  redis,
		limit:  int64(limit),
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "history"}),
	}
}

// Append stores one turn at the tail of the conversation, drops entries
// beyond the cap and refreshes the expiry.
func (s *Store) Append(ctx context.Context, conversationID string, turn models.Turn) error {
	raw, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal history turn: %w", err)
	}

	key := historyKey(conversationID)
	pipe := s.redis.Client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -s.limit, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns, oldest first. A non-positive limit
// returns the whole stored window. Entries that no longer parse are skipped
// so one bad write cannot wedge a conversation.
func (s *Store) Recent(ctx context.Context, conversationID string, limit int) ([]models.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raws, err := s.redis.Client.LRange(ctx, historyKey(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	turns := make([]models.Turn, 0, len(raws))
	for _, raw := range raws {
		var turn models.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			s.logger.Warn("dropping corrupt history entry", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear removes the conversation entirely.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.redis.Del(ctx, historyKey(conversationID)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func historyKey(conversationID string) string {
	return fmt.Sprintf(keyFmt, conversationID)
}
