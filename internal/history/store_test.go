// internal/history/store_test.go
package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"smartport-assistant/internal/common/database"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/models"
)

// ==========================================================================
// Test Helpers
// ==========================================================================

func createTestStore(t *testing.T, limit int, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := NewStore(client, limit, ttl, logger.NewZapAdapter(zaptest.NewLogger(t)))
	return store, mr
}

func userTurn(content string, intent models.Intent) models.Turn {
	return models.Turn{
		Role:      models.TurnRoleUser,
		Content:   content,
		Intent:    intent,
		Timestamp: "2026-03-14T10:00:00Z",
	}
}

func assistantTurn(content string) models.Turn {
	return models.Turn{
		Role:      models.TurnRoleAssistant,
		Content:   content,
		Timestamp: "2026-03-14T10:00:01Z",
	}
}

// ==========================================================================
// Store Tests
// ==========================================================================

func TestStore_AppendAndRecent(t *testing.T) {
	store, _ := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", userTurn("where is REF123", models.IntentBookingStatus)))
	require.NoError(t, store.Append(ctx, "conv-1", assistantTurn("Booking REF123 is confirmed.")))

	turns, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, models.TurnRoleUser, turns[0].Role)
	assert.Equal(t, "where is REF123", turns[0].Content)
	assert.Equal(t, models.IntentBookingStatus, turns[0].Intent)
	assert.Equal(t, "2026-03-14T10:00:00Z", turns[0].Timestamp)

	assert.Equal(t, models.TurnRoleAssistant, turns[1].Role)
	assert.Equal(t, "Booking REF123 is confirmed.", turns[1].Content)
	assert.Empty(t, turns[1].Intent)
}

func TestStore_RecentReturnsNewestWindow(t *testing.T) {
	store, _ := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "conv-1", userTurn(fmt.Sprintf("message %d", i), "")))
	}

	turns, err := store.Recent(ctx, "conv-1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "message 4", turns[0].Content)
	assert.Equal(t, "message 5", turns[1].Content)
}

func TestStore_CapDropsOldestTurns(t *testing.T) {
	store, _ := createTestStore(t, 3, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "conv-1", userTurn(fmt.Sprintf("message %d", i), "")))
	}

	turns, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "message 3", turns[0].Content)
	assert.Equal(t, "message 5", turns[2].Content)
}

func TestStore_AppendRefreshesTTL(t *testing.T) {
	store, mr := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", userTurn("hello", "")))
	assert.Equal(t, time.Hour, mr.TTL("chat:history:conv-1"))

	mr.FastForward(2 * time.Hour)

	turns, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns, "expired conversations read as empty")
}

func TestStore_ClearRemovesConversation(t *testing.T) {
	store, mr := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", userTurn("hello", "")))
	require.NoError(t, store.Clear(ctx, "conv-1"))

	assert.False(t, mr.Exists("chat:history:conv-1"))
	turns, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_RecentUnknownConversation(t *testing.T) {
	store, _ := createTestStore(t, 20, time.Hour)

	turns, err := store.Recent(context.Background(), "never-seen", 10)

	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_SkipsCorruptEntries(t *testing.T) {
	store, mr := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	_, err := mr.Push("chat:history:conv-1", "{not json")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "conv-1", userTurn("still readable", "")))

	turns, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "still readable", turns[0].Content)
}

func TestStore_IsolatesConversations(t *testing.T) {
	store, _ := createTestStore(t, 20, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", userTurn("first conversation", "")))
	require.NoError(t, store.Append(ctx, "conv-2", userTurn("second conversation", "")))

	first, err := store.Recent(ctx, "conv-1", 0)
	require.NoError(t, err)
	second, err := store.Recent(ctx, "conv-2", 0)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "first conversation", first[0].Content)
	assert.Equal(t, "second conversation", second[0].Content)
}
