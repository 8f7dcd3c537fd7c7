package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStreamClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCreateConsumerGroup_MissingStream(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	// 流不存在时一并创建
	require.NoError(t, CreateConsumerGroup(ctx, client, "test:stream", "test-group"))

	// 重复创建是空操作
	require.NoError(t, CreateConsumerGroup(ctx, client, "test:stream", "test-group"))
}

func TestPublishReadAck(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "test:stream", "test-group"))

	id, err := PublishJSONToStream(ctx, client, "test:stream", map[string]string{"patient_id": "PAT-001"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	messages, err := ReadFromStream(ctx, client, "test:stream", "test-group", "consumer-1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, id, messages[0].ID)
	assert.Contains(t, messages[0].Values["data"], "PAT-001")

	require.NoError(t, AckMessage(ctx, client, "test:stream", "test-group", messages[0].ID))
}
