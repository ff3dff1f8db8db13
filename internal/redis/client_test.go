package redis

import (
	"context"
	"encoding/json"
	"testing"

	"wisefido-vitals/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONToStream(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	defer Close(client)

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	_, err = PublishJSONToStream(ctx, client, "vitals:alarm:stream", map[string]string{"patient_id": "P1"})
	require.NoError(t, err)
	_, err = PublishJSONToStream(ctx, client, "vitals:alarm:stream", map[string]string{"patient_id": "P2"})
	require.NoError(t, err)

	data, err := ReadStreamJSON(ctx, client, "vitals:alarm:stream")
	require.NoError(t, err)
	require.Len(t, data, 2)

	var first map[string]string
	require.NoError(t, json.Unmarshal([]byte(data[0]), &first))
	assert.Equal(t, "P1", first["patient_id"])
}
