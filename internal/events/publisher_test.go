package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/portal-backend/internal/domain"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "portal:events:task", Channel(domain.ResourceTask))
	assert.Equal(t, "portal:events:client_account", Channel(domain.ResourceClientAccount))
}

func TestEntityChanged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), Channel(domain.ResourceTask))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	pub := NewPublisher(client)
	pub.EntityChanged(context.Background(), domain.ResourceTask, domain.ActionUpdate, "t-123")

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "task", ev.Resource)
		assert.Equal(t, "update", ev.Action)
		assert.Equal(t, "t-123", ev.ID)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestEntityChangedSurvivesCancelledRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), Channel(domain.ResourceProject))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	// The request context is already cancelled; the publish must still go
	// out because the mutation committed.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewPublisher(client)
	pub.EntityChanged(ctx, domain.ResourceProject, domain.ActionDelete, "p-1")

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "delete", ev.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
