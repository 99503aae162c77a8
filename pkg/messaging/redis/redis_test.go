package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewClient(ctx, Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	broker := NewRedisBroker(client, nil)
	defer broker.Close()

	ch, err := broker.Subscribe(ctx, "appointment.created")
	require.NoError(t, err)

	msg := messaging.Message{ID: "e1", Type: "appointment.created", Payload: json.RawMessage(`{"a":1}`)}
	require.NoError(t, broker.Publish(ctx, "appointment.created", msg))

	select {
	case raw := <-ch:
		var got messaging.Message
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "e1", got.ID)
		assert.JSONEq(t, `{"a":1}`, string(got.Payload))
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(context.Background(), Config{URL: "not a url"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = NewClient(ctx, Config{URL: "redis://" + addr})
	assert.Error(t, err)
}
