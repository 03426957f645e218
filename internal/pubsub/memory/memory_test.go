package memory

import (
	"context"
	"testing"
	"time"

	"mailtrack/internal/pubsub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"mail.updates", "mail.updates", true},
		{"mail.updates", "branch.updates", false},
		{"mail.*", "mail.updates", true},
		{"mail.*", "mail.updates.extra", false},
		{"mail.>", "mail.updates.extra", true},
		{">", "anything.at.all", true},
		{"", "mail.updates", false},
		{"mail.updates", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchSubject(tt.pattern, tt.subject), "pattern=%q subject=%q", tt.pattern, tt.subject)
	}
}

func TestEngine_PublishSubscribeRoundTrip(t *testing.T) {
	engine := New()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "mail.updates"})
	require.NoError(t, err)

	msgCh, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	publisher, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, "mail.updates", []byte(`{"action":"save"}`)))

	select {
	case msg := <-msgCh:
		assert.Equal(t, "mail.updates", msg.Subject())
		assert.JSONEq(t, `{"action":"save"}`, string(msg.Data()))
		assert.NoError(t, msg.Ack())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestEngine_DeliveryOrderPreserved(t *testing.T) {
	engine := New()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "mail.updates", ChannelBufSize: 10})
	require.NoError(t, err)
	msgCh, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	publisher, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)

	payloads := []string{"one", "two", "three"}
	for _, p := range payloads {
		require.NoError(t, publisher.Publish(ctx, "mail.updates", []byte(p)))
	}

	for _, want := range payloads {
		select {
		case msg := <-msgCh:
			assert.Equal(t, want, string(msg.Data()))
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for %q", want)
		}
	}
}

func TestEngine_SubjectPrefix(t *testing.T) {
	engine := New()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "MAILTRACK.mail.updates"})
	require.NoError(t, err)
	msgCh, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	publisher, err := engine.NewPublisher(pubsub.PublisherOptions{SubjectPrefix: "MAILTRACK"})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, "mail.updates", []byte("x")))

	select {
	case msg := <-msgCh:
		assert.Equal(t, "MAILTRACK.mail.updates", msg.Subject())
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEngine_DuplicatePatternRejected(t *testing.T) {
	engine := New()
	defer engine.Close()

	ctx := context.Background()
	_, _, err := engine.subscribe(ctx, "mail.>", 1)
	require.NoError(t, err)

	_, _, err = engine.subscribe(ctx, "mail.>", 1)
	assert.ErrorIs(t, err, ErrPatternSubscribed)
}

func TestEngine_ClosedEngine(t *testing.T) {
	engine := New()
	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close()) // idempotent

	_, err := engine.NewPublisher(pubsub.PublisherOptions{})
	assert.ErrorIs(t, err, ErrEngineClosed)

	_, err = engine.NewConsumer(pubsub.ConsumerOptions{})
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_UnsubscribeOnContextCancel(t *testing.T) {
	engine := New()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "mail.updates"})
	require.NoError(t, err)
	msgCh, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	// Channel closes once the unsubscribe goroutine runs
	select {
	case _, ok := <-msgCh:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestMessage_AckNakIdempotence(t *testing.T) {
	ch := make(chan pubsub.Message, 1)
	msg := &memoryMessage{
		data:         []byte("x"),
		subject:      "mail.updates",
		numDelivered: 1,
		redeliveryCh: ch,
		ctx:          context.Background(),
	}

	require.NoError(t, msg.Ack())
	require.NoError(t, msg.Nak()) // no-op after ack
	assert.Len(t, ch, 0)

	msg2 := &memoryMessage{
		data:         []byte("y"),
		subject:      "mail.updates",
		numDelivered: 1,
		redeliveryCh: ch,
		ctx:          context.Background(),
	}
	require.NoError(t, msg2.Nak())
	assert.Len(t, ch, 1)

	md, err := msg2.Metadata()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), md.NumDelivered)
}
