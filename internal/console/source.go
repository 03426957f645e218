package console

import (
	"context"
	"fmt"

	"mailtrack/internal/config"
	"mailtrack/internal/feed"
	"mailtrack/internal/pubsub"
	"mailtrack/internal/pubsub/memory"
	"mailtrack/internal/pubsub/nats"
)

// EventSource delivers raw feed payloads for one topic until ctx ends.
type EventSource interface {
	Run(ctx context.Context, handle func([]byte)) error
}

// WebsocketSource subscribes to the feed gateway over a websocket.
type WebsocketSource struct {
	URL   string
	Topic string
}

func (s WebsocketSource) Run(ctx context.Context, handle func([]byte)) error {
	sub := feed.NewSubscriber(s.URL, s.Topic, handle)
	if err := sub.Start(ctx); err != nil {
		return err
	}
	<-sub.Done()
	return nil
}

// PubsubSource consumes feed events from a pubsub provider.
type PubsubSource struct {
	Consumer pubsub.Consumer
}

func (s PubsubSource) Run(ctx context.Context, handle func([]byte)) error {
	msgs, err := s.Consumer.Subscribe(ctx)
	if err != nil {
		return err
	}
	feed.Pump(ctx, msgs, handle)
	return nil
}

// NewEventSource builds the configured transport for one topic. The
// returned closer tears down the underlying provider; for the websocket
// transport it is a no-op, the subscriber's context owns teardown.
func NewEventSource(ctx context.Context, cfg config.FeedConfig, topic string) (EventSource, func() error, error) {
	switch cfg.Provider {
	case "websocket":
		return WebsocketSource{URL: cfg.URL, Topic: topic}, func() error { return nil }, nil

	case "nats":
		provider := nats.NewProvider(cfg.URL)
		if err := provider.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("connecting feed provider: %w", err)
		}
		consumer, err := provider.NewConsumer(pubsub.ConsumerOptions{
			StreamName:     cfg.Stream,
			ConsumerName:   "console-" + topic,
			FilterSubject:  topic + ".>",
			ChannelBufSize: cfg.BufSize,
		})
		if err != nil {
			provider.Close()
			return nil, nil, err
		}
		return PubsubSource{Consumer: consumer}, provider.Close, nil

	case "memory":
		engine := memory.New()
		consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{
			StreamName:     cfg.Stream,
			FilterSubject:  topic + ".>",
			ChannelBufSize: cfg.BufSize,
		})
		if err != nil {
			engine.Close()
			return nil, nil, err
		}
		return PubsubSource{Consumer: consumer}, engine.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown feed provider: %s", cfg.Provider)
	}
}
