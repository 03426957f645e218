package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Subscriber maintains one topic-scoped websocket subscription to the
// feed gateway for the lifetime of its owning view. Raw event payloads
// are handed to the handler in delivery order; the handler owns any
// serialization against the view's collection.
type Subscriber struct {
	url     string
	topic   string
	handler func([]byte)

	subID string
	conn  *websocket.Conn
	send  chan BaseMessage
	done  chan struct{}
}

// NewSubscriber creates a subscriber for one topic. The handler receives
// the inner event payload bytes of every pushed event.
func NewSubscriber(url, topic string, handler func([]byte)) *Subscriber {
	return &Subscriber{
		url:     url,
		topic:   topic,
		handler: handler,
		subID:   uuid.New().String(),
		send:    make(chan BaseMessage, 256),
		done:    make(chan struct{}),
	}
}

// Start dials the gateway, issues the topic subscription, and launches
// the read and write pumps. Cancelling ctx tears the subscription down:
// a best-effort unsubscribe, then the connection closes.
func (s *Subscriber) Start(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("feed dial %s: %w", s.url, err)
	}
	s.conn = conn

	// Subscribe before the pumps exist, so cancellation can never put an
	// unsubscribe or close frame on the wire ahead of the subscription.
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(BaseMessage{
		ID:      s.subID,
		Type:    TypeSubscribe,
		Payload: mustMarshal(SubscribePayload{Topic: s.topic}),
	}); err != nil {
		s.conn.Close()
		return fmt.Errorf("feed subscribe %s: %w", s.topic, err)
	}

	go s.writePump(ctx)
	go s.readPump()

	slog.Info("Feed subscription started", "topic", s.topic, "url", s.url)
	return nil
}

// Done is closed once the read pump has exited and no further events
// will be delivered.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// readPump reads messages until the connection fails or is closed by the
// write pump on context cancellation. It is the only reader.
func (s *Subscriber) readPump() {
	defer func() {
		s.conn.Close()
		close(s.done)
	}()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("Feed connection closed", "topic", s.topic, "error", err)
			} else {
				slog.Info("Feed connection closed", "topic", s.topic)
			}
			return
		}

		var msg BaseMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Unmarshalling feed message", "topic", s.topic, "error", err)
			continue
		}

		switch msg.Type {
		case TypeEvent:
			s.handler(msg.Payload)
		case TypeSubscribeAck:
			slog.Debug("Feed subscription acknowledged", "topic", s.topic, "id", msg.ID)
		case TypeError:
			var payload ErrorPayload
			if err := json.Unmarshal(msg.Payload, &payload); err == nil {
				slog.Warn("Feed error message", "topic", s.topic, "code", payload.Code, "message", payload.Message)
			}
		}
	}
}

// writePump owns all writes: outbound messages, pings, and the close
// handshake on context cancellation. It is the only writer.
func (s *Subscriber) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteJSON(BaseMessage{
				ID:      s.subID,
				Type:    TypeUnsubscribe,
				Payload: mustMarshal(SubscribePayload{Topic: s.topic}),
			})
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
