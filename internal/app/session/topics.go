/*
Package session contains the core presence and coordination logic.

This file defines the TopicHub, the publish/subscribe layer connections are grouped
by. Every member connection subscribes to its session topic (the session code) and
its personal topic (its own uuid); directed delivery publishes to a personal topic,
room broadcast publishes to a session topic with the sender excluded.
*/
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ajjacobi12/friend-finder-sub000/internal/pkg/logx"
)

// TopicHub fans frames out to the connections subscribed to a topic.
// Delivery is fire-and-forget and at-most-once; the hub never retries.
type TopicHub struct {
	// mu protects access to the topics map.
	mu sync.RWMutex

	// topics maps a topic name to the set of subscribed connections, keyed by connection ID.
	topics map[string]map[string]Conn

	// structured logger with hub context.
	logger zerolog.Logger
}

// NewTopicHub constructs an empty TopicHub.
func NewTopicHub() *TopicHub {
	return &TopicHub{
		topics: make(map[string]map[string]Conn),
		logger: logx.Logger().With().Str("component", "TopicHub").Logger(),
	}
}

// Subscribe adds the connection to the topic, creating the topic if needed.
func (h *TopicHub) Subscribe(topic string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]Conn)
		h.topics[topic] = subs
	}
	subs[c.ID()] = c
}

// Unsubscribe removes the connection from the topic, dropping the topic once empty.
func (h *TopicHub) Unsubscribe(topic string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		return
	}

	delete(subs, connID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// DropTopic removes a topic and all its subscriptions at once.
func (h *TopicHub) DropTopic(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.topics, topic)
}

// Publish delivers an event to every subscriber of the topic except the excluded
// connection. Pass an empty excludeConnID to reach all subscribers. Send failures
// are logged, not retried.
func (h *TopicHub) Publish(topic string, event string, payload any, excludeConnID string) {
	h.mu.RLock()
	subs := h.topics[topic]
	conns := make([]Conn, 0, len(subs))
	for id, c := range subs {
		if id == excludeConnID {
			continue
		}
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	frame := Frame{Event: event, Payload: payload}

	for _, c := range conns {
		if err := c.Send(frame); err != nil {
			h.logger.Warn().
				Err(err).
				Str("topic", topic).
				Str("event", event).
				Str("conn_id", c.ID()).
				Msg("Dropped frame for subscriber.")
		}
	}
}

// SubscriberCount returns the number of connections subscribed to a topic.
func (h *TopicHub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}
