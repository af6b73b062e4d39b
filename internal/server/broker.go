package server

import (
	"encoding/json"
	"sync"
)

// TopicSession carries every session snapshot.
const TopicSession = "session"

// Broker is an in-process pub/sub for SSE events, keyed by topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish never blocks: a subscriber whose buffer is full misses the event
// and catches up on the next one.
func (b *Broker) Publish(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}

func (b *Broker) subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
