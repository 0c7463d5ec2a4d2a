// Package bus is an in-process topic bus used to fan telemetry out to watchers.
//
// Topics are slash separated. A subscription pattern may end with "#" to match
// every topic below a prefix, and "+" matches exactly one segment. Each
// subscription owns a bounded queue; when it is full the oldest message is
// dropped so a slow watcher never blocks the publisher.
package bus

import (
	"strings"
	"sync"
)

// Message is a published payload.
type Message struct {
	Topic    string
	Payload  map[string]any
	Retained bool
}

// Subscription receives messages matching its pattern.
type Subscription struct {
	pattern []string
	ch      chan *Message
	bus     *Bus
}

// Channel returns the receive side of the subscription queue.
// It is closed by Unsubscribe or Bus.Close.
func (s *Subscription) Channel() <-chan *Message { return s.ch }

// Unsubscribe detaches the subscription and closes its channel.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s) }

// Bus routes messages to subscriptions.
type Bus struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	retained map[string]*Message
	qLen     int
	closed   bool
}

// New creates a bus with the given per-subscription queue length.
func New(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 16
	}

	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

// Subscribe registers a pattern. Retained messages matching it are delivered first.
func (b *Bus) Subscribe(pattern string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		pattern: split(pattern),
		ch:      make(chan *Message, b.qLen),
		bus:     b,
	}

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.subs[sub] = struct{}{}

	for topic, msg := range b.retained {
		if match(sub.pattern, split(topic)) {
			deliver(sub.ch, msg)
		}
	}

	return sub
}

// Publish delivers msg to every matching subscription.
// A retained message replaces the previous retained one on the same topic;
// a retained message with a nil payload clears it.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	if msg.Retained {
		if msg.Payload == nil {
			delete(b.retained, msg.Topic)
		} else {
			b.retained[msg.Topic] = msg
		}
	}

	topic := split(msg.Topic)
	for sub := range b.subs {
		if match(sub.pattern, topic) {
			deliver(sub.ch, msg)
		}
	}
}

// Close closes every subscription channel and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}

	delete(b.subs, sub)
	close(sub.ch)
}

// deliver enqueues msg, dropping the oldest entry if the queue is full.
// Callers hold the bus lock, so only this function writes to ch.
func deliver(ch chan *Message, msg *Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

func split(topic string) []string {
	topic = strings.Trim(topic, "/")
	if topic == "" {
		return nil
	}

	return strings.Split(topic, "/")
}

func match(pattern, topic []string) bool {
	for i, seg := range pattern {
		if seg == "#" {
			return true
		}

		if i >= len(topic) {
			return false
		}

		if seg != "+" && seg != topic[i] {
			return false
		}
	}

	return len(pattern) == len(topic)
}
