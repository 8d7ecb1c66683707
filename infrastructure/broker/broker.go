// Package broker is the in-process pub/sub fabric that turns mutation
// side-effects into live subscription deliveries. One topic exists per
// event kind; each subscriber owns a bounded buffer and a slow consumer
// is dropped rather than ever blocking a publisher.
package broker

import (
	"sync"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/metrics"
)

// SubscriberBuffer is the per-subscriber bounded buffer size. On
// overflow the subscriber's stream closes (slow-consumer drop).
const SubscriberBuffer = 1024

// Subscription is one subscriber's view of a topic. Events arrives in
// publish order on C until the subscription is closed by the caller,
// the topic, or a slow-consumer drop.
type Subscription[T any] struct {
	ch     chan T
	topic  *Topic[T]
	cancel sync.Once
}

// C is the receive channel. It closes when the stream terminates.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close detaches the subscriber and releases its buffer.
func (s *Subscription[T]) Close() {
	s.topic.drop(s, false)
}

// Topic is a many-producer many-subscriber fan-out for one event kind.
type Topic[T any] struct {
	name   string
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
	m      *metrics.Metrics
}

// NewTopic creates a topic. Metrics may be nil.
func NewTopic[T any](name string, m *metrics.Metrics) *Topic[T] {
	return &Topic[T]{
		name: name,
		subs: make(map[*Subscription[T]]struct{}),
		m:    m,
	}
}

// Subscribe attaches a new subscriber with its own bounded buffer.
// Subscribing to a closed topic returns an already-terminated stream.
func (t *Topic[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		ch:    make(chan T, SubscriberBuffer),
		topic: t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(sub.ch)
		return sub
	}
	t.subs[sub] = struct{}{}
	if t.m != nil {
		t.m.SubscribersActive.WithLabelValues("tracking", t.name).Inc()
	}
	return sub
}

// Publish delivers the event to every subscriber without blocking.
// A subscriber whose buffer is full is dropped and its stream closed.
func (t *Topic[T]) Publish(event T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.m != nil {
		t.m.EventsPublishedTotal.WithLabelValues("tracking", t.name).Inc()
	}

	for sub := range t.subs {
		select {
		case sub.ch <- event:
		default:
			t.dropLocked(sub, true)
		}
	}
}

// Close terminates every subscriber's stream cleanly.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for sub := range t.subs {
		t.dropLocked(sub, false)
	}
}

// SubscriberCount reports the number of attached subscribers.
func (t *Topic[T]) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *Topic[T]) drop(sub *Subscription[T], slow bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(sub, slow)
}

func (t *Topic[T]) dropLocked(sub *Subscription[T], slow bool) {
	if _, ok := t.subs[sub]; !ok {
		// Close the channel exactly once even for never-attached subs.
		sub.cancel.Do(func() { close(sub.ch) })
		return
	}
	delete(t.subs, sub)
	sub.cancel.Do(func() { close(sub.ch) })
	if t.m != nil {
		t.m.SubscribersActive.WithLabelValues("tracking", t.name).Dec()
		if slow {
			t.m.EventsDroppedTotal.WithLabelValues("tracking", t.name).Inc()
		}
	}
}

// Broker groups the process-wide topics, one per event kind.
type Broker struct {
	Engagements *Topic[ops.EngagementEvent]
	Rankings    *Topic[ops.RankingUpdateEvent]
	DroneStatus *Topic[ops.DroneStatusEvent]
	Alerts      *Topic[ops.AlertEvent]
	Telemetry   *Topic[ops.TelemetrySnapshot]
}

// New creates the broker with all topics. Metrics may be nil.
func New(m *metrics.Metrics) *Broker {
	return &Broker{
		Engagements: NewTopic[ops.EngagementEvent]("engagements", m),
		Rankings:    NewTopic[ops.RankingUpdateEvent]("rankings", m),
		DroneStatus: NewTopic[ops.DroneStatusEvent]("drone_status", m),
		Alerts:      NewTopic[ops.AlertEvent]("alerts", m),
		Telemetry:   NewTopic[ops.TelemetrySnapshot]("telemetry", m),
	}
}

// Close terminates every topic.
func (b *Broker) Close() {
	b.Engagements.Close()
	b.Rankings.Close()
	b.DroneStatus.Close()
	b.Alerts.Close()
	b.Telemetry.Close()
}
