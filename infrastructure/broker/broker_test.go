package broker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

func TestPublishOrderPerSubscriber(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe()

	for i := 0; i < 100; i++ {
		topic.Publish(i)
	}

	for i := 0; i < 100; i++ {
		select {
		case got := <-sub.C():
			if got != i {
				t.Fatalf("event %d out of order: got %d", i, got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestFanOutToAllSubscribers(t *testing.T) {
	topic := NewTopic[string]("test", nil)
	sub1 := topic.Subscribe()
	sub2 := topic.Subscribe()

	topic.Publish("splash")

	assert.Equal(t, "splash", <-sub1.C())
	assert.Equal(t, "splash", <-sub2.C())
}

func TestSlowConsumerDropped(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	slow := topic.Subscribe()
	fast := topic.Subscribe()

	// Fill the slow subscriber's buffer without draining, then overflow it.
	for i := 0; i <= SubscriberBuffer; i++ {
		topic.Publish(i)
		// Keep the fast subscriber drained so only slow overflows.
		<-fast.C()
	}

	assert.Equal(t, 1, topic.SubscriberCount(), "slow subscriber should have been dropped")

	// The slow subscriber's stream terminates: buffered events drain,
	// then the channel closes.
	drained := 0
	for range slow.C() {
		drained++
	}
	assert.Equal(t, SubscriberBuffer, drained)
}

func TestPublishNeverBlocks(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	_ = topic.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < SubscriberBuffer*2; i++ {
			topic.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscriberCloseReleasesBuffer(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe()
	topic.Publish(1)

	sub.Close()
	assert.Equal(t, 0, topic.SubscriberCount())

	// Channel is closed after drain; ranging terminates.
	for range sub.C() {
	}
}

func TestTopicCloseTerminatesStreams(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe()

	topic.Close()

	_, open := <-sub.C()
	assert.False(t, open)

	// Publish after close is a no-op, subscribe returns terminated stream.
	topic.Publish(9)
	dead := topic.Subscribe()
	_, open = <-dead.C()
	assert.False(t, open)
}

func TestDoubleCloseSafe(t *testing.T) {
	topic := NewTopic[int]("test", nil)
	sub := topic.Subscribe()
	sub.Close()
	sub.Close()
	topic.Close()
	topic.Close()
}

func TestBrokerTopics(t *testing.T) {
	b := New(nil)
	require.NotNil(t, b.Engagements)

	sub := b.Engagements.Subscribe()
	convoyID := uuid.New()
	b.Engagements.Publish(ops.EngagementEvent{ConvoyID: convoyID, Hit: true})

	ev := <-sub.C()
	assert.Equal(t, convoyID, ev.ConvoyID)
	assert.True(t, ev.Hit)

	b.Close()
	_, open := <-sub.C()
	assert.False(t, open)
}
