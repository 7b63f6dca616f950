package eventbus

import (
	"testing"
	"time"
)

func TestPublishFanOut(t *testing.T) {
	bus := New()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish("step-0")

	for _, ch := range []<-chan Event{a, b} {
		select {
		case e := <-ch:
			if e != "step-0" {
				t.Fatalf("received %v, want step-0", e)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()

	// Exceed the subscriber buffer; the publisher must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	n := 0
	for len(sub) > 0 {
		<-sub
		n++
	}
	if n == 0 || n > 16 {
		t.Fatalf("buffered %d events, want between 1 and the buffer size", n)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	bus.Publish("ignored")
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()
	if _, ok := <-sub; ok {
		t.Fatal("channel still open after close")
	}
	bus.Publish("ignored")
	if ch := bus.Subscribe(); ch == nil {
		t.Fatal("subscribe after close returned nil channel")
	} else if _, ok := <-ch; ok {
		t.Fatal("subscription after close delivered an event")
	}
}

func TestUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
