package events

import "testing"

func TestBrokerDeliversToAllSubscribers(t *testing.T) {
	b := NewBroker[int]()
	a, cancelA := b.Subscribe(1)
	c, cancelC := b.Subscribe(1)
	defer cancelA()
	defer cancelC()

	if n := b.Publish(5); n != 2 {
		t.Fatalf("delivered to %d subscribers, want 2", n)
	}
	if v := <-a; v != 5 {
		t.Fatalf("a got %d", v)
	}
	if v := <-c; v != 5 {
		t.Fatalf("c got %d", v)
	}
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker[string]()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish("first")
	if n := b.Publish("second"); n != 0 {
		t.Fatalf("expected drop, delivered %d", n)
	}
	if v := <-ch; v != "first" {
		t.Fatalf("got %q", v)
	}
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	b := NewBroker[int]()
	ch, cancel := b.Subscribe(1)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if b.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", b.Len())
	}
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker[int]()
	ch, cancel := b.Subscribe(1)
	b.Close()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after Close")
	}
	late, _ := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatal("expected closed channel for late subscriber")
	}
}
