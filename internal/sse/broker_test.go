package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	t.Run("with event type", func(t *testing.T) {
		raw, err := Format("annotation.ready", map[string]string{"runId": "r1"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(raw) != "event: annotation.ready\ndata: {\"runId\":\"r1\"}\n\n" {
			t.Errorf("unexpected frame %q", raw)
		}
	})

	t.Run("data only", func(t *testing.T) {
		raw, err := Format("", map[string]string{"content": "hi"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(raw) != "data: {\"content\":\"hi\"}\n\n" {
			t.Errorf("unexpected frame %q", raw)
		}
	})

	t.Run("unencodable", func(t *testing.T) {
		if _, err := Format("x", make(chan int)); err == nil {
			t.Error("expected marshal error")
		}
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	var last atomic.Int32
	b := NewBroker(WithClientGauge(func(n int) { last.Store(int32(n)) }))
	defer b.Close()

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	if last.Load() != 1 {
		t.Errorf("expected gauge 1, got %d", last.Load())
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
	if last.Load() != 0 {
		t.Errorf("expected gauge 0, got %d", last.Load())
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "annotation.ready", Data: map[string]string{"runId": "r1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: annotation.ready") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"runId":"r1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishTopics(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	alice := b.Subscribe("alice")
	bob := b.Subscribe("bob")
	all := b.Subscribe("")
	defer b.Unsubscribe(alice)
	defer b.Unsubscribe(bob)
	defer b.Unsubscribe(all)

	b.Publish(Event{Type: "annotation.ready", Topic: "alice", Data: map[string]string{}})
	b.Publish(Event{Type: "broadcast", Data: map[string]string{}})
	waitFor(t, func() bool { return len(alice) == 2 && len(all) == 2 })

	if len(alice) != 2 {
		t.Errorf("expected alice to get 2 events, got %d", len(alice))
	}
	if len(bob) != 1 {
		t.Errorf("expected bob to get only the broadcast, got %d", len(bob))
	}
	if len(all) != 2 {
		t.Errorf("expected unfiltered client to get 2 events, got %d", len(all))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.Handler(func(*http.Request) string { return "alice" }).ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "annotation.ready", Topic: "alice", Data: map[string]string{"runId": "r1"}})
	b.Publish(Event{Type: "annotation.ready", Topic: "bob", Data: map[string]string{"runId": "r2"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event stream content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"runId":"r1"`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, `"runId":"r2"`) {
		t.Errorf("handler delivered another user's event: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestHeartbeat(t *testing.T) {
	b := NewBroker(WithHeartbeat(10 * time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx))

	if !strings.Contains(w.Body.String(), ": ping") {
		t.Errorf("expected heartbeat comment, got %q", w.Body.String())
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	for range 70 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: "annotation.ready", Data: map[string]string{}})
	if ch := b.Subscribe(""); ch == nil {
		t.Fatal("expected closed channel, got nil")
	}
}
