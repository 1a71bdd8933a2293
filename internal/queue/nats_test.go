package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestNATSQueue(t *testing.T) *NATSQueue {
	t.Helper()
	url := setupTestNATS(t)
	q, err := newNATSQueue(NATSConfig{URL: url, AckWait: 200 * time.Millisecond}, testLogger)
	if err != nil {
		t.Fatalf("Failed to create NATS queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNATSQueue_InvalidURL(t *testing.T) {
	q, err := newNATSQueue(NATSConfig{URL: "nats://127.0.0.1:1"}, testLogger)
	if err == nil {
		_ = q.Close()
		t.Fatal("Expected error with unreachable server")
	}
}

func TestNATSQueue_PublishBeforeSubscribe(t *testing.T) {
	q := newTestNATSQueue(t)
	ctx := context.Background()

	if err := q.Publish(ctx, "tank.readings.updated", []byte("early")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := make(chan string, 1)
	if err := q.Subscribe("tank.readings.updated", func(data []byte) error {
		received <- string(data)
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "early" {
			t.Errorf("Expected early, got %s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message published before subscribe was lost")
	}
}

func TestNATSQueue_NakRedelivers(t *testing.T) {
	q := newTestNATSQueue(t)

	var attempts int32
	if err := q.Subscribe("tank.recommendations", func([]byte) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := q.Publish(context.Background(), "tank.recommendations", []byte("r")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if !waitFor(t, 5*time.Second, func() bool { return atomic.LoadInt32(&attempts) >= 2 }) {
		t.Errorf("Expected redelivery after Nak, got %d attempts", atomic.LoadInt32(&attempts))
	}
}

func TestNATSQueue_PublishBatch(t *testing.T) {
	q := newTestNATSQueue(t)

	var count int32
	_ = q.Subscribe("tank.recommendations", func([]byte) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	msgs := make([]BatchMessage, 10)
	for i := range msgs {
		msgs[i] = BatchMessage{Subject: "tank.recommendations", Data: []byte{byte(i)}}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := q.PublishBatch(ctx, msgs)
	if err != nil {
		t.Fatalf("PublishBatch failed: %v", err)
	}
	if n != 10 {
		t.Errorf("Expected 10 acked, got %d", n)
	}
	if !waitFor(t, 5*time.Second, func() bool { return atomic.LoadInt32(&count) == 10 }) {
		t.Errorf("Expected 10 deliveries, got %d", atomic.LoadInt32(&count))
	}
}

func TestNATSQueue_SubscribeTwiceAndUnsubscribe(t *testing.T) {
	q := newTestNATSQueue(t)
	h := func([]byte) error { return nil }

	if err := q.Subscribe("tank.readings.updated", h); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := q.Subscribe("tank.readings.updated", h); err == nil {
		t.Error("Expected duplicate subscribe to fail")
	}
	if err := q.Unsubscribe("tank.readings.updated"); err != nil {
		t.Errorf("Unsubscribe failed: %v", err)
	}
	if err := q.Unsubscribe("tank.readings.updated"); err == nil {
		t.Error("Expected error unsubscribing unknown subject")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"tank.readings.updated": "tank_readings_updated",
		"tank-1_ok":             "tank-1_ok",
		"a*b>c":                 "a_b_c",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, expected %q", in, got, want)
		}
	}
}
