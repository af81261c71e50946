package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/log"
)

type fakeConn struct{ closed int }

func (f *fakeConn) Close() error { f.closed++; return nil }

// fakeChannel records published routing keys.
type fakeChannel struct {
	closed    int
	published []string
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.published = append(f.published, key)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	return nil, errors.New("not supported")
}

func (f *fakeChannel) IsClosed() bool { return f.closed > 0 }
func (f *fakeChannel) Close() error   { f.closed++; return nil }

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("some other error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "record_events", logger: log.Nop()}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should start closed")
		}
	})

	t.Run("success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and clear failures")
		}
	})

	t.Run("max failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should allow a trial publish after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed trial publish should reopen the circuit")
		}
	})
}

func TestClient_Publish(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "record_events", logger: log.Nop()}
	ev := NewRecordEvent(KindExpense, OpCreated, "1")

	t.Run("fails fast when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.Publish(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
		if !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("error should mention the circuit breaker: %v", err)
		}
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.Publish(ctx, ev); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("no channel counts as failure", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateClosed)
		atomic.StoreInt64(&client.failureCount, 0)

		if err := client.Publish(context.Background(), ev); err == nil {
			t.Fatal("expected error without a channel")
		}
		if atomic.LoadInt64(&client.failureCount) != 1 {
			t.Errorf("failureCount = %d, want 1", atomic.LoadInt64(&client.failureCount))
		}
	})
}

func TestClient_AttachClosesPreviousConnection(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "record_events", logger: log.Nop()}
	conn1, ch1 := &fakeConn{}, &fakeChannel{}
	conn2, ch2 := &fakeConn{}, &fakeChannel{}

	client.attach(conn1, ch1)
	client.attach(conn2, ch2)
	if conn1.closed != 1 || ch1.closed != 1 {
		t.Fatalf("replaced pair not closed: conn=%d channel=%d", conn1.closed, ch1.closed)
	}
	if conn2.closed != 0 || ch2.closed != 0 {
		t.Fatal("current pair should stay open")
	}

	ev := NewRecordEvent(KindIncome, OpDeleted, "4")
	if err := client.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(ch2.published) != 1 || ch2.published[0] != ev.RoutingKey() || len(ch1.published) != 0 {
		t.Fatalf("published on wrong channel: old=%v new=%v", ch1.published, ch2.published)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if conn2.closed != 1 || ch2.closed != 1 {
		t.Fatalf("Close left the pair open: conn=%d channel=%d", conn2.closed, ch2.closed)
	}
}

func TestRecordEvent_JSON(t *testing.T) {
	ev := NewRecordEvent(KindBudget, OpUpdated, "food")
	ev.Amount = "120.00"
	ev.Currency = "usd"

	if ev.ID == "" || time.Since(ev.Timestamp) > time.Second {
		t.Fatalf("event not stamped: %+v", ev)
	}
	if ev.RoutingKey() != "record.budget.updated" {
		t.Errorf("RoutingKey() = %q", ev.RoutingKey())
	}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := RecordEventFromJSON(data)
	if err != nil {
		t.Fatalf("RecordEventFromJSON: %v", err)
	}
	if got.ID != ev.ID || got.Key != "food" || got.Amount != "120.00" || !got.Timestamp.Equal(ev.Timestamp) {
		t.Errorf("decoded %+v, want %+v", got, ev)
	}
}

func TestRecordEventFromJSON_Invalid(t *testing.T) {
	for _, in := range []string{`{"kind":`, `{"id":"x","kind":"expense"}`} {
		if _, err := RecordEventFromJSON([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestClient_PublishWithoutLogger(t *testing.T) {
	client := &Client{exchangeName: "fintrack", queueName: "record_events"}
	ch := &fakeChannel{}
	client.attach(&fakeConn{}, ch)

	ev := NewRecordEvent(KindExpense, OpCreated, "1")
	if err := client.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("published = %v", ch.published)
	}
}
