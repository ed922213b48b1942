package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	ch chan []AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	entries, ok := payload.([]AggregatedLogEntry)
	if !ok {
		return errors.New("unexpected payload type")
	}
	p.ch <- entries
	return nil
}

func newCollectedLogger(t *testing.T, pub Publisher, threshold int) *Logger {
	t.Helper()
	l, err := New(&Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: threshold,
		Topic:          "logs",
		Publisher:      pub,
	})
	return l
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{ch: make(chan []AggregatedLogEntry, 1)}
	l := newCollectedLogger(t, pub, 2)
	defer l.RemoveCollector()

	l.Error("feed disconnected", String("symbol", "NQ"))
	l.Error("quote fetch failed", String("symbol", "ES"))

	select {
	case entries := <-pub.ch:
		assert.Len(t, entries, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a flush at the count threshold")
	}
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &capturePublisher{ch: make(chan []AggregatedLogEntry, 1)}
	l := newCollectedLogger(t, pub, 100)

	// Same call site, same fields: one entry with an incremented count.
	for i := 0; i < 3; i++ {
		l.Error("feed disconnected", String("symbol", "NQ"))
	}
	l.RemoveCollector()

	select {
	case entries := <-pub.ch:
		require.Len(t, entries, 1)
		assert.Equal(t, 3, entries[0].Count)
		assert.Equal(t, "error", entries[0].Level)
		assert.Equal(t, "feed disconnected", entries[0].Message)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a final flush on close")
	}
}
