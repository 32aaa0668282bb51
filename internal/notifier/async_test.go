package notifier

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medledger/internal/platform/metrics"
	id "medledger/pkg/domain"
)

type failingNotifier struct {
	calls atomic.Int64
}

func (f *failingNotifier) Publish(context.Context, ChangeEvent) error {
	f.calls.Add(1)
	return errors.New("broker unreachable")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestAsync_DeliversInOrder(t *testing.T) {
	sink := NewMemory()
	async := NewAsync(sink, 16, testLogger(), metrics.NewForTest())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = async.Run(ctx) }()

	programID := id.NewProgramID()
	for _, typ := range []ChangeType{ChangeMedicationAdded, ChangeMedicationAdministered, ChangeNewAlert} {
		require.NoError(t, async.Publish(ctx, ChangeEvent{Type: typ, ProgramID: programID}))
	}

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 3
	}, time.Second, 10*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, ChangeMedicationAdded, events[0].Type)
	assert.Equal(t, ChangeMedicationAdministered, events[1].Type)
	assert.Equal(t, ChangeNewAlert, events[2].Type)
}

func TestAsync_PublishNeverFails(t *testing.T) {
	failing := &failingNotifier{}
	async := NewAsync(failing, 4, testLogger(), metrics.NewForTest())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = async.Run(ctx) }()

	err := async.Publish(ctx, ChangeEvent{Type: ChangeNewAlert, ProgramID: id.NewProgramID()})
	assert.NoError(t, err, "delivery failures must not surface to the caller")

	require.Eventually(t, func() bool {
		return failing.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAsync_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	// No Run loop draining, so the buffer fills immediately.
	async := NewAsync(NewMemory(), 1, testLogger(), metrics.NewForTest())

	ctx := context.Background()
	require.NoError(t, async.Publish(ctx, ChangeEvent{Type: ChangeNewAlert}))

	done := make(chan struct{})
	go func() {
		_ = async.Publish(ctx, ChangeEvent{Type: ChangeNewAlert})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
}
