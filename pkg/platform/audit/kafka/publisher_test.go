package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "phasegate/pkg/domain"
	audit "phasegate/pkg/platform/audit"
	"phasegate/pkg/platform/audit/kafka"
)

func TestNewRequiresBrokersAndTopic(t *testing.T) {
	_, err := kafka.New(nil, "audit")
	assert.Error(t, err)

	_, err = kafka.New([]string{"127.0.0.1:1"}, "")
	assert.Error(t, err)
}

func TestEmitDoesNotWaitForUnreachableBroker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub, err := kafka.New([]string{"127.0.0.1:1"}, "audit",
		kafka.WithLogger(logger),
		kafka.WithDeliveryTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)
	defer pub.Close()

	emitter := audit.NewEmitter(pub, logger)

	done := make(chan struct{})
	start := time.Now()
	go func() {
		defer close(done)
		emitter.Emit(context.Background(), audit.Event{
			Action:    audit.EventOutreachSent,
			ProfileID: id.ProfileID(uuid.New()),
		})
	}()

	select {
	case <-done:
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked on an unreachable broker")
	}
}

func TestFlushFailsBufferedRecordsAfterDeliveryTimeout(t *testing.T) {
	pub, err := kafka.New([]string{"127.0.0.1:1"}, "audit",
		kafka.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		kafka.WithDeliveryTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: audit.EventOutreachSent}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// the buffered record is failed by the delivery timeout, so flush returns
	// well before the context deadline
	require.NoError(t, pub.Flush(ctx))
}
