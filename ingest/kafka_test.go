package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/am"
	"github.com/teranos/smrt/errors"
)

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestKafkaTrigger_RefreshesPerMessage(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "smrt.refresh", Offset: 1},
		{Topic: "smrt.refresh", Offset: 2},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	refresh := func(context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			cancel()
			return false, errors.New("source down")
		}
		return true, nil
	}

	trigger := newKafkaTriggerWith(reader, refresh, 0, zap.NewNop().Sugar())
	require.NoError(t, trigger.Run(ctx))

	assert.Equal(t, 2, calls)
	assert.Len(t, reader.committed, 1, "commit after cancellation is skipped")

	require.NoError(t, trigger.Close())
	assert.True(t, reader.closed)
}

func TestNewKafkaTrigger_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaTrigger(am.KafkaConfig{Topic: "smrt.refresh"}, nil, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}
