package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDirWatcher_DebouncedRefresh(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	refresh := func(context.Context) (bool, error) {
		calls.Add(1)
		return true, nil
	}

	w, err := NewDirWatcher(dir, refresh, time.Second, zap.NewNop().Sugar())
	require.NoError(t, err)
	w.debounce = 50 * time.Millisecond
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, dir, "customer.csv", "CID\nC001\n")
	writeFile(t, dir, "customer.csv", "CID\nC001\nC002\n")
	writeFile(t, dir, "notes.txt", "ignored")

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes collapses into one refresh")
}

func TestNewDirWatcher_MissingDirectory(t *testing.T) {
	_, err := NewDirWatcher(t.TempDir()+"/missing", nil, 0, zap.NewNop().Sugar())
	assert.Error(t, err)
}
