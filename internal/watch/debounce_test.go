package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
)

func newDebounceWatcher(t *testing.T, handler Handler) *watcher {
	t.Helper()
	w := &watcher{
		opts:    Options{Debounce: 20 * time.Millisecond, Settle: 5 * time.Millisecond},
		handler: handler,
		log:     logging.Global(),
		metrics: metrics.NewRegistry(),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}
	t.Cleanup(func() { close(w.done) })
	return w
}

func TestArmLocked_FiredTimerNotRearmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	var modifies atomic.Int32
	w := newDebounceWatcher(t, func(ev Event) {
		if ev.Type == EventModify {
			modifies.Add(1)
		}
	})

	w.scheduleModify(path)

	// Hold the lock across the deadline so the timer fires and its callback
	// waits to claim the path, then deliver another write of the same burst.
	w.mu.Lock()
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))
	w.armLocked(path)
	w.mu.Unlock()

	require.Eventually(t, func() bool { return modifies.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), modifies.Load())

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.pending)
}

func TestArmLocked_PendingTimerExtended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	var modifies atomic.Int32
	w := newDebounceWatcher(t, func(ev Event) {
		if ev.Type == EventModify {
			modifies.Add(1)
		}
	})

	for i := 0; i < 5; i++ {
		w.scheduleModify(path)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return modifies.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), modifies.Load())
}
