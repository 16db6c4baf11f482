package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okatsu/habitask/internal/bus"
	"github.com/okatsu/habitask/internal/domain"
	"github.com/okatsu/habitask/internal/infra/sched"
	"github.com/okatsu/habitask/internal/testutil"
)

// refreshCounter counts Refresh emissions thread-safely; fsnotify delivers
// from its own goroutine.
type refreshCounter struct {
	mu sync.Mutex
	n  int
}

func (c *refreshCounter) bump() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *refreshCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestWatcher_EmitsRefreshOnStoreWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	b := bus.New()
	counter := &refreshCounter{}
	b.On(domain.TopicRefresh, func(domain.Event) { counter.bump() })

	w := New(path, b, sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(path, []byte(`{"items":[]}`), 0o600))

	require.Eventually(t, func() bool {
		return counter.count() >= 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	b := bus.New()
	counter := &refreshCounter{}
	b.On(domain.TopicRefresh, func(domain.Event) { counter.bump() })

	w := New(path, b, sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0, counter.count())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	b := bus.New()
	counter := &refreshCounter{}
	b.On(domain.TopicRefresh, func(domain.Event) { counter.bump() })

	w := New(path, b, sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())
	defer func() { _ = w.Close() }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"items":[]}`), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return counter.count() >= 1
	}, 3*time.Second, 20*time.Millisecond)
	// The burst collapsed into one refresh.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, counter.count())
}

func TestWatcher_SurvivesAtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	b := bus.New()
	counter := &refreshCounter{}
	b.On(domain.TopicRefresh, func(domain.Event) { counter.bump() })

	w := New(path, b, sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())
	defer func() { _ = w.Close() }()

	// Temp-then-rename is how the store writes.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"items":[]}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return counter.count() >= 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_CloseDuringEventBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	w := New(path, bus.New(), sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())

	// Keep events flowing while Close runs; shutdown must not wedge against
	// the loop's debounce path.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = os.WriteFile(path, []byte(`{"items":[]}`), 0o600)
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return while store writes were arriving")
	}

	close(stop)
	wg.Wait()
}

func TestWatcher_StartTwiceIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	w := New(path, bus.New(), sched.Real{}, testutil.NopLogger{})
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	require.NoError(t, w.Close())
}
