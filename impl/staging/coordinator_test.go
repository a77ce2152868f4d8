package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flatcar-linux/dev-util/impl/cache"
	"github.com/flatcar-linux/dev-util/impl/dverr"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetOutput(io.Discard)
}

// fakeStore is a BlobStore whose fetches block until released, counting
// how many fetches were actually performed.
type fakeStore struct {
	fetches atomic.Int32
	release chan struct{}
	fail    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{release: make(chan struct{})}
}

func (f *fakeStore) Fetch(ctx context.Context, key string, destDir string) error {
	f.fetches.Add(1)
	<-f.release
	if f.fail {
		return errors.New("bucket unreachable")
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "artifact.bin"), []byte(key), 0644)
}

func newTestCoordinator(t *testing.T, store BlobStore) (*Coordinator, *cache.ArtifactCache, string) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	t.Cleanup(func() { os.RemoveAll(td) })
	artifacts, err := cache.New(filepath.Join(td, "cache"))
	if err != nil {
		t.FailNow()
	}
	c, err := NewCoordinator(store, artifacts, filepath.Join(td, ".staging"))
	if err != nil {
		t.FailNow()
	}
	return c, artifacts, td
}

// Two StartStaging calls before completion must share one task and one
// fetch for the key.
func TestStartStagingSingleFlight(t *testing.T) {
	store := newFakeStore()
	c, _, _ := newTestCoordinator(t, store)
	key := "gs://archive/amd64-usr/1000.0.0"

	if got, joined := c.StartStaging(key); got != StatusPending || joined {
		t.Fatalf("first start: %s, joined=%t", got, joined)
	}
	if got, joined := c.StartStaging(key); got != StatusPending || !joined {
		t.Fatalf("second start: %s, joined=%t", got, joined)
	}
	close(store.release)
	if status, err := c.Poll(context.Background(), key); err != nil || status != StatusSuccess {
		t.Fatalf("poll: %s, %s", status, err)
	}
	if cnt := store.fetches.Load(); cnt != 1 {
		t.Fatalf("expected 1 fetch, got %d", cnt)
	}
}

// The full staging lifecycle: an immediate poll observes Pending (by
// abandoning the wait), completion yields Success and a cache entry, and a
// post-consumption poll is answered Success from the cache.
func TestStagingLifecycle(t *testing.T) {
	store := newFakeStore()
	c, artifacts, _ := newTestCoordinator(t, store)
	key := "gs://bucket/build-A"

	c.StartStaging(key)
	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if status, err := c.Poll(shortCtx, key); err == nil || status != StatusPending {
		t.Fatalf("expected abandoned pending poll, got %s, %v", status, err)
	}

	close(store.release)
	if status, err := c.Poll(context.Background(), key); err != nil || status != StatusSuccess {
		t.Fatalf("terminal poll: %s, %v", status, err)
	}
	if !artifacts.IsStaged(key) {
		t.Fatal("artifact not in cache after staging")
	}
	if c.Tracked(key) {
		t.Fatal("task record not consumed")
	}
	// record consumed - the cache answers now
	if status, err := c.Poll(context.Background(), key); err != nil || status != StatusSuccess {
		t.Fatalf("post-consumption poll: %s, %v", status, err)
	}
}

// A failed fetch surfaces as a terminal Failed with the upstream message on
// the consuming poll; later polls report NotFound since nothing was staged.
func TestStagingFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	c, _, _ := newTestCoordinator(t, store)
	key := "gs://archive/amd64-usr/9999.0.0"

	c.StartStaging(key)
	close(store.release)
	status, err := c.Poll(context.Background(), key)
	if status != StatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}
	if !errors.Is(err, dverr.ErrUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	status, err = c.Poll(context.Background(), key)
	if status != StatusNotFound || !errors.Is(err, dverr.ErrNotFound) {
		t.Fatalf("expected not found, got %s, %v", status, err)
	}
}

// Many pollers racing for one key: exactly one consumes the task record,
// the rest fall back to the cache, and nobody blocks forever or sees a
// stale status.
func TestConcurrentPollers(t *testing.T) {
	store := newFakeStore()
	c, _, _ := newTestCoordinator(t, store)
	key := "gs://archive/amd64-usr/2000.0.0"
	c.StartStaging(key)

	pollers := 8
	statuses := make([]Status, pollers)
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			statuses[n], _ = c.Poll(context.Background(), key)
		}(i)
	}
	close(store.release)
	wg.Wait()
	for n, status := range statuses {
		if status != StatusSuccess {
			t.Fatalf("poller %d got %s", n, status)
		}
	}
	if c.Tracked(key) {
		t.Fatal("task record survived consumption")
	}
}

// Polling a key that was never staged reports NotFound; polling a key that
// is on the filesystem but not tracked (e.g. staged before a restart)
// reports Success.
func TestPollUntracked(t *testing.T) {
	store := newFakeStore()
	c, artifacts, _ := newTestCoordinator(t, store)

	if status, err := c.Poll(context.Background(), "gs://archive/never/staged"); status != StatusNotFound || err == nil {
		t.Fatalf("got %s, %v", status, err)
	}

	key := "gs://archive/amd64-usr/3000.0.0"
	if err := os.MkdirAll(artifacts.SlotPath(key), 0755); err != nil {
		t.Fatal(err)
	}
	if status, err := c.Poll(context.Background(), key); status != StatusSuccess || err != nil {
		t.Fatalf("got %s, %v", status, err)
	}
}

// Distinct keys stage independently.
func TestIndependentKeys(t *testing.T) {
	store := newFakeStore()
	c, _, _ := newTestCoordinator(t, store)
	keys := make([]string, 4)
	for i := range keys {
		keys[i] = fmt.Sprintf("gs://archive/amd64-usr/%d.0.0", i)
		c.StartStaging(keys[i])
	}
	close(store.release)
	for _, key := range keys {
		if status, err := c.Poll(context.Background(), key); err != nil || status != StatusSuccess {
			t.Fatalf("%s: %s, %v", key, status, err)
		}
	}
	if cnt := store.fetches.Load(); cnt != 4 {
		t.Fatalf("expected 4 fetches, got %d", cnt)
	}
}
