// Package staging tracks background staging of build artifacts from the
// remote blob store into the artifact cache. One task per key: concurrent
// requests to stage the same key join the tracked task rather than
// duplicating the fetch, and any number of pollers can wait on it. Once a
// poller consumes a finished task the filesystem cache becomes the source
// of truth for that key's status.
package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flatcar-linux/dev-util/impl/cache"
	"github.com/flatcar-linux/dev-util/impl/dverr"
	"github.com/flatcar-linux/dev-util/impl/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Status is the externally visible state of a staging key.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusSuccess  Status = "Success"
	StatusFailed   Status = "Failed"
	StatusNotFound Status = "NotFound"
)

// BlobStore performs the network transfer from the remote blob store,
// materializing the artifact for 'key' under destDir. May take minutes.
type BlobStore interface {
	Fetch(ctx context.Context, key string, destDir string) error
}

// task is the in-memory record of one staging job. It is owned exclusively
// by the Coordinator for its lifetime. The done channel is closed when the
// task reaches a terminal state; status and err must only be read after
// done is closed or under the Coordinator lock.
type task struct {
	key     string
	status  Status
	err     error
	started time.Time
	done    chan struct{}
}

// Coordinator deduplicates concurrent staging requests per key and tracks
// background completion for polling. Task-table mutation and task launch
// are atomic per key, so at most one fetch is ever in flight for a key.
type Coordinator struct {
	mu         sync.Mutex
	tasks      map[string]*task
	store      BlobStore
	artifacts  *cache.ArtifactCache
	scratchDir string
}

// NewCoordinator creates a Coordinator that fetches with the passed store
// into scratchDir, promoting completed downloads into the artifact cache.
// scratchDir must not live under the cache root or the eviction pass would
// see partial downloads as cache entries.
func NewCoordinator(store BlobStore, artifacts *cache.ArtifactCache, scratchDir string) (*Coordinator, error) {
	// leftovers from a prior run are partial downloads, never promoted
	if err := os.RemoveAll(scratchDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, err
	}
	return &Coordinator{
		tasks:      make(map[string]*task),
		store:      store,
		artifacts:  artifacts,
		scratchDir: scratchDir,
	}, nil
}

// StartStaging begins staging the passed key in the background and returns
// immediately with the key's current status. The call is idempotent per
// key: if a task is already tracked - running or finished but not yet
// polled - the existing task is left in place and its status returned with
// joined=true, so a tracked task is never silently replaced.
func (c *Coordinator) StartStaging(key string) (status Status, joined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, exists := c.tasks[key]; exists {
		log.Debugf("staging already tracked for %s (started %s)", key, t.started)
		return t.status, true
	}
	t := &task{
		key:     key,
		status:  StatusPending,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	c.tasks[key] = t
	go c.run(t)
	log.Infof("staging started for %s", key)
	return t.status, false
}

// run performs the fetch and promotes the result into the cache. It runs
// detached from any request: a poller abandoning its wait does not stop
// the task, and there is no cancellation.
func (c *Coordinator) run(t *task) {
	tmpDir := filepath.Join(c.scratchDir, uuid.New().String())
	err := c.store.Fetch(context.Background(), t.key, tmpDir)
	if err == nil {
		err = c.promote(t.key, tmpDir)
	}

	c.mu.Lock()
	if err != nil {
		t.status = StatusFailed
		t.err = fmt.Errorf("%w: staging %s: %s", dverr.ErrUpstreamFailure, t.key, err)
		log.Errorf("staging failed for %s: %s", t.key, err)
		os.RemoveAll(tmpDir)
	} else {
		t.status = StatusSuccess
		log.Infof("staging finished for %s in %s", t.key, time.Since(t.started))
	}
	c.mu.Unlock()
	close(t.done)
}

// promote moves a completed download from the scratch area into the key's
// cache slot, replacing any prior artifact for the key.
func (c *Coordinator) promote(key string, tmpDir string) error {
	replacing := c.artifacts.IsStaged(key)
	slot := c.artifacts.SlotPath(key)
	if err := os.RemoveAll(slot); err != nil {
		return err
	}
	if err := os.Rename(tmpDir, slot); err != nil {
		return err
	}
	if !replacing {
		metrics.DeltaCachedArtifactCount(1)
	}
	return nil
}

// Poll reports the terminal status of the passed key. If a task is tracked
// for the key, Poll blocks - without holding any lock - until the task
// completes or ctx is done, then removes the task record. Removal happens
// exactly once: the first poller to observe the terminal state consumes the
// record, and every later (or concurrently racing) caller is answered from
// the artifact cache - Success if the key is staged, else NotFound.
//
// ctx expiry abandons the wait only; the tracked task runs to completion.
func (c *Coordinator) Poll(ctx context.Context, key string) (Status, error) {
	c.mu.Lock()
	t, exists := c.tasks[key]
	c.mu.Unlock()

	if exists {
		select {
		case <-t.done:
		case <-ctx.Done():
			return StatusPending, ctx.Err()
		}
		c.mu.Lock()
		if cur, tracked := c.tasks[key]; tracked && cur == t {
			delete(c.tasks, key)
			c.mu.Unlock()
			return t.status, t.err
		}
		// another poller consumed the record first - fall through to
		// the cache like any post-consumption caller
		c.mu.Unlock()
	}

	if c.artifacts.IsStaged(key) {
		return StatusSuccess, nil
	}
	return StatusNotFound, fmt.Errorf("%w: no staging for %s", dverr.ErrNotFound, key)
}

// Tracked reports whether a task is currently tracked for the key. Intended
// for observability, not for control flow: the answer can be stale by the
// time the caller acts on it.
func (c *Coordinator) Tracked(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.tasks[key]
	return exists
}
