package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/flatcar-linux/dev-util/impl/helpers"
	"github.com/flatcar-linux/dev-util/impl/metrics"

	log "github.com/sirupsen/logrus"
)

// DefaultEntries is the number of staged artifacts retained across restarts
// unless overridden by configuration.
const DefaultEntries = 12

// Entry describes one staged artifact slot in the cache root.
type Entry struct {
	Slot    string
	Path    string
	ModTime time.Time
}

// ArtifactCache is a bounded on-disk store of staged build artifacts rooted
// at a single directory.
type ArtifactCache struct {
	root string
}

// New creates an ArtifactCache over the passed root directory, creating the
// directory if it does not exist.
func New(root string) (*ArtifactCache, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("unable to create cache root %s: %w", root, err)
	}
	return &ArtifactCache{root: root}, nil
}

// Root returns the cache root directory.
func (c *ArtifactCache) Root() string {
	return c.root
}

// SlotPath returns the path of the slot for the passed staging key, whether
// or not anything is staged there.
func (c *ArtifactCache) SlotPath(key string) string {
	return filepath.Join(c.root, helpers.KeySlot(key))
}

// IsStaged returns true if an artifact for the passed key is materialized
// under the cache root. This is independent of any in-memory tracking so a
// key staged before a restart, or whose task record was already consumed by
// a poller, still reports as staged.
func (c *ArtifactCache) IsStaged(key string) bool {
	_, err := os.Stat(c.SlotPath(key))
	return err == nil
}

// Entries lists the slots under the cache root ordered by modification time,
// oldest first.
func (c *ArtifactCache) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, dirent := range dirents {
		info, err := dirent.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Slot:    dirent.Name(),
			Path:    filepath.Join(c.root, dirent.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})
	return entries, nil
}

// EvictExcess removes all but the 'limit' most recently modified slots from
// the cache root. It runs once at startup - never per request - so readers
// of staged artifacts never race a delete. Any error is returned to the
// caller, which treats it as fatal rather than serve an over-full or
// inconsistent cache.
func (c *ArtifactCache) EvictExcess(limit int) error {
	if limit < 0 {
		return fmt.Errorf("negative cache limit %d", limit)
	}
	entries, err := c.Entries()
	if err != nil {
		return fmt.Errorf("unable to list cache root %s: %w", c.root, err)
	}
	if len(entries) <= limit {
		return nil
	}
	for _, entry := range entries[:len(entries)-limit] {
		log.Infof("evicting cached artifact %s (modified %s)", entry.Slot, entry.ModTime)
		if err := os.RemoveAll(entry.Path); err != nil {
			return fmt.Errorf("unable to evict %s: %w", entry.Path, err)
		}
		metrics.DeltaCachedArtifactCount(-1)
	}
	return nil
}

// ClearAll removes every slot from the cache root, leaving the root in
// place. Administrative operation, mutually exclusive with EvictExcess in
// the same run.
func (c *ArtifactCache) ClearAll() error {
	entries, err := c.Entries()
	if err != nil {
		return fmt.Errorf("unable to list cache root %s: %w", c.root, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(entry.Path); err != nil {
			return fmt.Errorf("unable to remove %s: %w", entry.Path, err)
		}
	}
	return nil
}
