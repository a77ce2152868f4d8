package helpers

import (
	"fmt"
	"strings"
)

// KeySlot flattens an archive URL into a single path component naming that
// key's slot in the cache root, e.g. 'gs://my-archive/amd64-usr/1234.0.0'
// becomes 'my-archive_amd64-usr_1234.0.0'. One slot per key lets the
// eviction pass order and remove whole artifacts by slot mtime.
func KeySlot(key string) string {
	return strings.ReplaceAll(TrimScheme(key), "/", "_")
}

// TrimScheme removes a leading 'gs://' or 's3://' style scheme from the
// passed archive URL, if present.
func TrimScheme(key string) string {
	if idx := strings.Index(key, "://"); idx != -1 {
		return key[idx+3:]
	}
	return key
}

// ParseArchiveURL splits an archive URL like 'gs://bucket/board/build' into
// its bucket and object prefix. An empty bucket or prefix is an error since
// a key must identify both a bucket and a build within it.
func ParseArchiveURL(key string) (bucket string, prefix string, err error) {
	trimmed := TrimScheme(key)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed archive url: %s", key)
	}
	return parts[0], strings.Trim(parts[1], "/"), nil
}
