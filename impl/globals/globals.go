package globals

// Sub-directories of the static root. The cache dir holds staged build
// artifacts and is subject to eviction at startup. The debug dir holds
// staged breakpad symbols for the symbolicator.
const (
	CacheDir   = "cache"
	DebugDir   = "debug/breakpad"
	StagingDir = ".staging"
)
