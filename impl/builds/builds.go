// Package builds answers simple queries over the served build tree: the
// latest build version for a target and autotest control-file lookup within
// a build. These are plain directory queries with no in-memory state.
package builds

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/flatcar-linux/dev-util/impl/dverr"
)

// build dir names look like R19-1993.0.0-a1-b1480
var buildRe = regexp.MustCompile(`^R(\d+)-(\d+)\.(\d+)\.(\d+)`)

// LatestVersion returns the name of the newest build directory for the
// passed target (e.g. 'x86-mario-release'), optionally restricted to one
// milestone (e.g. 'R16'). It returns the empty string when the target has
// no builds.
func LatestVersion(staticDir string, target string, milestone string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%w: target is required", dverr.ErrInvalidArgument)
	}
	dirents, err := os.ReadDir(filepath.Join(staticDir, target))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	latest := ""
	var latestKey []int
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		name := dirent.Name()
		if milestone != "" && !strings.HasPrefix(name, milestone+"-") {
			continue
		}
		key := versionKey(name)
		if key == nil {
			continue
		}
		if latest == "" || versionLess(latestKey, key) {
			latest = name
			latestKey = key
		}
	}
	return latest, nil
}

// versionKey parses a build dir name into comparable numeric components,
// nil if the name is not a build version.
func versionKey(name string) []int {
	m := buildRe.FindStringSubmatch(name)
	if m == nil {
		return nil
	}
	key := make([]int, 4)
	for i := 1; i < 5; i++ {
		n, _ := strconv.Atoi(m[i])
		key[i-1] = n
	}
	return key
}

func versionLess(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ControlFileList returns the paths, relative to the build directory, of
// every autotest control file in the passed build.
func ControlFileList(staticDir string, build string) ([]string, error) {
	if build == "" {
		return nil, fmt.Errorf("%w: build is required", dverr.ErrInvalidArgument)
	}
	buildDir := filepath.Join(staticDir, build)
	if _, err := os.Stat(buildDir); err != nil {
		return nil, fmt.Errorf("%w: build %s", dverr.ErrNotFound, build)
	}
	controls := []string{}
	err := filepath.WalkDir(buildDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if base == "control" || strings.HasPrefix(base, "control.") {
			rel, err := filepath.Rel(buildDir, path)
			if err != nil {
				return err
			}
			controls = append(controls, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return controls, nil
}

// ControlFile returns the contents of one control file within a build. The
// path is relative to the build directory; escaping the build directory is
// rejected.
func ControlFile(staticDir string, build string, controlPath string) ([]byte, error) {
	if build == "" || controlPath == "" {
		return nil, fmt.Errorf("%w: build and control_path are required", dverr.ErrInvalidArgument)
	}
	buildDir := filepath.Join(staticDir, build)
	full := filepath.Join(buildDir, controlPath)
	// Join cleans the path, so a prefix check catches .. traversal
	if !strings.HasPrefix(full, buildDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: control path escapes build dir", dverr.ErrInvalidArgument)
	}
	contents, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s in build %s", dverr.ErrNotFound, controlPath, build)
		}
		return nil, err
	}
	return contents, nil
}
