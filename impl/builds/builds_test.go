package builds

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/flatcar-linux/dev-util/impl/dverr"
)

func mkBuilds(t *testing.T, staticDir string, target string, names []string) {
	for _, name := range names {
		if err := os.MkdirAll(filepath.Join(staticDir, target, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLatestVersion(t *testing.T) {
	td, _ := os.MkdirTemp("", "")
	defer os.RemoveAll(td)
	mkBuilds(t, td, "x86-mario-release", []string{
		"R16-1193.0.0-a1-b1", "R16-1200.0.0-a1-b2", "R19-1993.0.0-a1-b1480", "R2-9999.0.0", "not-a-build",
	})

	latest, err := LatestVersion(td, "x86-mario-release", "")
	if err != nil {
		t.Fatal(err)
	}
	if latest != "R19-1993.0.0-a1-b1480" {
		t.Errorf("latest: %s", latest)
	}

	latest, err = LatestVersion(td, "x86-mario-release", "R16")
	if err != nil {
		t.Fatal(err)
	}
	if latest != "R16-1200.0.0-a1-b2" {
		t.Errorf("latest R16: %s", latest)
	}
}

func TestLatestVersionNoBuilds(t *testing.T) {
	td, _ := os.MkdirTemp("", "")
	defer os.RemoveAll(td)
	latest, err := LatestVersion(td, "no-such-target", "")
	if err != nil || latest != "" {
		t.Errorf("got %s, %v", latest, err)
	}
	if _, err := LatestVersion(td, "", ""); !errors.Is(err, dverr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestControlFiles(t *testing.T) {
	td, _ := os.MkdirTemp("", "")
	defer os.RemoveAll(td)
	build := "x86-alex-release/R18-1514.0.0"
	testDir := filepath.Join(td, build, "autotest", "client", "site_tests", "sleeptest")
	if err := os.MkdirAll(testDir, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(testDir, "control"), []byte("NAME = 'sleeptest'"), 0644)
	os.WriteFile(filepath.Join(testDir, "control.hardware"), []byte("NAME = 'sleeptest.hw'"), 0644)
	os.WriteFile(filepath.Join(testDir, "sleeptest.py"), []byte("pass"), 0644)

	list, err := ControlFileList(td, build)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"autotest/client/site_tests/sleeptest/control",
		"autotest/client/site_tests/sleeptest/control.hardware",
	}
	slices.Sort(list)
	if !slices.Equal(list, want) {
		t.Errorf("control list: %v", list)
	}

	contents, err := ControlFile(td, build, want[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(contents) != "NAME = 'sleeptest'" {
		t.Errorf("contents: %s", contents)
	}
}

func TestControlFileTraversal(t *testing.T) {
	td, _ := os.MkdirTemp("", "")
	defer os.RemoveAll(td)
	os.MkdirAll(filepath.Join(td, "build"), 0755)
	if _, err := ControlFile(td, "build", "../../etc/passwd"); !errors.Is(err, dverr.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestControlFileListMissingBuild(t *testing.T) {
	td, _ := os.MkdirTemp("", "")
	defer os.RemoveAll(td)
	if _, err := ControlFileList(td, "nope"); !errors.Is(err, dverr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
