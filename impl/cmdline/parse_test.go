package cmdline

import (
	"os"
	"path/filepath"
	"testing"
)

// Test that the parser detects when defaults are overridden on the command line for the serve command
func TestParseServe(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fail()
	}
	defer os.RemoveAll(td)
	afile := filepath.Join(td, "foo")
	os.WriteFile(afile, []byte("foo"), 0755)

	defer ClearParse()
	os.Args = []string{"bin/devserver", "--data-dir", td, "--log-level", "info", "--config-file", afile,
		"serve", "--port", "22", "--metrics-port", "9090", "--urlbase", "http://elsewhere/static",
		"--cache-entries", "6", "--critical-update", "--symbolizer", "/usr/bin/minidump_stackwalk"}
	fromCmdline, cfg, err := Parse()
	if err != nil {
		t.Fail()
	}
	if fromCmdline.Command != "serve" {
		t.Fail()
	}
	switch {
	case !fromCmdline.LogLevel:
		t.Fail()
	case !fromCmdline.ConfigFile:
		t.Fail()
	case !fromCmdline.DataDir:
		t.Fail()
	case !fromCmdline.Port:
		t.Fail()
	case !fromCmdline.MetricsPort:
		t.Fail()
	case !fromCmdline.UrlBase:
		t.Fail()
	case !fromCmdline.CacheEntries:
		t.Fail()
	case !fromCmdline.CriticalUpdate:
		t.Fail()
	case !fromCmdline.Symbolizer:
		t.Fail()
	}
	if cfg.Port != 22 || cfg.CacheEntries != 6 {
		t.Fail()
	}
}

// Test that defaults flow into the parsed config when the user specifies nothing
func TestParseDefaults(t *testing.T) {
	defer ClearParse()
	os.Args = []string{"bin/devserver", "serve"}
	fromCmdline, cfg, err := Parse()
	if err != nil {
		t.Fail()
	}
	if fromCmdline.Command != "serve" {
		t.Fail()
	}
	if fromCmdline.Port || fromCmdline.DataDir {
		t.Fail()
	}
	if cfg.Port != 8080 || cfg.DataDir != "/var/lib/devserver" || cfg.CacheEntries != 12 {
		t.Fail()
	}
}

func TestParseClearCache(t *testing.T) {
	defer ClearParse()
	os.Args = []string{"bin/devserver", "clear-cache"}
	fromCmdline, _, err := Parse()
	if err != nil {
		t.Fail()
	}
	if fromCmdline.Command != "clear-cache" {
		t.Fail()
	}
}

func TestBadLogLevel(t *testing.T) {
	defer ClearParse()
	os.Args = []string{"bin/devserver", "--log-level", "frobozz", "serve"}
	if _, _, err := Parse(); err == nil {
		t.Fail()
	}
}
