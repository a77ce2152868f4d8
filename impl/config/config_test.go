package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var testCfg = `
---
logLevel: error
logFile: /foo/bar/baz.log
dataDir: /var/lib/devserver
port: 8080
metricsPort: 2222
urlBase: http://devserver:8080/static
cacheEntries: 12
criticalUpdate: false
symbolizer: minidump_stackwalk
blobStore:
  endpoint: http://seaweed:8333
  region: us-east-1
  accessKey: abc
  secretKey: def
  forcePathStyle: true
`

var expectConfig = Configuration{
	LogLevel:     "error",
	LogFile:      "/foo/bar/baz.log",
	DataDir:      "/var/lib/devserver",
	Port:         8080,
	MetricsPort:  2222,
	UrlBase:      "http://devserver:8080/static",
	CacheEntries: 12,
	Symbolizer:   "minidump_stackwalk",
	BlobStore: BlobStoreConfig{
		Endpoint:       "http://seaweed:8333",
		Region:         "us-east-1",
		AccessKey:      "abc",
		SecretKey:      "def",
		ForcePathStyle: true,
	},
}

func TestLoadConfig(t *testing.T) {
	td, err := os.MkdirTemp("", "")
	if err != nil {
		t.FailNow()
	}
	defer os.RemoveAll(td)
	cfgFile := filepath.Join(td, "config.yaml")
	if err := os.WriteFile(cfgFile, []byte(testCfg), 0644); err != nil {
		t.FailNow()
	}
	Set(Configuration{})
	if err := Load(cfgFile); err != nil {
		t.FailNow()
	}
	if !reflect.DeepEqual(Get(), expectConfig) {
		t.Errorf("parsed config does not match: %+v", Get())
	}
	if GetStaticDir() != "/var/lib/devserver/static" {
		t.FailNow()
	}
}

func TestLoadMissingConfig(t *testing.T) {
	if err := Load("/no/such/file.yaml"); err == nil {
		t.FailNow()
	}
}

func TestBadYaml(t *testing.T) {
	if err := SetConfigFromStr([]byte("port: [not a port")); err == nil {
		t.FailNow()
	}
}

// Merge semantics: a cmdline-provided value wins, an unspecified value
// does not clobber a value loaded from the config file.
func TestMerge(t *testing.T) {
	Set(Configuration{})
	if err := SetConfigFromStr([]byte(testCfg)); err != nil {
		t.FailNow()
	}
	fromCmdline := FromCmdLine{Port: true}
	cmdlineCfg := Configuration{
		Port:     9999,
		LogLevel: "debug", // default, not user-specified
	}
	Merge(fromCmdline, cmdlineCfg)
	merged := Get()
	if merged.Port != 9999 {
		t.Errorf("cmdline port not merged: %d", merged.Port)
	}
	if merged.LogLevel != "error" {
		t.Errorf("file log level clobbered: %s", merged.LogLevel)
	}
	if merged.DataDir != "/var/lib/devserver" {
		t.FailNow()
	}
}
