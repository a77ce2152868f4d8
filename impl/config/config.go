package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BlobStoreConfig configures the client for the remote blob store that
// build artifacts are staged from.
type BlobStoreConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"accessKey"`
	SecretKey      string `yaml:"secretKey"`
	DisableTLS     bool   `yaml:"disableTLS"`
	ForcePathStyle bool   `yaml:"forcePathStyle"`
}

// Configuration represents the totality of configuration knobs and dials for the server.
type Configuration struct {
	LogLevel       string          `yaml:"logLevel"`
	LogFile        string          `yaml:"logFile"`
	ConfigFile     string          `yaml:"configFile"`
	DataDir        string          `yaml:"dataDir"`
	Port           int64           `yaml:"port"`
	MetricsPort    int64           `yaml:"metricsPort"`
	UrlBase        string          `yaml:"urlBase"`
	CacheEntries   int64           `yaml:"cacheEntries"`
	CriticalUpdate bool            `yaml:"criticalUpdate"`
	Symbolizer     string          `yaml:"symbolizer"`
	BlobStore      BlobStoreConfig `yaml:"blobStore"`
}

// FromCmdLine has a flag for every command-line option. The parsing code
// sets the flag to true if the option was explicitly provided on the command
// line by the user.
type FromCmdLine struct {
	Command        string
	LogLevel       bool
	LogFile        bool
	ConfigFile     bool
	DataDir        bool
	Port           bool
	MetricsPort    bool
	UrlBase        bool
	CacheEntries   bool
	CriticalUpdate bool
	Symbolizer     bool
	BlobStore      bool
}

var config Configuration

// getters and setters for when I re-implement hot reload

func GetLogLevel() string {
	return config.LogLevel
}

func GetLogFile() string {
	return config.LogFile
}

func GetConfigFile() string {
	return config.ConfigFile
}

func GetDataDir() string {
	return config.DataDir
}

func SetDataDir(newVal string) {
	config.DataDir = newVal
}

// GetStaticDir returns the directory that build artifacts and update
// payloads are served from, always 'static' under the data dir.
func GetStaticDir() string {
	return filepath.Join(config.DataDir, "static")
}

func GetPort() int64 {
	return config.Port
}

func GetMetricsPort() int64 {
	return config.MetricsPort
}

func GetUrlBase() string {
	return config.UrlBase
}

func GetCacheEntries() int64 {
	return config.CacheEntries
}

func GetCriticalUpdate() bool {
	return config.CriticalUpdate
}

func GetSymbolizer() string {
	return config.Symbolizer
}

func GetBlobStore() BlobStoreConfig {
	return config.BlobStore
}

// Load loads the passed configuration file into the configuration struct
func Load(configFile string) error {
	if _, err := os.Stat(configFile); err != nil {
		return fmt.Errorf("unable to stat configuration file: %s", configFile)
	}
	if contents, err := os.ReadFile(configFile); err != nil {
		return fmt.Errorf("error reading configuration file: %s", configFile)
	} else if err := SetConfigFromStr(contents); err != nil {
		return fmt.Errorf("error parsing configuration file: %s, the error was: %s", configFile, err)
	}
	return nil
}

// Get gets the current configuration
func Get() Configuration {
	return config
}

// Set replaces the configuration with the passed configuration
func Set(cfg Configuration) {
	config = cfg
}

// SetConfigFromStr parses the yaml input and sets the configuration from it
func SetConfigFromStr(configBytes []byte) error {
	var cfg Configuration
	if err := yaml.Unmarshal(configBytes, &cfg); err != nil {
		return err
	} else {
		config = cfg
	}
	return nil
}
