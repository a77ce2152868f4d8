package config

// Merge takes a struct indicating which configuration options have been provided on the command
// line, as well as a configuration struct parsed from the command line which ALSO includes defaults
// that the user didn't specify. For example the default port is 8080 and if you don't specify
// that on the command line - it gets defaulted into the parsed configuration struct. So:
//
//  1. User provided a value: overwrite current config using the user's value
//  2. User did not provide a value, current config is unspecified: use the default in the parsed config
//  3. User did not provide a value, current config is specified: leave the current config untouched
func Merge(fromCmdline FromCmdLine, cfg Configuration) {
	if fromCmdline.LogLevel || config.LogLevel == "" {
		config.LogLevel = cfg.LogLevel
	}
	if fromCmdline.LogFile || config.LogFile == "" {
		config.LogFile = cfg.LogFile
	}
	if fromCmdline.ConfigFile || config.ConfigFile == "" {
		config.ConfigFile = cfg.ConfigFile
	}
	if fromCmdline.DataDir || config.DataDir == "" {
		config.DataDir = cfg.DataDir
	}
	if fromCmdline.Port || config.Port == 0 {
		config.Port = cfg.Port
	}
	if fromCmdline.MetricsPort || config.MetricsPort == 0 {
		config.MetricsPort = cfg.MetricsPort
	}
	if fromCmdline.UrlBase || config.UrlBase == "" {
		config.UrlBase = cfg.UrlBase
	}
	if fromCmdline.CacheEntries || config.CacheEntries == 0 {
		config.CacheEntries = cfg.CacheEntries
	}
	if fromCmdline.CriticalUpdate || !config.CriticalUpdate {
		config.CriticalUpdate = cfg.CriticalUpdate
	}
	if fromCmdline.Symbolizer || config.Symbolizer == "" {
		config.Symbolizer = cfg.Symbolizer
	}
	if fromCmdline.BlobStore || config.BlobStore == (BlobStoreConfig{}) {
		config.BlobStore = cfg.BlobStore
	}
}
