/*
Devserver runs a webserver on a development machine that stages build
artifacts out of a remote archive bucket and serves them to devices on
the local network, and answers software update pings from those devices
so they can be pointed at arbitrary staged builds.

Usage:

	devserver [global flags] COMMAND [command flags]

Commands:

	serve
		Runs the server.
	clear-cache
		Wipes the staged artifact cache and exits. The server should
		not be running.
	version
		Displays the version and exits.

Global flags:

	--data-dir string
		The writable directory that the served 'static' directory lives
		under. Defaults to '/var/lib/devserver'.
	--log-level string
		Log level. Defaults to 'error'.
	--log-file string
		Log to the specified file rather than the console.
	--config-file string
		A file to load configuration values from. Individual command
		line flags override values from the file.

Serve flags:

	--port int
		Port for the server. Defaults to 8080.
	--metrics-port int
		Serves Prometheus metrics on the specified port. Defaults to
		zero, meaning metrics are not served.
	--urlbase string
		Base URL, other than this server, that update images are
		served from.
	--cache-entries int
		The number of staged artifacts retained in the cache across
		restarts. Defaults to 12.
	--critical-update
		Presents update payloads to clients as critical.
	--symbolizer string
		The binary used to symbolicate minidumps against staged
		symbols. Defaults to 'minidump_stackwalk'.
*/
package main
