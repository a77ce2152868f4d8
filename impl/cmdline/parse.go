package cmdline

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/flatcar-linux/dev-util/impl/config"

	"github.com/urfave/cli/v3"
)

// fromCmdline will be populated with flags indicating which configuration settings were
// specified on the command line.
var fromCmdline config.FromCmdLine

// cfg has the parsed configuration - including defaults (e.g. port) if the user does not override
var cfg = config.Configuration{}

// cmds is for the command line parser urfave/cli
var cmds = &cli.Command{
	Name:  "devserver",
	Usage: "a webserver that stages and hosts images and build packages for developers",
	// define this or the parser terminates the program
	ExitErrHandler: func(_ context.Context, _ *cli.Command, _ error) {},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "error",
			Usage:       "Sets the minimum value for logging: debug, warn, info, or error",
			Destination: &cfg.LogLevel,
			Validator: func(lvl string) error {
				validValues := []string{"debug", "warn", "info", "error"}
				if !slices.Contains(validValues, strings.ToLower(lvl)) {
					return fmt.Errorf("must be one of %s", strings.Join(validValues, ", "))
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogLevel = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "log-file",
			Value:       "",
			Usage:       "log to the specified file rather than the console",
			Destination: &cfg.LogFile,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.LogFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "config-file",
			Usage:       "A file to load configuration values from (cmdline overrides file settings)",
			Destination: &cfg.ConfigFile,
			Validator: func(path string) error {
				if fi, err := os.Stat(path); err != nil {
					return fmt.Errorf("file not found")
				} else if fi.IsDir() {
					return fmt.Errorf("not a file")
				}
				return nil
			},
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.ConfigFile = true
				return nil
			},
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Value:       "/var/lib/devserver",
			Usage:       "The writable directory that the served 'static' directory lives under",
			Destination: &cfg.DataDir,
			Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
				fromCmdline.DataDir = true
				return nil
			},
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "serve",
			Usage: "Runs the server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "serve"
				return nil
			},
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:        "port",
					Value:       8080,
					Usage:       "The port to serve on",
					Destination: &cfg.Port,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.Port = true
						return nil
					},
				},
				&cli.IntFlag{
					Name:        "metrics-port",
					Value:       0,
					Usage:       "Serves prometheus metrics on the specified port (0 disables metrics)",
					Destination: &cfg.MetricsPort,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.MetricsPort = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "urlbase",
					Usage:       "Base URL, other than this server, that update images are served from",
					Destination: &cfg.UrlBase,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.UrlBase = true
						return nil
					},
				},
				&cli.IntFlag{
					Name:        "cache-entries",
					Value:       12,
					Usage:       "The number of staged artifacts retained in the cache across restarts",
					Destination: &cfg.CacheEntries,
					Action: func(ctx context.Context, cmd *cli.Command, _ int64) error {
						fromCmdline.CacheEntries = true
						return nil
					},
				},
				&cli.BoolFlag{
					Name:        "critical-update",
					Value:       false,
					Usage:       "Presents update payloads to clients as critical",
					Destination: &cfg.CriticalUpdate,
					Action: func(ctx context.Context, cmd *cli.Command, _ bool) error {
						fromCmdline.CriticalUpdate = true
						return nil
					},
				},
				&cli.StringFlag{
					Name:        "symbolizer",
					Value:       "minidump_stackwalk",
					Usage:       "The binary used to symbolicate minidumps against staged symbols",
					Destination: &cfg.Symbolizer,
					Action: func(ctx context.Context, cmd *cli.Command, _ string) error {
						fromCmdline.Symbolizer = true
						return nil
					},
				},
			},
		},
		{
			Name:  "clear-cache",
			Usage: "Wipes the staged artifact cache and exits (server should not be running)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "clear-cache"
				return nil
			},
		},
		{
			Name:  "version",
			Usage: "Displays the version",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				fromCmdline.Command = "version"
				return nil
			},
		},
	},
}

// Parse parses the command line. It returns the following:
//
//  1. A FromCmdLine struct which has the command to run ("serve", "clear-cache", etc.). If the
//     command is the empty string then no sub-command was specified in which case the parser
//     auto-displays help. This struct also has flags telling you which configuration values were
//     provided by the user on the command line.
//  2. A Configuration struct containing the parsed configuration values. For any configuration flag
//     in the FromCmdLine struct with a false value, the corresponding configuration value in *this*
//     struct will be the default.
//  3. An error, if the parser returned one, else nil.
func Parse() (config.FromCmdLine, config.Configuration, error) {
	if err := cmds.Run(context.Background(), os.Args); err != nil {
		return config.FromCmdLine{}, config.Configuration{}, err
	}
	return fromCmdline, cfg, nil
}

// ClearParse supports unit testing
func ClearParse() {
	fromCmdline = config.FromCmdLine{}
	cfg = config.Configuration{}
}
