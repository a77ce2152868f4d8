package main

import (
	"fmt"
	"os"

	"github.com/flatcar-linux/dev-util/impl/config"
	"github.com/flatcar-linux/dev-util/impl/globals"
)

// populated by the linker at build time
var (
	buildVer string
	buildDtm string
)

func main() {
	command, err := getCfg()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing the command line: %s\n", err)
		os.Exit(1)
	}
	if err := globals.ConfigureLogging(config.GetLogLevel(), config.GetLogFile()); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %s\n", err)
		os.Exit(1)
	}
	switch command {
	case "serve":
		err = serve(buildVer, buildDtm)
	case "clear-cache":
		err = clearCache()
	case "version":
		fmt.Printf("devserver version: %s build date: %s\n", buildVer, buildDtm)
	default:
		// no sub-command - the parser already displayed help
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
