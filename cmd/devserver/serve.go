package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flatcar-linux/dev-util/impl"
	"github.com/flatcar-linux/dev-util/impl/blobstore"
	"github.com/flatcar-linux/dev-util/impl/cache"
	"github.com/flatcar-linux/dev-util/impl/config"
	"github.com/flatcar-linux/dev-util/impl/globals"
	"github.com/flatcar-linux/dev-util/impl/hostping"
	"github.com/flatcar-linux/dev-util/impl/metrics"
	"github.com/flatcar-linux/dev-util/impl/omaha"
	"github.com/flatcar-linux/dev-util/impl/staging"
	"github.com/flatcar-linux/dev-util/impl/symbolize"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const startupBanner = `----------------------------------------------------------------------
Dev Server: stages and serves build artifacts and update payloads
Version: %s, build date: %s
Started: %s (port %d)
Running as (uid:gid) %d:%d
Process id: %d
Serving: %s
Command line: %v
----------------------------------------------------------------------
`

// serve runs the dev server, blocking until stopped with CTRL-C or via
// the command REST API.
func serve(buildVer string, buildDtm string) error {
	metrics.InitMetrics(int(config.GetMetricsPort()))

	staticDir := config.GetStaticDir()
	if err := os.MkdirAll(staticDir, 0755); err != nil {
		return fmt.Errorf("error creating the static dir: %s", err)
	}
	artifacts, err := cache.New(filepath.Join(staticDir, globals.CacheDir))
	if err != nil {
		return fmt.Errorf("error initializing the artifact cache: %s", err)
	}
	if entries, err := artifacts.Entries(); err == nil {
		metrics.DeltaCachedArtifactCount(float64(len(entries)))
	}
	if err := artifacts.EvictExcess(int(config.GetCacheEntries())); err != nil {
		return fmt.Errorf("error evicting excess cache entries: %s", err)
	}

	store, err := blobstore.New(config.GetBlobStore())
	if err != nil {
		return fmt.Errorf("error initializing the blob store client: %s", err)
	}
	coordinator, err := staging.NewCoordinator(store, artifacts,
		filepath.Join(config.GetDataDir(), globals.StagingDir))
	if err != nil {
		return fmt.Errorf("error initializing the staging coordinator: %s", err)
	}

	server := impl.NewDevServer(staticDir, coordinator, artifacts, hostping.NewRegistry(),
		omaha.Codec{UrlBase: urlBase(), Critical: config.GetCriticalUpdate()},
		symbolize.New(config.GetSymbolizer()), store)

	// Echo router
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	server.RegisterHandlers(e)

	// have Echo use the global logging
	e.Use(globals.GetEchoLoggingFunc())

	// set up the command API
	shutdownCh := make(chan bool)
	cmdApi(e, shutdownCh)

	fmt.Fprintf(os.Stderr, startupBanner, buildVer, buildDtm, time.Unix(0, time.Now().UnixNano()),
		config.GetPort(), os.Getuid(), os.Getgid(), os.Getpid(), staticDir, strings.Join(os.Args, " "))

	// start the API server
	go func() {
		addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(int(config.GetPort())))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server. error:", err)
		}
	}()
	log.Info("server is running")
	<-shutdownCh
	log.Infof("received stop command - stopping")
	e.Server.Shutdown(context.Background())
	log.Infof("stopped")
	return nil
}

// urlBase determines the base URL that update payload locations in update
// responses are formed from. If the operator didn't provide one, payloads
// are served from this server's own static dir.
func urlBase() string {
	if base := config.GetUrlBase(); base != "" {
		return base
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/static", hostname, config.GetPort())
}

// cmdApi implements the command API. Presently it consists of:
//
//	GET /cmd/stop to shutdown the server
//	GET /health (intended for k8s)
func cmdApi(e *echo.Echo, ch chan bool) {
	e.GET("/cmd/stop",
		func(ctx echo.Context) error {
			ch <- true
			return nil
		})
	e.GET("/health",
		func(ctx echo.Context) error {
			return ctx.NoContent(http.StatusOK)
		})
}
