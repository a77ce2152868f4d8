// implements the dev server's request gateway. Provides the route methods
// for staging, update pings, host introspection, symbolication and build
// queries. This file is lean to simplify handling any changes to the
// routes - each function simply calls a handler in 'handlers.go'.
package impl

import (
	"github.com/flatcar-linux/dev-util/impl/cache"
	"github.com/flatcar-linux/dev-util/impl/hostping"
	"github.com/flatcar-linux/dev-util/impl/omaha"
	"github.com/flatcar-linux/dev-util/impl/staging"
	"github.com/flatcar-linux/dev-util/impl/symbolize"

	"github.com/labstack/echo/v4"
)

// DevServer exposes the staging coordinator, artifact cache, and host ping
// registry to HTTP callers. All collaborators are injected at construction:
// there are no hidden module-level singletons, and the instance lives from
// process start to shutdown.
type DevServer struct {
	staticDir   string
	coordinator *staging.Coordinator
	artifacts   *cache.ArtifactCache
	registry    *hostping.Registry
	codec       omaha.Codec
	symbolizer  *symbolize.Symbolizer
	store       staging.BlobStore
}

// NewDevServer creates and returns a DevServer struct from the passed
// collaborators. staticDir is the directory that staged builds and update
// payloads are served from.
func NewDevServer(staticDir string, coordinator *staging.Coordinator, artifacts *cache.ArtifactCache,
	registry *hostping.Registry, codec omaha.Codec, symbolizer *symbolize.Symbolizer,
	store staging.BlobStore) *DevServer {
	return &DevServer{
		staticDir:   staticDir,
		coordinator: coordinator,
		artifacts:   artifacts,
		registry:    registry,
		codec:       codec,
		symbolizer:  symbolizer,
		store:       store,
	}
}

// RegisterHandlers attaches the dev server routes to the passed echo
// instance, including static file hosting of the build tree.
func (s *DevServer) RegisterHandlers(e *echo.Echo) {
	e.GET("/", s.Index)
	e.GET("/download", s.Download)
	e.POST("/download", s.Download)
	e.GET("/wait_for_status", s.WaitForStatus)
	e.GET("/stage_debug", s.StageDebug)
	e.POST("/stage_debug", s.StageDebug)
	e.POST("/update", s.Update)
	e.POST("/update/*", s.Update)
	e.GET("/api/hostinfo", s.HostInfo)
	e.GET("/api/hostlog", s.HostLog)
	e.POST("/api/setnextupdate", s.SetNextUpdate)
	e.POST("/symbolicate_dump", s.SymbolicateDump)
	e.GET("/latestbuild", s.LatestBuild)
	e.GET("/controlfiles", s.ControlFiles)
	e.Static("/static", s.staticDir)
}

// GET or POST /download?archive_url=
func (s *DevServer) Download(ctx echo.Context) error {
	return s.handleDownload(ctx)
}

// GET /wait_for_status?archive_url=
func (s *DevServer) WaitForStatus(ctx echo.Context) error {
	return s.handleWaitForStatus(ctx)
}

// GET or POST /stage_debug?archive_url=
func (s *DevServer) StageDebug(ctx echo.Context) error {
	return s.handleStageDebug(ctx)
}

// POST /update and /update/<label...>
func (s *DevServer) Update(ctx echo.Context) error {
	return s.handleUpdate(ctx)
}

// GET /api/hostinfo?ip=
func (s *DevServer) HostInfo(ctx echo.Context) error {
	return s.handleHostInfo(ctx)
}

// GET /api/hostlog?ip=
func (s *DevServer) HostLog(ctx echo.Context) error {
	return s.handleHostLog(ctx)
}

// POST /api/setnextupdate?ip= with the label as the request body
func (s *DevServer) SetNextUpdate(ctx echo.Context) error {
	return s.handleSetNextUpdate(ctx)
}

// POST /symbolicate_dump with a multipart 'minidump' part
func (s *DevServer) SymbolicateDump(ctx echo.Context) error {
	return s.handleSymbolicateDump(ctx)
}

// GET /latestbuild?target=&milestone=
func (s *DevServer) LatestBuild(ctx echo.Context) error {
	return s.handleLatestBuild(ctx)
}

// GET /controlfiles?build=&control_path=
func (s *DevServer) ControlFiles(ctx echo.Context) error {
	return s.handleControlFiles(ctx)
}

// GET /
func (s *DevServer) Index(ctx echo.Context) error {
	return s.handleIndex(ctx)
}
