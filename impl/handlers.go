package impl

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/flatcar-linux/dev-util/impl/builds"
	"github.com/flatcar-linux/dev-util/impl/dverr"
	"github.com/flatcar-linux/dev-util/impl/globals"
	"github.com/flatcar-linux/dev-util/impl/metrics"
	"github.com/flatcar-linux/dev-util/impl/omaha"
	"github.com/flatcar-linux/dev-util/impl/staging"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

// GET or POST /download - begins staging the artifact in the background and
// returns immediately. Callers follow up with /wait_for_status using the
// same archive_url.
func (s *DevServer) handleDownload(ctx echo.Context) error {
	key := ctx.QueryParam("archive_url")
	if key == "" {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the archive_url in request")
	}
	status, joined := s.coordinator.StartStaging(key)
	if joined {
		metrics.IncStagingJoins()
		log.Debugf("joined in-flight staging for %s", key)
	} else {
		metrics.IncStagingRequests()
	}
	return ctx.String(http.StatusOK, string(status))
}

// GET /wait_for_status - blocks until the tracked staging task for the
// archive_url reaches a terminal state, bounded by the request context.
func (s *DevServer) handleWaitForStatus(ctx echo.Context) error {
	key := ctx.QueryParam("archive_url")
	if key == "" {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the archive_url in request")
	}
	metrics.IncStatusPolls()
	status, err := s.coordinator.Poll(ctx.Request().Context(), key)
	switch status {
	case staging.StatusSuccess:
		return ctx.String(http.StatusOK, string(status))
	case staging.StatusPending:
		// request context expired before the task finished
		return ctx.String(http.StatusOK, string(status))
	case staging.StatusFailed:
		metrics.IncStagingFailures()
		return ctx.String(http.StatusInternalServerError, err.Error())
	default:
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusNotFound, "no download for the given archive_url found")
	}
}

// GET or POST /stage_debug - synchronously stages debug symbols for use by
// /symbolicate_dump.
func (s *DevServer) handleStageDebug(ctx echo.Context) error {
	key := ctx.QueryParam("archive_url")
	if key == "" {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the archive_url in request")
	}
	symbolsDir := filepath.Join(s.staticDir, globals.DebugDir)
	if err := s.store.Fetch(ctx.Request().Context(), key, symbolsDir); err != nil {
		metrics.IncApiErrorResults()
		log.Errorf("error staging debug symbols for %q: %s", key, err)
		return ctx.String(http.StatusInternalServerError, err.Error())
	}
	return ctx.String(http.StatusOK, string(staging.StatusSuccess))
}

// POST /update - decodes the update ping, records it against the client
// host, and answers with the negotiated (or operator-forced) label.
func (s *DevServer) handleUpdate(ctx echo.Context) error {
	metrics.IncUpdatePings()
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusBadRequest)
	}
	ping, err := omaha.ParseRequest(raw)
	if err != nil {
		// a decode failure must not touch the registry
		metrics.IncApiErrorResults()
		log.Warnf("undecodable update ping from %s: %s", ctx.RealIP(), err)
		return ctx.String(http.StatusBadRequest, err.Error())
	}
	ip := ctx.RealIP()
	s.registry.RecordPing(ip, ping.EventType, ping.EventStatus, ping.Version)

	// the URL label wins over the track the client reports
	negotiated := ctx.Param("*")
	if negotiated == "" {
		negotiated = ping.Track
	}
	resolved := s.registry.ComputeResponseLabel(ip, negotiated)
	if resolved != negotiated {
		metrics.IncForcedLabels()
	}
	if !ping.UpdateCheck {
		resolved = ""
	}
	body, err := s.codec.BuildResponse(resolved)
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusInternalServerError)
	}
	return ctx.Blob(http.StatusOK, "text/xml", body)
}

// GET /api/hostinfo - snapshot of what the server knows about one host.
// An unknown host is an empty JSON object, not an error.
func (s *DevServer) handleHostInfo(ctx echo.Context) error {
	ip := ctx.QueryParam("ip")
	if ip == "" {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the ip in request")
	}
	rec, exists := s.registry.Snapshot(ip)
	if !exists {
		return ctx.JSON(http.StatusOK, struct{}{})
	}
	return ctx.JSON(http.StatusOK, rec)
}

// GET /api/hostlog - the chronological event log for one host, or for all
// hosts when ip is 'all' or absent.
func (s *DevServer) handleHostLog(ctx echo.Context) error {
	ip := ctx.QueryParam("ip")
	if ip == "" || ip == "all" {
		return ctx.JSON(http.StatusOK, s.registry.LogAll())
	}
	return ctx.JSON(http.StatusOK, s.registry.Log(ip))
}

// POST /api/setnextupdate - queues a label to answer the host's next ping.
func (s *DevServer) handleSetNextUpdate(ctx echo.Context) error {
	ip := ctx.QueryParam("ip")
	if ip == "" {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the ip in request")
	}
	label, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusBadRequest)
	}
	if err := s.registry.SetOverride(ip, string(label)); err != nil {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "no label provided")
	}
	return ctx.String(http.StatusOK, "ok")
}

// POST /symbolicate_dump - symbolicates a posted minidump against the
// staged debug symbols and returns the stack trace as text. It is up to
// the caller to ensure that the symbols they want are currently staged.
func (s *DevServer) handleSymbolicateDump(ctx echo.Context) error {
	metrics.IncSymbolicateRequests()
	fileHdr, err := ctx.FormFile("minidump")
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.String(http.StatusBadRequest, "didn't specify the minidump in request")
	}
	src, err := fileHdr.Open()
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusInternalServerError)
	}
	defer src.Close()
	local, err := os.CreateTemp("", "minidump")
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusInternalServerError)
	}
	defer os.Remove(local.Name())
	if _, err := io.Copy(local, src); err != nil {
		local.Close()
		metrics.IncApiErrorResults()
		return ctx.NoContent(http.StatusInternalServerError)
	}
	local.Close()
	trace, err := s.symbolizer.Run(ctx.Request().Context(), local.Name(),
		filepath.Join(s.staticDir, globals.DebugDir))
	if err != nil {
		metrics.IncApiErrorResults()
		log.Errorf("symbolication failed: %s", err)
		return ctx.String(http.StatusInternalServerError, err.Error())
	}
	return ctx.String(http.StatusOK, trace)
}

// GET /latestbuild - the newest build version for a target.
func (s *DevServer) handleLatestBuild(ctx echo.Context) error {
	latest, err := builds.LatestVersion(s.staticDir, ctx.QueryParam("target"), ctx.QueryParam("milestone"))
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.String(statusFor(err), err.Error())
	}
	return ctx.String(http.StatusOK, latest)
}

// GET /controlfiles - a build's control file list, or the contents of one
// control file if control_path is given.
func (s *DevServer) handleControlFiles(ctx echo.Context) error {
	build := ctx.QueryParam("build")
	controlPath := ctx.QueryParam("control_path")
	if controlPath == "" {
		list, err := builds.ControlFileList(s.staticDir, build)
		if err != nil {
			metrics.IncApiErrorResults()
			return ctx.String(statusFor(err), err.Error())
		}
		return ctx.JSON(http.StatusOK, list)
	}
	contents, err := builds.ControlFile(s.staticDir, build, controlPath)
	if err != nil {
		metrics.IncApiErrorResults()
		return ctx.String(statusFor(err), err.Error())
	}
	return ctx.Blob(http.StatusOK, "text/plain", contents)
}

// GET /
func (s *DevServer) handleIndex(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Dev Server!")
}

// statusFor maps the shared error categories to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dverr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, dverr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dverr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
