// Package proxyserver implements the device-proxy HTTP endpoint: the
// six-phase request lifecycle that turns a wire-framed request body
// into a spawned adb/idevice* subprocess and streams its stdio, output
// files, and exit code back out over the same connection.
package proxyserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/jtarchie/labdeviceproxy/audit"
	"github.com/jtarchie/labdeviceproxy/tempfs"
	"github.com/jtarchie/labdeviceproxy/wire"
)

// Handler serves the device-proxy protocol described in spec.md §4.5.
type Handler struct {
	// IDevicePath, if set, is prepended to args[0] before spawning
	// (Phase 4's "<IDEVICE_PATH>/<cmd>" rewrite).
	IDevicePath string

	// Audit, if non-nil, receives one Entry per completed POST.
	Audit *audit.Store

	// Archive, if enabled, durable-copies large output payloads.
	Archive ArchivePolicy

	Logger *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return slog.Default()
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))

			return
		}

		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	h.serveCommand(w, r)
}

// serveCommand runs Phases 1-6 of spec.md §4.5 for one POST.
func (h *Handler) serveCommand(w http.ResponseWriter, r *http.Request) {
	requestID := gonanoid.Must()
	started := time.Now()
	logger := h.logger().With("request_id", requestID)

	fs := tempfs.New()
	defer func() {
		if err := fs.Cleanup(); err != nil {
			logger.Warn("proxyserver.cleanup", "error", err)
		}
	}()

	// Phase 1 - read.
	params, err := readParams(bufio.NewReader(r.Body), fs)
	if err != nil {
		h.rejectBeforeResponse(w, logger, requestID, r, started, err)

		return
	}

	// Phase 2 - validate.
	if err := validate(params); err != nil {
		h.rejectBeforeResponse(w, logger, requestID, r, started, err)

		return
	}

	args := make([]string, len(params))
	for i, p := range params {
		args[i] = p.Value
	}

	if len(args) == 0 {
		h.rejectBeforeResponse(w, logger, requestID, r, started,
			fmt.Errorf("%w: empty argument list", ErrForbidden))

		return
	}

	if h.IDevicePath != "" {
		args[0] = h.IDevicePath + "/" + args[0]
	}

	// Phase 3 - respond. No further HTTP status can be sent after this.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Encoding", "UTF-8")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	var stdoutCapture, stderrCapture bytes.Buffer

	out := &flushWriter{w: w, flusher: flusher}
	stdoutChunks := &wire.ChunkWriter{Header: wire.NewHeader("1"), W: out}
	stderrChunks := &wire.ChunkWriter{Header: wire.NewHeader("2"), W: out}

	stdoutW := io.MultiWriter(stdoutChunks, &stdoutCapture)
	stderrW := io.MultiWriter(stderrChunks, &stderrCapture)

	// Phase 4 - execute.
	result := runSubprocess(r.Context(), args, stdoutW, stderrW)

	entry := audit.Entry{
		ID:         requestID,
		Command:    args[0],
		Argv:       fmt.Sprint(args),
		ExitCode:   result.ExitCode,
		HadExit:    result.HadExit,
		ClientAddr: r.RemoteAddr,
		Stdout:     stdoutCapture.String(),
		Stderr:     stderrCapture.String(),
		DurationMS: time.Since(started).Milliseconds(),
		StartedAt:  started,
	}

	if !result.HadExit {
		// client disconnected mid-command: the source's loop kills the
		// child and returns with no exit chunk and no output phase.
		entry.Error = "client disconnected"
		h.record(r.Context(), logger, entry)

		return
	}

	// The exit chunk precedes any output-file chunks (spec.md §5
	// ordering: "Output-file chunks for o<N> follow the exit chunk").
	if err := sendExit(w, result); err != nil {
		logger.Warn("proxyserver.exit", "error", err)
	}

	// Phase 5 - return outputs.
	if err := writeOutputs(w, params); err != nil {
		logger.Warn("proxyserver.outputs", "error", err)
		entry.Error = err.Error()
	}

	if flusher != nil {
		flusher.Flush()
	}

	archiveOutputs(r.Context(), logger, h.Archive, requestID, params)

	h.record(r.Context(), logger, entry)
}

// rejectBeforeResponse maps err to an HTTP status. It is only valid
// before Phase 3 has sent anything.
func (h *Handler) rejectBeforeResponse(
	w http.ResponseWriter, logger *slog.Logger, requestID string, r *http.Request, started time.Time, err error,
) {
	status := http.StatusBadRequest

	switch {
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ErrProtocol):
		status = http.StatusBadRequest
	}

	logger.Info("proxyserver.rejected", "status", status, "error", err)
	w.WriteHeader(status)

	h.record(r.Context(), logger, audit.Entry{
		ID:         requestID,
		Command:    "",
		Argv:       "",
		ClientAddr: r.RemoteAddr,
		Error:      err.Error(),
		DurationMS: time.Since(started).Milliseconds(),
		StartedAt:  started,
	})
}

func (h *Handler) record(ctx context.Context, logger *slog.Logger, entry audit.Entry) {
	if h.Audit == nil {
		return
	}

	if entry.Command == "" {
		entry.Command = "(rejected)"
	}

	if entry.Argv == "" {
		entry.Argv = "[]"
	}

	if err := h.Audit.Record(ctx, entry); err != nil {
		logger.Warn("proxyserver.audit", "error", err)
	}
}

// flushWriter flushes after every Write so stdout/stderr chunks reach
// the client as the subprocess produces them, rather than waiting for
// the response body's own buffering to fill.
type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}

	return n, err
}
