package proxyserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/jtarchie/labdeviceproxy/wire"
)

const maxRead = 8192

// subprocessResult is what the forwarding loop learned about a
// completed (or abandoned) command.
type subprocessResult struct {
	ExitCode int
	HadExit  bool
}

// runSubprocess spawns args[0] with args[1:], forwards its stdout and
// stderr to the corresponding wire chunk writers as bytes arrive, and
// watches ctx for cancellation as the "client disconnected" signal.
// ctx is expected to be the HTTP request's context, which net/http
// cancels when the underlying connection goes away: a literal
// readiness-multiplex over the request socket, as the source does, has
// no Go equivalent once the request body has already been fully read
// (it always has, by Phase 1), so request-context cancellation is the
// idiomatic replacement that observes the same event.
func runSubprocess(ctx context.Context, args []string, stdoutW, stderrW io.Writer) subprocessResult {
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		fmt.Fprintf(stderrW, "%s\n", err)

		return subprocessResult{ExitCode: 1, HadExit: true}
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		fmt.Fprintf(stderrW, "%s\n", err)

		return subprocessResult{ExitCode: 1, HadExit: true}
	}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(stderrW, "%s\n", err)

		return subprocessResult{ExitCode: spawnErrorCode(err), HadExit: true}
	}

	outCh := pump(stdoutPipe)
	errCh := pump(stderrPipe)

	outOpen, errOpen := true, true
	killed := false

	for outOpen || errOpen {
		select {
		case <-ctx.Done():
			// Keep draining outCh/errCh after the kill: os/exec requires
			// every read from StdoutPipe/StderrPipe to finish before
			// Wait is called, and Kill alone doesn't close those pipes.
			killed = true

			_ = cmd.Process.Kill()
		case c, ok := <-outCh:
			if !ok {
				outOpen = false
				outCh = nil

				continue
			}

			stdoutW.Write(c) //nolint:errcheck
		case c, ok := <-errCh:
			if !ok {
				errOpen = false
				errCh = nil

				continue
			}

			stderrW.Write(c) //nolint:errcheck
		}
	}

	waitErr := cmd.Wait()

	if killed {
		return subprocessResult{}
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		fmt.Fprintf(stderrW, "%s\n", waitErr)

		return subprocessResult{ExitCode: 1, HadExit: true}
	}

	return subprocessResult{ExitCode: cmd.ProcessState.ExitCode(), HadExit: true}
}

// pump reads r in maxRead-sized bursts and forwards each non-empty
// read on the returned channel, closing it once r returns io.EOF or a
// read error. One read per wake-up, no batching: this is what gives
// the forwarding loop the "at most one read per readiness event"
// ordering guarantee from the design this is grounded on.
func pump(r io.Reader) <-chan []byte {
	ch := make(chan []byte)

	go func() {
		defer close(ch)

		buf := make([]byte, maxRead)

		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				ch <- chunk
			}

			if err != nil {
				return
			}
		}
	}()

	return ch
}

func spawnErrorCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}

	return 1
}

// sendExit writes the exit chunk, if the child ever reported one.
func sendExit(w io.Writer, result subprocessResult) error {
	if !result.HadExit {
		return nil
	}

	header := wire.NewHeader("exit")
	if err := wire.WriteChunk(w, header, []byte(fmt.Sprintf("%d", result.ExitCode))); err != nil {
		return fmt.Errorf("proxyserver: writing exit chunk: %w", err)
	}

	return nil
}
