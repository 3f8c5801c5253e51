package client

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jtarchie/labdeviceproxy/argspec"
	"github.com/jtarchie/labdeviceproxy/wire"
)

// outputSink is whichever local destination an "o<N>" response id
// lazily resolves to on its first non-absent, non-empty chunk: a
// plain file, or a tar extractor pipe.
type outputSink struct {
	file    *os.File
	fileW   io.Writer
	tarW    io.WriteCloser
	tarErrC <-chan error
}

func (s *outputSink) write(p []byte) error {
	switch {
	case s.tarW != nil:
		_, err := s.tarW.Write(p)

		return err
	case s.fileW != nil:
		_, err := s.fileW.Write(p)

		return err
	default:
		return nil
	}
}

func (s *outputSink) close() error {
	if s.file != nil {
		return s.file.Close()
	}

	if s.tarW != nil {
		closeErr := s.tarW.Close()
		extractErr := <-s.tarErrC

		if extractErr != nil {
			return extractErr
		}

		return closeErr
	}

	return nil
}

// outputTarget is what the caller asked an "o<N>" response id to land
// on: the local path, and whether that path was already a regular
// file at request time (sendOutputPlaceholder's "default" case, §4.4)
// rather than an absent path or an existing directory — the only
// shape for which an is_tar response is illegal.
type outputTarget struct {
	path        string
	regularFile bool
}

// readResponse drains the response body's wire chunks: "1"/"2" go to
// stdout/stderr, "exit" accumulates the decimal exit code, and
// "o<N>" ids are resolved against the caller's own output-file
// parameters and written to the local path the caller asked for.
func readResponse(body io.Reader, params []argspec.Param, stdout, stderr io.Writer) (int, bool, error) {
	outputPaths := map[string]outputTarget{}

	for _, p := range params {
		if p.Kind == argspec.OutputFile {
			info, err := os.Stat(p.Text)
			regularFile := err == nil && !info.IsDir()

			outputPaths[fmt.Sprintf("o%d", p.Index)] = outputTarget{path: p.Text, regularFile: regularFile}
		}
	}

	sinks := map[string]*outputSink{}

	defer func() {
		for _, sink := range sinks {
			_ = sink.close()
		}
	}()

	var exitBuf bytes.Buffer

	r := bufio.NewReader(body)

	for {
		header, payload, err := wire.ReadChunk(r)
		if err != nil {
			return 0, false, fmt.Errorf("client: reading response: %w", err)
		}

		if header.Len == 0 {
			break
		}

		switch header.ID {
		case "1":
			if !header.IsAbsent && !header.IsEmpty {
				stdout.Write(payload) //nolint:errcheck
			}
		case "2":
			if !header.IsAbsent && !header.IsEmpty {
				stderr.Write(payload) //nolint:errcheck
			}
		case "exit":
			if !header.IsAbsent && !header.IsEmpty {
				exitBuf.Write(payload)
			}
		default:
			if err := handleOutputChunk(sinks, outputPaths, header, payload); err != nil {
				return 0, false, err
			}
		}
	}

	for id, sink := range sinks {
		if err := sink.close(); err != nil {
			return 0, false, fmt.Errorf("client: finishing output %q: %w", id, err)
		}

		delete(sinks, id)
	}

	if exitBuf.Len() == 0 {
		return 0, false, nil
	}

	code, err := strconv.Atoi(exitBuf.String())
	if err != nil {
		return 0, false, fmt.Errorf("client: invalid exit code %q: %w", exitBuf.String(), err)
	}

	return code, true, nil
}

func handleOutputChunk(sinks map[string]*outputSink, outputPaths map[string]outputTarget, header wire.Header, payload []byte) error {
	target, ok := outputPaths[header.ID]
	if !ok {
		return fmt.Errorf("client: unknown output stream id %q", header.ID)
	}

	if header.IsAbsent || header.IsEmpty {
		return nil
	}

	if header.IsTar && target.regularFile {
		return fmt.Errorf("client: server sent a tar stream for output %q, which names an existing regular file", target.path)
	}

	sink, ok := sinks[header.ID]
	if !ok {
		opened, err := openOutputSink(target.path, header.IsTar)
		if err != nil {
			return err
		}

		sink = opened
		sinks[header.ID] = sink
	}

	if err := sink.write(payload); err != nil {
		return fmt.Errorf("client: writing output %q: %w", target.path, err)
	}

	return nil
}

func openOutputSink(path string, isTar bool) (*outputSink, error) {
	if isTar {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("client: creating output directory %q: %w", path, err)
		}

		w, errCh := wire.ReceiveTar(path)

		return &outputSink{tarW: w, tarErrC: errCh}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("client: creating output file %q: %w", path, err)
	}

	tracked := progressWriter(f, "downloading "+filepath.Base(path), -1)

	return &outputSink{file: f, fileW: tracked}, nil
}
