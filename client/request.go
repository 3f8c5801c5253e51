package client

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jtarchie/labdeviceproxy/argspec"
	"github.com/jtarchie/labdeviceproxy/wire"
)

const maxRead = 8192

// call sends params as one chunked POST to url and streams the
// response's stdout/stderr/output-file chunks to stdout/stderr and
// the caller-named local paths, returning the remote exit code.
func call(httpClient *http.Client, url string, params []argspec.Param, stdout, stderr io.Writer) (int, bool, error) {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(sendBody(pw, params))
	}()

	req, err := http.NewRequest(http.MethodPost, url, pr)
	if err != nil {
		return 0, false, fmt.Errorf("client: building request: %w", err)
	}

	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Content-Encoding", "UTF-8")
	req.ContentLength = -1

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("client: request failed: %s", resp.Status)
	}

	return readResponse(resp.Body, params, stdout, stderr)
}

// sendBody streams every parameter onto w in index order, then writes
// the end-of-stream marker.
func sendBody(w io.Writer, params []argspec.Param) error {
	for _, p := range params {
		var err error

		switch p.Kind {
		case argspec.InputFile:
			err = sendInputFile(w, p)
		case argspec.OutputFile:
			err = sendOutputPlaceholder(w, p)
		default:
			err = wire.WriteChunk(w, wire.NewHeader(fmt.Sprintf("a%d", p.Index)), []byte(p.Text))
		}

		if err != nil {
			return err
		}
	}

	return wire.WriteEnd(w)
}

func sendInputFile(w io.Writer, p argspec.Param) error {
	path := p.Text
	header := wire.NewHeader(fmt.Sprintf("i%d", p.Index))
	header.In = filepath.Base(path)

	info, err := os.Stat(path)

	switch {
	case err != nil:
		header.IsAbsent = true

		return wire.WriteChunk(w, header, nil)
	case info.IsDir():
		header.IsTar = true

		return wire.SendTar(w, header, path, filepath.Base(path)+"/")
	default:
		return sendInputRegularFile(w, header, path, info.Size())
	}
}

func sendInputRegularFile(w io.Writer, header wire.Header, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("client: opening input file %q: %w", path, err)
	}
	defer f.Close()

	chunked := &wire.ChunkWriter{Header: header, W: w}
	tracked := progressWriter(chunked, "uploading "+filepath.Base(path), size)

	buf := make([]byte, maxRead)

	wrote := false

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			wrote = true

			if _, werr := tracked.Write(buf[:n]); werr != nil {
				return fmt.Errorf("client: streaming input file %q: %w", path, werr)
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return fmt.Errorf("client: reading input file %q: %w", path, readErr)
		}
	}

	if !wrote {
		return wire.WriteChunk(w, header, nil)
	}

	return nil
}

func sendOutputPlaceholder(w io.Writer, p argspec.Param) error {
	path := p.Text
	header := wire.NewHeader(fmt.Sprintf("o%d", p.Index))

	info, err := os.Stat(path)

	switch {
	case err == nil && info.IsDir():
		header.IsTar = true
		header.Out = "."
	case err != nil:
		header.IsAbsent = true
		header.Out = filepath.Base(path)
	default:
		header.Out = filepath.Base(path)
	}

	return wire.WriteChunk(w, header, nil)
}
