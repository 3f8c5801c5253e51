package proxyserver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jtarchie/labdeviceproxy/wire"
)

// writeOutputs streams every staged output placeholder back to the
// client (Phase 5), then writes the end-of-stream marker. Ascending N
// is guaranteed because params is already in ascending Index order.
func writeOutputs(w io.Writer, params []*param) error {
	for _, p := range params {
		if p.OutDir == "" {
			continue
		}

		if err := writeOutputParam(w, p); err != nil {
			return err
		}
	}

	return wire.WriteEnd(w)
}

func writeOutputParam(w io.Writer, p *param) error {
	header := wire.NewHeader(fmt.Sprintf("o%d", p.Index))
	header.Out = p.Header.Out

	if !p.Header.IsTar {
		entries, err := os.ReadDir(p.OutDir)
		if err != nil {
			return fmt.Errorf("proxyserver: listing staged output %d: %w", p.Index, err)
		}

		switch len(entries) {
		case 0:
			header.IsAbsent = true

			return wire.WriteChunk(w, header, nil)
		case 1:
			fullPath := filepath.Join(p.OutDir, entries[0].Name())

			info, err := os.Stat(fullPath)
			if err != nil {
				return fmt.Errorf("proxyserver: statting staged output %d: %w", p.Index, err)
			}

			if info.Mode().IsRegular() {
				return writeOutputFile(w, header, fullPath)
			}
		}
	}

	header.IsTar = true

	return wire.SendTar(w, header, p.OutDir, "/")
}

func writeOutputFile(w io.Writer, header wire.Header, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxyserver: opening staged output file: %w", err)
	}
	defer f.Close()

	chunked := &wire.ChunkWriter{Header: header, W: w}

	buf := make([]byte, maxRead)

	wrote := false

	for {
		n, err := f.Read(buf)
		if n > 0 {
			wrote = true

			if _, werr := chunked.Write(buf[:n]); werr != nil {
				return fmt.Errorf("proxyserver: streaming staged output file: %w", werr)
			}
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("proxyserver: reading staged output file: %w", err)
		}
	}

	if !wrote {
		return wire.WriteChunk(w, header, nil)
	}

	return nil
}
