package proxyserver

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/jtarchie/labdeviceproxy/tempfs"
	"github.com/jtarchie/labdeviceproxy/wire"
)

var streamIDPattern = regexp.MustCompile(`^([aio])(\d+)$`)

// param is one reconstructed entry of the server-side parameter list.
// It mirrors the Python source's Param: an index, a value (the
// literal scalar, or the staged local path for file-typed entries),
// the header of the chunk that created it, and the open sink (if any)
// a continuation chunk keeps writing into.
type param struct {
	Index  int
	Value  string
	Header wire.Header

	inFile  *os.File
	tarW    io.WriteCloser
	tarErrC <-chan error

	// OutDir is the staging directory created for an o<N> placeholder.
	// Its presence is what Phase 2 uses to classify the parameter as
	// an output file.
	OutDir string
}

func parseStreamID(id string) (kind byte, index int, ok bool) {
	m := streamIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, false
	}

	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}

	return m[1][0], n, true
}

// readParams consumes the request body's wire chunks into a
// contiguous, ordered parameter list, staging input files and output
// placeholders under fs as it goes. It enforces the monotonic index
// ordering invariant: each chunk's claimed index must equal either
// the last parameter's index (a continuation) or one past it.
func readParams(r *bufio.Reader, fs *tempfs.FS) ([]*param, error) {
	var params []*param

	for {
		header, payload, err := wire.ReadChunk(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}

		if header.Len == 0 && header.ID == "" {
			break
		}

		kind, index, ok := parseStreamID(header.ID)
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized chunk id %q", ErrProtocol, header.ID)
		}

		curr, isNew, err := nextParam(params, index)
		if err != nil {
			return nil, err
		}

		if isNew {
			if len(params) > 0 {
				if err := closeParam(params[len(params)-1]); err != nil {
					return nil, err
				}
			}

			curr.Header = header
			params = append(params, curr)
		}

		switch kind {
		case 'a':
			if err := applyScalar(curr, isNew, header, payload); err != nil {
				return nil, err
			}
		case 'i':
			if err := applyInput(curr, isNew, header, payload, index, fs); err != nil {
				return nil, err
			}
		case 'o':
			if err := applyOutput(curr, isNew, header, index, fs); err != nil {
				return nil, err
			}
		}
	}

	if len(params) > 0 {
		if err := closeParam(params[len(params)-1]); err != nil {
			return nil, err
		}
	}

	return params, nil
}

func nextParam(params []*param, index int) (*param, bool, error) {
	if len(params) > 0 && params[len(params)-1].Index == index {
		return params[len(params)-1], false, nil
	}

	if len(params) == index {
		return &param{Index: index}, true, nil
	}

	return nil, false, fmt.Errorf(
		"%w: chunk id index %d is neither the current parameter (%d) nor the next one",
		ErrProtocol, index, len(params),
	)
}

func applyScalar(curr *param, isNew bool, header wire.Header, payload []byte) error {
	if !isNew {
		return fmt.Errorf("%w: scalar argument %q does not accept a continuation chunk", ErrProtocol, header.ID)
	}

	if header.In != "" || header.Out != "" {
		return fmt.Errorf("%w: scalar argument %q must not carry in/out", ErrProtocol, header.ID)
	}

	if !header.IsAbsent && !header.IsEmpty {
		curr.Value = string(payload)
	}

	return nil
}

func applyInput(curr *param, isNew bool, header wire.Header, payload []byte, index int, fs *tempfs.FS) error {
	if header.Out != "" {
		return fmt.Errorf("%w: input chunk %q must not carry out", ErrProtocol, header.ID)
	}

	if isNew {
		if header.In == "" {
			return fmt.Errorf("%w: input chunk %q missing in", ErrProtocol, header.ID)
		}

		path, err := fs.Join(index, header.In)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		}

		curr.Value = path

		if header.IsAbsent {
			return nil
		}

		if header.IsTar {
			dir, err := fs.Mkdir(index)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrProtocol, err)
			}

			w, errCh := wire.ReceiveTar(dir)
			curr.tarW = w
			curr.tarErrC = errCh
		} else {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("%w: creating staged input file: %w", ErrProtocol, err)
			}

			curr.inFile = f
		}
	} else if curr.inFile == nil && curr.tarW == nil {
		return fmt.Errorf("%w: continuation chunk %q has no open sink", ErrProtocol, header.ID)
	}

	if header.IsAbsent || header.IsEmpty {
		return nil
	}

	switch {
	case curr.tarW != nil:
		if _, err := curr.tarW.Write(payload); err != nil {
			return fmt.Errorf("%w: writing staged tar stream: %w", ErrProtocol, err)
		}
	case curr.inFile != nil:
		if _, err := curr.inFile.Write(payload); err != nil {
			return fmt.Errorf("%w: writing staged input file: %w", ErrProtocol, err)
		}
	}

	return nil
}

func applyOutput(curr *param, isNew bool, header wire.Header, index int, fs *tempfs.FS) error {
	if !isNew {
		return fmt.Errorf("%w: output placeholder %q does not accept a continuation chunk", ErrProtocol, header.ID)
	}

	if header.In != "" {
		return fmt.Errorf("%w: output chunk %q must not carry in", ErrProtocol, header.ID)
	}

	dir, err := fs.Mkdir(index)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	path, err := fs.Join(index, header.Out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	curr.Value = path
	curr.OutDir = dir

	return nil
}

// closeParam closes whichever input sink p has open (at most one),
// waiting for an inbound tar extractor to finish and surfacing any
// path-confinement violation it found.
func closeParam(p *param) error {
	if p.inFile != nil {
		err := p.inFile.Close()
		p.inFile = nil

		if err != nil {
			return fmt.Errorf("%w: closing staged input file: %w", ErrProtocol, err)
		}
	}

	if p.tarW != nil {
		closeErr := p.tarW.Close()
		extractErr := <-p.tarErrC
		p.tarW = nil

		if extractErr != nil {
			return fmt.Errorf("%w: extracting staged input tar: %w", ErrForbidden, extractErr)
		}

		if closeErr != nil {
			return fmt.Errorf("%w: closing staged input tar pipe: %w", ErrProtocol, closeErr)
		}
	}

	return nil
}
