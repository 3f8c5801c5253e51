// Package wire implements the extended chunked-transfer-encoding framing
// that carries argument lists, files, tar streams, stdio, and the exit
// code of a proxied command over a single HTTP/1.1 request/response body.
package wire

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	keyPattern   = regexp.MustCompile(`^[a-z][a-z_]*[a-z]$`)
	valuePattern = regexp.MustCompile(`^[-A-Za-z0-9_.]*$`)
)

// Header is the decoded metadata of one chunk header line.
type Header struct {
	Len      int
	ID       string
	In       string
	Out      string
	IsAbsent bool
	IsEmpty  bool
	IsTar    bool
}

// NewHeader returns a Header for the given stream id.
func NewHeader(id string) Header {
	return Header{ID: id}
}

// Format renders h as a wire-format header line, keys in ASCII order.
func (h Header) Format() string {
	var parts []string

	if h.ID != "" {
		parts = append(parts, "id="+h.ID)
	}

	if h.In != "" {
		parts = append(parts, "in="+h.In)
	}

	if h.IsAbsent {
		parts = append(parts, "is_absent=true")
	}

	if h.IsEmpty {
		parts = append(parts, "is_empty=true")
	}

	if h.IsTar {
		parts = append(parts, "is_tar=true")
	}

	if h.Out != "" {
		parts = append(parts, "out="+h.Out)
	}

	return fmt.Sprintf("%X;%s\r\n", h.Len, strings.Join(parts, ","))
}

// ParseHeader parses one wire-format header line, including its
// trailing "\r\n". Unknown keys are silently dropped, per spec.
func ParseHeader(line string) (Header, error) {
	if !strings.HasSuffix(line, "\r\n") {
		return Header{}, fmt.Errorf("chunk header missing crlf suffix: %q", line)
	}

	trimmed := line[:len(line)-2]

	lenAndFields := strings.SplitN(trimmed, ";", 2)

	length, err := strconv.ParseInt(strings.TrimSpace(lenAndFields[0]), 16, 64)
	if err != nil {
		return Header{}, fmt.Errorf("invalid chunk length %q: %w", lenAndFields[0], err)
	}

	if length < 0 {
		length = 0
	}

	header := Header{Len: int(length)}

	if len(lenAndFields) > 1 && lenAndFields[1] != "" {
		for _, item := range strings.Split(lenAndFields[1], ",") {
			kv := strings.SplitN(item, "=", 2)
			if len(kv) != 2 {
				return Header{}, fmt.Errorf("malformed chunk field %q", item)
			}

			key := strings.TrimSpace(kv[0])
			value := strings.TrimSpace(kv[1])

			if !keyPattern.MatchString(key) {
				return Header{}, fmt.Errorf("illegal chunk key %q", key)
			}

			if !valuePattern.MatchString(value) {
				return Header{}, fmt.Errorf("unsupported character in chunk field %q=%q", key, value)
			}

			switch key {
			case "id":
				header.ID = value
			case "in":
				header.In = value
			case "out":
				header.Out = value
			case "is_absent":
				header.IsAbsent = strings.EqualFold(value, "true")
			case "is_empty":
				header.IsEmpty = strings.EqualFold(value, "true")
			case "is_tar":
				header.IsTar = strings.EqualFold(value, "true")
			default:
				// unrecognized keys are ignored on receive, never emitted.
			}
		}
	}

	return header, nil
}
