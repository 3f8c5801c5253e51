package proxyserver

import "errors"

// ErrProtocol wraps every malformed-wire-input condition found while
// reading the request body (Phase 1): a bad chunk header, a
// non-monotonic stream id, a continuation chunk with no open sink, or
// an "in"/"out" field on the wrong kind of chunk. The handler maps it
// to HTTP 400.
var ErrProtocol = errors.New("proxyserver: protocol error")

// ErrForbidden wraps every allow-list violation found while
// re-validating the reconstructed parameter list against the grammar
// (Phase 2), and every path-confinement escape found while staging
// input files and output placeholders (Phase 1). The handler maps it
// to HTTP 403.
var ErrForbidden = errors.New("proxyserver: forbidden")
