package proxyserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jtarchie/labdeviceproxy/orchestra/cache"
	"github.com/jtarchie/labdeviceproxy/wire"
)

// ArchivePolicy optionally durable-copies a request's output payload
// to an S3-compatible bucket once it crosses MinBytes, for device logs
// and screenshots pulled off ephemeral lab hardware. It is entirely
// off the wire-protocol critical path: the response to the client has
// already been sent by the time archiveOutputs runs, so a failure here
// is logged, never surfaced to the caller.
type ArchivePolicy struct {
	Store    cache.CacheStore
	MinBytes int64
}

func (a ArchivePolicy) enabled() bool {
	return a.Store != nil
}

// archiveOutputs persists a gzipped tar of every output staging
// directory whose total size reaches MinBytes.
func archiveOutputs(ctx context.Context, logger *slog.Logger, policy ArchivePolicy, requestID string, params []*param) {
	if !policy.enabled() {
		return
	}

	for _, p := range params {
		if p.OutDir == "" {
			continue
		}

		size, err := dirSize(p.OutDir)
		if err != nil {
			logger.Warn("proxyserver.archive.size", "error", err)

			continue
		}

		if size < policy.MinBytes {
			continue
		}

		key := fmt.Sprintf("%s/arg%d.tar.gz", requestID, p.Index)

		var buf bytes.Buffer
		if err := wire.WriteTarGz(&buf, p.OutDir, "/"); err != nil {
			logger.Warn("proxyserver.archive.tar", "error", err, "key", key)

			continue
		}

		if err := policy.Store.Persist(ctx, key, &buf); err != nil {
			logger.Warn("proxyserver.archive.persist", "error", err, "key", key)

			continue
		}

		logger.Info("proxyserver.archive.persisted", "key", key, "bytes", size)
	}
}

func dirSize(root string) (int64, error) {
	var total int64

	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			total += info.Size()
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("proxyserver: sizing %q: %w", root, err)
	}

	return total, nil
}
