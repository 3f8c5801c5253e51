package commands

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jtarchie/labdeviceproxy/audit"
	"github.com/jtarchie/labdeviceproxy/orchestra/cache"
	"github.com/jtarchie/labdeviceproxy/proxyserver"

	// registers the "s3://" cache store scheme.
	_ "github.com/jtarchie/labdeviceproxy/orchestra/cache/s3"
)

// Proxy runs the device-proxy listener: the bidirectional chunked
// protocol described in spec.md §4.5, fronting a real adb/idevice*
// binary on this machine.
type Proxy struct {
	Port        int    `default:"8084"        short:"p" help:"TCP port to listen on"`
	IDevicePath string `env:"IDEVICE_PATH"               help:"Directory prefix for the invoked device-tool binary"`
	Storage     string `                                 help:"Path to the audit log sqlite file; audit logging is disabled if unset"`

	ArchiveURL      string `name:"archive-url"                   help:"cache store URL (e.g. s3://bucket/prefix) for large output archival"`
	ArchiveMinBytes int64  `name:"archive-min-bytes" default:"1048576" help:"Minimum output size, in bytes, before it is archived"`
}

func (p *Proxy) Run(logger *slog.Logger) error {
	handler := &proxyserver.Handler{
		IDevicePath: p.IDevicePath,
		Logger:      logger,
	}

	if p.Storage != "" {
		store, err := audit.Open(p.Storage)
		if err != nil {
			return fmt.Errorf("could not open audit log: %w", err)
		}

		handler.Audit = store
	}

	if p.ArchiveURL != "" {
		store, err := newArchiveStore(p.ArchiveURL)
		if err != nil {
			return fmt.Errorf("could not configure archive store: %w", err)
		}

		handler.Archive = proxyserver.ArchivePolicy{
			Store:    store,
			MinBytes: p.ArchiveMinBytes,
		}
	}

	logger.Info("proxy.listen", "port", p.Port, "idevice_path", p.IDevicePath)

	err := http.ListenAndServe(fmt.Sprintf(":%d", p.Port), handler) //nolint:gosec
	if err != nil {
		return fmt.Errorf("could not start proxy listener: %w", err)
	}

	return nil
}

func newArchiveStore(rawURL string) (cache.CacheStore, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" {
		return nil, fmt.Errorf("archive url %q has no scheme", rawURL)
	}

	factory, ok := cache.GetCacheStore(parsed.Scheme)
	if !ok {
		return nil, fmt.Errorf("no cache store registered for scheme %q", parsed.Scheme)
	}

	store, err := factory(rawURL)
	if err != nil {
		return nil, fmt.Errorf("could not build %q cache store: %w", parsed.Scheme, err)
	}

	return store, nil
}
