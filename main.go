package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/jtarchie/labdeviceproxy/argspec"
	"github.com/jtarchie/labdeviceproxy/client"
	"github.com/jtarchie/labdeviceproxy/commands"
)

// CLI is the proxy-server-side binary: it runs either the device-proxy
// listener or the command-history dashboard. The impersonated-tool
// client path (adb, ideviceinfo, ...) never reaches this struct; it is
// dispatched directly from main, below.
type CLI struct {
	Proxy  commands.Proxy  `cmd:"" help:"Run the lab device proxy listener"`
	Server commands.Server `cmd:"" help:"Run the command-history dashboard"`

	LogLevel  slog.Level `default:"info" env:"LAB_DEVICE_PROXY_LOG_LEVEL"  help:"Set the log level (debug, info, warn, error)"`
	AddSource bool       `env:"LAB_DEVICE_PROXY_ADD_SOURCE"                 help:"Add source code location to log messages"`
	LogFormat string     `default:"text" env:"LAB_DEVICE_PROXY_LOG_FORMAT" enum:"text,json" help:"Set the log format (text, json)"`
}

func main() {
	if isClientInvocation(os.Args) {
		os.Exit(client.Run(os.Args, os.Stdout, os.Stderr))
	}

	cli := &CLI{}
	ctx := kong.Parse(cli)

	if cli.LogFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	}

	err := ctx.Run(slog.Default())
	ctx.FatalIfErrorf(err)
}

// isClientInvocation decides whether this process was exec'd under
// one of the impersonated device-tool names (via a symlink to this
// binary, the deployment's normal arrangement), or under a name
// containing "lab_device_proxy_client", which runs as the client
// directly (and may then take a leading "--url URL" pair).
func isClientInvocation(argv []string) bool {
	if len(argv) == 0 {
		return false
	}

	if argspec.IsCommand(filepath.Base(argv[0])) {
		return true
	}

	return strings.Contains(argv[0], "lab_device_proxy_client")
}
