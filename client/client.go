// Package client implements the lab-device-proxy command-line client:
// a thin argv dispatcher that turns an impersonated invocation
// (adb, ideviceinfo, ...) into one chunked HTTP request against a
// proxy server and streams the response back onto stdout/stderr,
// returning the remote process's exit code.
package client

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jtarchie/labdeviceproxy/argspec"
)

// Run executes one proxied command. argv is the process's own
// os.Args; it is never mutated. It returns the process exit code.
func Run(argv []string, stdout, stderr *os.File) int {
	url, args := resolveURL(argv)

	if url == "" {
		cmd := ""
		if len(args) > 0 {
			cmd = args[0]
		}

		fmt.Fprintf(stderr, "The lab device proxy server URL is not set.\n\n"+
			"Either set the environment variable, e.g.:\n"+
			"  export LAB_DEVICE_PROXY_URL=http://mylab:8084\n"+
			"or invoke the proxy with a \"--url\" argument, e.g.:\n"+
			"  lab_device_proxy_client --url http://mylab:8084 %s ...\n", cmd)

		return 1
	}

	if !strings.Contains(url, "://") {
		url = "http://" + url
	}

	params, err := argspec.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 1
	}

	exitCode, hadExit, err := call(http.DefaultClient, url, params, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return 1
	}

	if !hadExit {
		fmt.Fprintln(stderr, "client: server sent no exit code")

		return 1
	}

	return exitCode
}

// resolveURL mirrors the original client's argv[0]/--url handling: a
// symlinked invocation (argv[0] == the impersonated tool name) takes
// the server URL purely from $LAB_DEVICE_PROXY_URL, while an
// unsymlinked invocation of this binary itself accepts a leading
// "--url URL" pair, for tests and callers who don't want to set up
// symlinks.
func resolveURL(argv []string) (url string, args []string) {
	args = append([]string(nil), argv...)
	url = os.Getenv("LAB_DEVICE_PROXY_URL")

	if len(args) > 0 && strings.Contains(args[0], "lab_device_proxy_client") {
		args = args[1:]

		if len(args) > 1 && args[0] == "--url" {
			url = args[1]
			args = args[2:]
		}
	}

	if len(args) > 0 {
		args[0] = filepath.Base(args[0])
	}

	return url, args
}
