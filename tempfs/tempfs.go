// Package tempfs manages the per-request scratch directory tree the
// server stages input and output files under.
package tempfs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FS is a single request's root directory plus its per-argument
// staging subdirectories. The root is created lazily on first Mkdir,
// matching the Python TempFileSystem's behavior of never creating a
// /tmp/proxy_* directory for a request that stages nothing.
type FS struct {
	root string
	dirs map[int]string
}

// New returns an FS with no directories created yet.
func New() *FS {
	return &FS{dirs: map[int]string{}}
}

// Mkdir returns the staging directory for argument index, creating
// the request root and the per-argument directory on first use.
func (fs *FS) Mkdir(index int) (string, error) {
	if dir, ok := fs.dirs[index]; ok {
		return dir, nil
	}

	if fs.root == "" {
		root, err := os.MkdirTemp("", "proxy_"+uuid.NewString()+"_")
		if err != nil {
			return "", fmt.Errorf("tempfs: creating request root: %w", err)
		}

		fs.root = root
	}

	dir := filepath.Join(fs.root, fmt.Sprintf("arg%d", index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("tempfs: creating staging directory for arg %d: %w", index, err)
	}

	fs.dirs[index] = dir

	return dir, nil
}

// Join resolves name within the staging directory for index, created
// via Mkdir if necessary, and rejects any result that would escape
// that directory.
func (fs *FS) Join(index int, name string) (string, error) {
	dir, err := fs.Mkdir(index)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, name)

	if target != dir && filepath.Dir(target) != dir {
		return "", fmt.Errorf("tempfs: %q escapes its staging directory", name)
	}

	return target, nil
}

// Cleanup recursively removes the request root, if one was ever
// created. It is safe to call unconditionally and more than once.
func (fs *FS) Cleanup() error {
	if fs.root == "" {
		return nil
	}

	if err := os.RemoveAll(fs.root); err != nil {
		return fmt.Errorf("tempfs: removing request root %q: %w", fs.root, err)
	}

	return nil
}
