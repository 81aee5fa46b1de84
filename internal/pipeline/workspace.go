package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// workspace is the scratch directory of a single render
type workspace struct {
	id   string
	dir  string
	keep bool
}

func newWorkspace(root string, keep bool) (*workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(root, "render-"+id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	return &workspace{id: id, dir: dir, keep: keep}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) cleanup() error {
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.dir)
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}
