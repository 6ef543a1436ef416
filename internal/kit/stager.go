package kit

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SpoolStager stages media into a spool directory with collision-safe names.
// The original file name only contributes its extension; content is copied,
// never linked, so the source can disappear immediately after staging.
type SpoolStager struct {
	Dir string
}

func NewSpoolStager(dir string) (*SpoolStager, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("spool dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &SpoolStager{Dir: dir}, nil
}

func (s *SpoolStager) Stage(ctx context.Context, src io.Reader, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := filepath.Ext(filepath.Base(name))
	f, err := os.CreateTemp(s.Dir, "staged-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
