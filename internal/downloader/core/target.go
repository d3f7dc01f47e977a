package core

import (
	"net/url"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

// Target describes a single downloadable asset.
type Target struct {
	Name         string
	URL          string
	Dir          string
	ExpectedSize int64
	Checksum     string
}

// FileName is the final path segment of the target URL.
func (t Target) FileName() (string, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid download url %q", t.URL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", errors.Errorf("download url %q has no file name", t.URL)
	}
	return name, nil
}

// LocalPath is where the target is written on disk.
func (t Target) LocalPath() (string, error) {
	name, err := t.FileName()
	if err != nil {
		return "", err
	}
	return filepath.Join(t.Dir, name), nil
}
