package nodewrapper

import (
	"errors"
	"io/fs"
	"os"
)

var (
	// ErrSourceMissing is matched when a source directory does not exist.
	ErrSourceMissing = errors.New("no such file or directory")
	// ErrNotDirectory is matched when a source path is not a directory.
	ErrNotDirectory = errors.New("Not a directory")
)

// SourceError reports an unusable source directory. The message always
// starts with the path.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }

func checkSource(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &SourceError{Path: path, Err: ErrSourceMissing}
	case err != nil:
		return &SourceError{Path: path, Err: err}
	case !info.IsDir():
		return &SourceError{Path: path, Err: ErrNotDirectory}
	}
	return nil
}
