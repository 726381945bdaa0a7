// Package uploads deletes message image files on behalf of the realtime
// engine. References arrive from message content and are never trusted: a
// deletion only happens when the reference resolves to a file inside the
// configured uploads directory.
package uploads

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideUploadsDir is returned for references that escape the uploads
// directory.
var ErrOutsideUploadsDir = errors.New("reference resolves outside the uploads directory")

type Remover struct {
	dir    string // absolute
	logger *slog.Logger
}

func NewRemover(dir string, logger *slog.Logger) (*Remover, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	return &Remover{
		dir:    abs,
		logger: logger.With(slog.String("component", "uploads")),
	}, nil
}

// refPrefix is how image content references the serving path of message
// uploads.
const refPrefix = "/uploads/messages/"

// resolve maps a content reference (e.g. "/uploads/messages/abc.png", or a
// bare filename) to an absolute path, rejecting anything that escapes the
// uploads directory.
func (r *Remover) resolve(ref string) (string, error) {
	name := strings.TrimPrefix(ref, refPrefix)
	name = strings.TrimPrefix(name, "/")
	path := filepath.Join(r.dir, name)
	if !strings.HasPrefix(path, r.dir+string(filepath.Separator)) {
		return "", ErrOutsideUploadsDir
	}
	return path, nil
}

// Remove deletes the referenced file. A missing file is not an error.
func (r *Remover) Remove(ref string) error {
	path, err := r.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
