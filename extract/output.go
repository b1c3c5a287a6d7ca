package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// DirMode is the permission used for output directories.
const DirMode os.FileMode = 0o775

// FileName returns the name of the file that holds the stream of the object
// at ordinal, counting from 1 over all objects.
func FileName(prefix string, ordinal int, ext string) string {
	return fmt.Sprintf("%s_%04d_0.%s", prefix, ordinal, ext)
}

// OutputDir returns the directory used for input when no explicit one is
// configured: "<input>.<suffix>_out".
func OutputDir(input, suffix string) string {
	return input + "." + suffix + "_out"
}

// PrepareDir removes dir with everything in it and creates it again empty.
func PrepareDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// FileSink is a buffered output file. Close flushes the buffer and syncs
// the file before closing it.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

// CreateFile creates (or truncates) the file at path.
func CreateFile(path string) (*FileSink, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Name returns the path the sink writes to.
func (s *FileSink) Name() string {
	return s.f.Name()
}

// Close flushes, syncs and closes the file. The file is closed even when an
// earlier step fails; the first error is returned.
func (s *FileSink) Close() error {
	err := s.w.Flush()
	if serr := s.f.Sync(); err == nil {
		err = serr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
