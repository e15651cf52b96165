package datasource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/vanderheijden86/tasktree/pkg/loader"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// StdinIsPiped reports whether stdin is a pipe or file rather than a
// terminal.
func StdinIsPiped() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// ReaderSource replays one export read from a stream. The stream is read
// on the first Fetch; later fetches parse the same bytes again.
type ReaderSource struct {
	name        string
	r           io.Reader
	parentField string

	once sync.Once
	data []byte
	err  error
}

// NewReaderSource returns a source over r.
func NewReaderSource(name string, r io.Reader, parentField string) *ReaderSource {
	return &ReaderSource{name: name, r: r, parentField: parentField}
}

// Fetch implements Source.
func (s *ReaderSource) Fetch(ctx context.Context) ([]model.Task, error) {
	s.once.Do(func() {
		s.data, s.err = io.ReadAll(s.r)
	})
	if s.err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.name, s.err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loader.ParseExport(bytes.NewReader(s.data), loader.ParseOptions{ParentField: s.parentField})
}

// Describe implements Source.
func (s *ReaderSource) Describe() string {
	return s.name
}

// WatchPath implements Source. A stream cannot change.
func (s *ReaderSource) WatchPath() string {
	return ""
}

// FileSource reads a saved export file on every fetch.
type FileSource struct {
	path        string
	parentField string
}

// NewFileSource returns a source over the export file at path.
func NewFileSource(path, parentField string) *FileSource {
	return &FileSource{path: path, parentField: parentField}
}

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return loader.LoadExportFile(s.path, loader.ParseOptions{ParentField: s.parentField})
}

// Describe implements Source.
func (s *FileSource) Describe() string {
	return s.path
}

// WatchPath implements Source.
func (s *FileSource) WatchPath() string {
	return s.path
}

func validateFile(src *DataSource) error {
	info, err := os.Stat(src.Path)
	if err != nil {
		return fmt.Errorf("cannot stat export: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src.Path)
	}
	src.ModTime = info.ModTime()
	return nil
}
