package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned for a required config file that does not exist.
var ErrNotFound = errors.New("config file not found")

// File is a TOML file layer.
type File struct {
	fs       FileSystem
	path     string
	required bool
}

// NewFile creates a layer for the TOML file at path. A missing file is an
// ErrNotFound when required and an empty layer otherwise.
func NewFile(fsys FileSystem, path string, required bool) *File {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &File{fs: fsys, path: path, required: required}
}

// Name returns the file path.
func (f *File) Name() string {
	return f.path
}

// Load reads and decodes the file.
func (f *File) Load() (map[string]any, error) {
	data, err := f.fs.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if f.required {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.path)
		}
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return ParseTOML(f.path, data)
}

// ReadTOML decodes a TOML document from r.
func ReadTOML(source string, r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return ParseTOML(source, data)
}

// ParseTOML decodes one TOML document. Syntax errors come back as a
// *ParseError with the offending position.
func ParseTOML(source string, data []byte) (map[string]any, error) {
	var settings map[string]any
	err := toml.Unmarshal(data, &settings)
	if err == nil {
		return settings, nil
	}

	perr := &ParseError{Source: source, Err: err}
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		perr.Line, perr.Column = decodeErr.Position()
	}
	return nil, perr
}

// ParseError locates a TOML syntax error.
type ParseError struct {
	Source string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Source, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
