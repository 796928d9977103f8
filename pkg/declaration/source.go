package declaration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned when a source file has an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported declaration file format")

// Source supplies an ordered snapshot of declarations. Callers load once per
// audit run and never re-fetch while the run is in progress.
type Source interface {
	Load(ctx context.Context) ([]*Declaration, error)
}

// FileSource reads declarations from a JSON or YAML file. The file may hold a
// bare list or an object with a "declarations" key.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

type declarationEnvelope struct {
	Declarations []*Declaration `json:"declarations" yaml:"declarations"`
}

// Load reads and decodes the file.
func (s *FileSource) Load(ctx context.Context) ([]*Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations file: %w", err)
	}

	decls, err := Parse(data, filepath.Ext(s.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	return decls, nil
}

// Parse decodes declarations from data. ext selects the decoder (".json",
// ".yaml" or ".yml").
func Parse(data []byte, ext string) ([]*Declaration, error) {
	switch strings.ToLower(ext) {
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var decls []*Declaration
			if err := json.Unmarshal(data, &decls); err != nil {
				return nil, err
			}
			return decls, nil
		}
		var env declarationEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return env.Declarations, nil

	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return nil, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			var decls []*Declaration
			if err := node.Decode(&decls); err != nil {
				return nil, err
			}
			return decls, nil
		}
		var env declarationEnvelope
		if err := node.Decode(&env); err != nil {
			return nil, err
		}
		return env.Declarations, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// MemorySource serves a fixed slice of declarations.
type MemorySource struct {
	Declarations []*Declaration
}

// Load returns a copy of the backing slice.
func (s *MemorySource) Load(ctx context.Context) ([]*Declaration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*Declaration, len(s.Declarations))
	copy(out, s.Declarations)
	return out, nil
}
