package rulepack

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxFileSize bounds the size of a rule pack file.
const MaxFileSize = 1 << 20

// Extensions lists the file extensions treated as rule packs.
var Extensions = []string{".yaml", ".yml"}

// IsPackFile reports whether path names a visible rule pack file.
func IsPackFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse decodes a single YAML rule pack and validates it. Unknown fields are
// rejected.
func Parse(data []byte) (*RulePack, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p RulePack
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty rule pack document")
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads and parses the rule pack at path.
func LoadFile(path string) (*RulePack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	p, err := Parse(data)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "invalid rule pack", Cause: err}
	}
	return p, nil
}

// LoadDir loads every rule pack file directly inside dir, in file name order.
// Files that fail to load are skipped; their errors are joined into the
// returned error alongside the packs that did load.
func LoadDir(dir string) ([]*RulePack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to read directory", Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && IsPackFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	packs := []*RulePack{}
	seen := make(map[string]string)
	var errs []error
	for _, name := range names {
		path := filepath.Join(dir, name)
		p, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if other, dup := seen[p.ID]; dup {
			errs = append(errs, &LoadError{
				FilePath: path,
				Message:  fmt.Sprintf("pack id %q already defined in %s", p.ID, other),
			})
			continue
		}
		seen[p.ID] = path
		packs = append(packs, p)
	}
	return packs, errors.Join(errs...)
}

// Marshal encodes p as YAML.
func Marshal(p *RulePack) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
