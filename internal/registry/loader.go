package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"medchatd/internal/common/fsutil"
	"medchatd/pkg/types"
)

// ErrNoModel is returned when a directory holds no *.gguf artifact.
var ErrNoModel = errors.New("no .gguf model found")

var quantRE = regexp.MustCompile(`(?i)\b(Q\d+(?:_[A-Z0-9]+)*|F16|F32|BF16)\b`)

// GGUFScanner discovers GGUF artifacts on disk.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan lists *.gguf files (case-insensitive) in dir, sorted by name.
// Subdirectories are not descended into.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	abs, err := fsutil.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		m, err := describe(filepath.Join(abs, e.Name()))
		if err != nil {
			continue
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with a default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Resolve turns a configured model path into a concrete artifact. A file is
// used as-is; a directory yields its first *.gguf by name.
func Resolve(path string) (types.Model, error) {
	abs, err := fsutil.ExpandPath(path)
	if err != nil {
		return types.Model{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return types.Model{}, fmt.Errorf("model path: %w", err)
	}
	if !fi.IsDir() {
		return describe(abs)
	}
	models, err := LoadDir(abs)
	if err != nil {
		return types.Model{}, err
	}
	if len(models) == 0 {
		return types.Model{}, fmt.Errorf("%s: %w", abs, ErrNoModel)
	}
	return models[0], nil
}

func describe(path string) (types.Model, error) {
	fi, err := fsutil.RegularFile(path)
	if err != nil {
		return types.Model{}, err
	}
	name := filepath.Base(path)
	return types.Model{
		ID:        name,
		Path:      path,
		SizeBytes: fi.Size(),
		Quant:     strings.ToUpper(quantRE.FindString(strings.TrimSuffix(name, filepath.Ext(name)))),
	}, nil
}
