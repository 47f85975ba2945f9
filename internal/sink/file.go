package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kgbuilder/internal/util/jsonutil"
)

// JSONFile writes the finalized node list to a local file.
type JSONFile struct {
	Path string
}

func NewJSONFile(path string) *JSONFile { return &JSONFile{Path: strings.TrimSpace(path)} }

func (f *JSONFile) Name() string { return "file" }
func (f *JSONFile) Close() error { return nil }

func (f *JSONFile) Write(_ context.Context, b Batch) error {
	raw, err := EncodeNodes(b)
	if err != nil {
		return err
	}
	return writeAtomic(f.Path, raw)
}

// EncodeNodes renders the node list the way kg_final.json stores it.
func EncodeNodes(b Batch) ([]byte, error) {
	return jsonutil.MarshalNoEscapeIndent(NormalizeForUpsert(b.Nodes, time.Now().UTC()), "", "  ")
}

func writeAtomic(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
