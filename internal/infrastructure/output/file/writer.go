package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

// Writer stores each snapshot as <dir>/<symbol>.json. Files are written to
// a temp file in the same directory and renamed into place, so readers see
// either the previous document or the new one.
type Writer struct {
	dir string
}

func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Name() string { return "file" }

// Path returns the file a symbol's document is written to.
func (w *Writer) Path(symbol string) string {
	return filepath.Join(w.dir, symbol+".json")
}

func (w *Writer) Write(ctx context.Context, symbol string, doc *model.Snapshot) error {
	if err := w.write(symbol, doc); err != nil {
		return &port.WriteError{Symbol: symbol, Err: err}
	}
	return nil
}

func (w *Writer) write(symbol string, doc *model.Snapshot) error {
	if err := validSymbol(symbol); err != nil {
		return err
	}
	b, err := Encode(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(w.dir, "."+symbol+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, w.Path(symbol))
}

// Encode renders a document as indented JSON with a trailing newline.
func Encode(doc *model.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read loads a previously written document.
func (w *Writer) Read(symbol string) (*model.Snapshot, error) {
	b, err := os.ReadFile(w.Path(symbol))
	if err != nil {
		return nil, err
	}
	var doc model.Snapshot
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func validSymbol(symbol string) error {
	switch {
	case strings.TrimSpace(symbol) == "":
		return errors.New("empty symbol")
	case strings.ContainsAny(symbol, `/\`) || symbol == "." || symbol == "..":
		return fmt.Errorf("symbol %q is not a valid file name", symbol)
	}
	return nil
}

var _ port.DocumentSink = (*Writer)(nil)
