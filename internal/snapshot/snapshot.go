// Package snapshot reads and writes catalogue dumps: gzip-compressed JSON
// lines of the form {"kind":"categories","record":{...}}.
package snapshot

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"catalog-sync/internal/model"
)

// Snapshot is a full catalogue dump.
type Snapshot struct {
	Categories []model.Category
	Products   []model.Product
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Categories) + len(s.Products)
}

// Loader reads a snapshot from a named location.
type Loader interface {
	// Load reads the gzipped snapshot at path.
	Load(ctx context.Context, path string) (*Snapshot, error)
}

type line struct {
	Kind   model.Kind      `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// Decode reads a gzipped snapshot stream. Blank lines are ignored.
func Decode(ctx context.Context, r io.Reader) (*Snapshot, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	snap := &Snapshot{}

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		switch l.Kind {
		case model.KindCategory:
			var c model.Category
			if err := json.Unmarshal(l.Record, &c); err != nil {
				return nil, fmt.Errorf("line %d: invalid category: %w", lineNo, err)
			}
			snap.Categories = append(snap.Categories, c)
		case model.KindProduct:
			var p model.Product
			if err := json.Unmarshal(l.Record, &p); err != nil {
				return nil, fmt.Errorf("line %d: invalid product: %w", lineNo, err)
			}
			snap.Products = append(snap.Products, p)
		default:
			return nil, fmt.Errorf("line %d: unknown kind %q", lineNo, l.Kind)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return snap, nil
}

// Write encodes snap as gzipped JSON lines, categories first.
func Write(w io.Writer, snap *Snapshot) error {
	gzipWriter := gzip.NewWriter(w)
	enc := json.NewEncoder(gzipWriter)

	for i := range snap.Categories {
		if err := encodeLine(enc, model.KindCategory, &snap.Categories[i]); err != nil {
			return err
		}
	}
	for i := range snap.Products {
		if err := encodeLine(enc, model.KindProduct, &snap.Products[i]); err != nil {
			return err
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish snapshot: %w", err)
	}
	return nil
}

func encodeLine(enc *json.Encoder, kind model.Kind, rec any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	if err := enc.Encode(line{Kind: kind, Record: raw}); err != nil {
		return fmt.Errorf("failed to write %s: %w", kind, err)
	}
	return nil
}

// WriteFile writes snap to path atomically via a temporary file.
func WriteFile(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}
