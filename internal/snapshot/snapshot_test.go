package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"catalog-sync/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Categories: []model.Category{
			{Metadata: model.Metadata{ID: "C1", CreatedAt: 100, UpdatedAt: 100}, Name: "Drinks", Description: "Beverages"},
		},
		Products: []model.Product{
			{Metadata: model.Metadata{ID: "P1", CreatedAt: 200, UpdatedAt: 250}, Name: "Cola", Price: decimal.RequireFromString("1.99"), CategoryID: "C1", Stock: 12},
			{Metadata: model.Metadata{ID: "P2", CreatedAt: 300, UpdatedAt: 300}, Name: "Water", Price: decimal.Zero, CategoryID: "C1"},
		},
	}
}

// gzipLines compresses raw JSON lines for decoder tests.
func gzipLines(t *testing.T, lines ...string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	for _, l := range lines {
		_, err := w.Write([]byte(l + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf
}

func TestWriteThenDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSnapshot()))

	snap, err := Decode(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, 3, snap.Len())
	assert.Equal(t, "Beverages", snap.Categories[0].Description)
	assert.True(t, decimal.RequireFromString("1.99").Equal(snap.Products[0].Price))
	assert.Equal(t, int64(250), snap.Products[0].UpdatedAt)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		errorMsg string
	}{
		{
			name:     "Unknown kind",
			lines:    []string{`{"kind":"orders","record":{}}`},
			errorMsg: `line 1: unknown kind "orders"`,
		},
		{
			name:     "Malformed line",
			lines:    []string{`{"kind":"categories","record":{"id":"C1","name":"x"}}`, `not json`},
			errorMsg: "line 2",
		},
		{
			name:     "Malformed record",
			lines:    []string{`{"kind":"products","record":{"stock":"many"}}`},
			errorMsg: "invalid product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(context.Background(), gzipLines(t, tt.lines...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestDecode_SkipsBlankLines(t *testing.T) {
	snap, err := Decode(context.Background(), gzipLines(t,
		`{"kind":"categories","record":{"id":"C1","name":"Drinks"}}`,
		``,
		`{"kind":"products","record":{"id":"P1","name":"Cola","price":"2"}}`,
	))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
}

func TestDecode_NotGzip(t *testing.T) {
	_, err := Decode(context.Background(), bytes.NewBufferString(`{"kind":"categories"}`))
	assert.Error(t, err)
}

func TestWriteFile_AndFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "catalog.jsonl.gz")
	require.NoError(t, WriteFile(path, sampleSnapshot()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	snap, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, snap.Categories, 1)
	assert.Len(t, snap.Products, 2)
}

func TestFileLoader_MissingFile(t *testing.T) {
	_, err := NewFileLoader(zerolog.Nop()).Load(context.Background(), "/nonexistent/catalog.jsonl.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open snapshot file")
}
