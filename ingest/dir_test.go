package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/inventory"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeGzip(t *testing.T, dir, name, content string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func TestDirSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Customer.csv", "\ufeffCID,FNAME1,LNAME\nC001,Alice,Smith\nC002,Bob\n")
	writeFile(t, dir, "inventory.csv", "IID,CID,PIF,SUBTOTAL\nO1,C001,Y,12.50\n")
	writeGzip(t, dir, "pricelist.csv.gz", "item_id,name,baseprice\nP1,Wool Suit,15\n")
	writeFile(t, dir, "notes.csv", "a,b\n1,2\n")
	writeFile(t, dir, "README.md", "not a table")

	src := NewDirSource(dir, zap.NewNop().Sugar())
	raw, err := src.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, raw["customer"], 2)
	assert.Equal(t, "Alice", raw["customer"][0]["FNAME1"])
	assert.Equal(t, "C001", raw["customer"][0]["CID"], "BOM must be stripped from the first header")
	_, hasLast := raw["customer"][1]["LNAME"]
	assert.False(t, hasLast, "short record leaves trailing columns unset")

	require.Len(t, raw["inventory"], 1)
	require.Len(t, raw["pricelist"], 1)
	assert.Equal(t, "Wool Suit", raw["pricelist"][0]["name"])
	assert.NotContains(t, raw, "notes")

	d, _ := inventory.Parse(raw)
	assert.Len(t, d.Customers, 2)
	assert.Len(t, d.Orders, 1)
	assert.Len(t, d.Products, 1)
}

func TestDirSource_SkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "customer.csv", "CID,FNAME1\nC001,Alice\n")
	writeFile(t, dir, "detail.csv.gz", "this is not gzip")

	raw, err := NewDirSource(dir, zap.NewNop().Sugar()).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw["customer"], 1)
	assert.NotContains(t, raw, "detail")
}

func TestDirSource_MissingDirectory(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope"), zap.NewNop().Sugar()).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDirSource_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "customer.csv", "CID\nC001\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDirSource(dir, zap.NewNop().Sugar()).Fetch(ctx)
	assert.Error(t, err)
}

func TestTableStem(t *testing.T) {
	tests := []struct {
		name string
		stem string
		ok   bool
	}{
		{"customer.csv", "customer", true},
		{"Detail.CSV", "Detail", true},
		{"pricelist.csv.gz", "pricelist", true},
		{"data.json", "", false},
	}
	for _, tt := range tests {
		stem, ok := TableStem(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.stem, stem, tt.name)
	}
}

func TestReadCSV(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		rows, err := ReadCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("quoted fields", func(t *testing.T) {
		rows, err := ReadCSV(strings.NewReader("name,baseprice\n\"Suit, 2pc\",\"1,200\"\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Suit, 2pc", rows[0]["name"])
		assert.Equal(t, 1200.0, inventory.Number(rows[0]["baseprice"]))
	})
}
