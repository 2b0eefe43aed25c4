package pack

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func testMetadata() Metadata {
	return Metadata{
		Name:        "Test Pack",
		Format:      "png",
		Description: "Test description",
		Generator:   "spheretex",
		Version:     "1.0",
		Created:     "2026-08-27T00:00:00Z",
	}
}

func earthKey() Key {
	return Key{Type: "earth", Palette: "earth_default", Width: 256, Height: 128, Seed: 42}
}

func TestWriter_New(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	// Verify database file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}

	// Verify schema exists
	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='textures'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected textures table to exist, got count=%d", count)
	}

	// Verify metadata was inserted
	err = w.db.QueryRow("SELECT COUNT(*) FROM metadata").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query metadata: %v", err)
	}
	if count == 0 {
		t.Error("Expected metadata to be inserted")
	}
}

func TestWriter_WriteTexture(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	data := []byte("fake png data")
	if err := w.WriteTexture(earthKey(), data); err != nil {
		t.Fatalf("Failed to write texture: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM textures").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query textures: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 texture, got %d", count)
	}

	// Stored blob must be gzip-compressed, not the raw data.
	var blob []byte
	err = w.db.QueryRow("SELECT texture_data FROM textures WHERE texture_type=?", "earth").Scan(&blob)
	if err != nil {
		t.Fatalf("Failed to read texture: %v", err)
	}
	if bytes.Equal(blob, data) {
		t.Error("Expected stored data to be compressed")
	}
}

func TestWriter_BatchFlush(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	// More entries than the batch size to force an automatic flush.
	data := []byte("fake png data")
	for i := 0; i < DefaultBatchSize+5; i++ {
		key := earthKey()
		key.Seed = int64(i)
		if err := w.WriteTexture(key, data); err != nil {
			t.Fatalf("Failed to write texture %d: %v", i, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// Re-open and verify all textures were written
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM textures").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query textures: %v", err)
	}
	if count != DefaultBatchSize+5 {
		t.Errorf("Expected %d textures, got %d", DefaultBatchSize+5, count)
	}
}

func TestWriter_ReplaceExisting(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	if err := w.WriteTexture(earthKey(), []byte("first version")); err != nil {
		t.Fatalf("Failed to write first texture: %v", err)
	}
	w.Flush()

	if err := w.WriteTexture(earthKey(), []byte("second version")); err != nil {
		t.Fatalf("Failed to write second texture: %v", err)
	}
	w.Flush()

	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM textures").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query textures: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 texture (replaced), got %d", count)
	}
}

func TestReader_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	data := []byte("fake png data for round trip")
	if err := w.WriteTexture(earthKey(), data); err != nil {
		t.Fatalf("Failed to write texture: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadTexture(earthKey())
	if err != nil {
		t.Fatalf("Failed to read texture: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Round trip mismatch: got %q, want %q", got, data)
	}

	meta, err := r.Metadata()
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if meta.Name != "Test Pack" {
		t.Errorf("Expected metadata name 'Test Pack', got %q", meta.Name)
	}
	if meta.Generator != "spheretex" {
		t.Errorf("Expected generator 'spheretex', got %q", meta.Generator)
	}
}

func TestReader_MissingTexture(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadTexture(earthKey()); err == nil {
		t.Error("Expected error reading missing texture")
	}
}

func TestReader_Keys(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.pack")

	w, err := NewWriter(dbPath, testMetadata())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	keys := []Key{
		{Type: "earth", Palette: "earth_default", Width: 256, Height: 128, Seed: 1},
		{Type: "gas_giant", Palette: "jupiter", Width: 256, Height: 128, Seed: 1},
		{Type: "marble", Palette: "marble_classic", Width: 256, Height: 128, Seed: 1},
	}
	for _, k := range keys {
		if err := w.WriteTexture(k, []byte("data")); err != nil {
			t.Fatalf("Failed to write %s: %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(dbPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	got, err := r.Keys()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if len(got) != len(keys) {
		t.Fatalf("Expected %d keys, got %d", len(keys), len(got))
	}
	for _, k := range got {
		if k.Width != 256 || k.Height != 128 {
			t.Errorf("Unexpected key dimensions: %s", k)
		}
	}
}
