package pack

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
)

// Reader reads textures from a pack database.
type Reader struct {
	db   *sql.DB
	path string
}

// OpenReader opens a pack database for reading.
func OpenReader(path string) (*Reader, error) {
	// Open in read-only mode with immutable flag
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='textures'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain textures table")
	}

	return &Reader{
		db:   db,
		path: path,
	}, nil
}

// ReadTexture reads a texture from the database and returns the
// decompressed image data.
func (r *Reader) ReadTexture(key Key) ([]byte, error) {
	var compressedData []byte
	err := r.db.QueryRow(
		`SELECT texture_data FROM textures
		 WHERE texture_type=? AND palette=? AND width=? AND height=? AND seed=?`,
		key.Type, key.Palette, key.Width, key.Height, key.Seed,
	).Scan(&compressedData)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("texture not found: %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query texture: %w", err)
	}

	uncompressed, err := gzipDecompress(compressedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress texture: %w", err)
	}

	return uncompressed, nil
}

// Keys lists every texture key stored in the pack.
func (r *Reader) Keys() ([]Key, error) {
	rows, err := r.db.Query(`SELECT texture_type, palette, width, height, seed
		FROM textures ORDER BY texture_type, palette, width, seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to query texture keys: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.Type, &k.Palette, &k.Width, &k.Height, &k.Seed); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}

	return keys, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        metaMap["name"],
		Format:      metaMap["format"],
		Description: metaMap["description"],
		Generator:   metaMap["generator"],
		Version:     metaMap["version"],
		Created:     metaMap["created"],
	}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// gzipDecompress decompresses gzip data.
func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	uncompressed, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}

	return uncompressed, nil
}
