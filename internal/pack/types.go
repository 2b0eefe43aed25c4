// Package pack provides SQLite-backed texture pack files for storing and
// retrieving batches of generated sphere textures.
package pack

import "fmt"

// Key identifies a texture within a pack.
type Key struct {
	Type    string // texture type name (earth, gas_giant, marble)
	Palette string // palette name the texture was rendered with
	Width   int
	Height  int
	Seed    int64
}

// String renders the key in the form used in error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%dx%d/seed=%d", k.Type, k.Palette, k.Width, k.Height, k.Seed)
}

// Metadata contains pack-level metadata fields.
type Metadata struct {
	Name        string // Human-readable pack identifier
	Format      string // Texture data type (png, jpg)
	Description string // Human-readable description
	Generator   string // Tool that produced the pack
	Version     string // Version string
	Created     string // Creation timestamp (RFC 3339)
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Generator != "" {
		result["generator"] = m.Generator
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.Created != "" {
		result["created"] = m.Created
	}

	return result
}
