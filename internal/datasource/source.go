// Package datasource reads and writes card trees from JSON, JSONL, YAML and
// SQLite files, and merges several sources into one node set.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSON is a JSON array of nodes, or an object keyed by id
	SourceTypeJSON SourceType = "json"
	// SourceTypeJSONL is one JSON node per line
	SourceTypeJSONL SourceType = "jsonl"
	// SourceTypeYAML is a YAML list of nodes
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeSQLite is a SQLite database with nodes and edges tables
	SourceTypeSQLite SourceType = "sqlite"
)

// DataSource represents a file holding card tree nodes
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
	// NodeCount is the number of nodes in the source (set after loading)
	NodeCount int `json:"node_count"`
	// Valid indicates whether the source loaded without error
	Valid bool `json:"valid"`
	// ValidationError describes why loading failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// TypeForPath maps a file extension onto a source type.
func TypeForPath(path string) (SourceType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SourceTypeJSON, nil
	case ".jsonl", ".ndjson":
		return SourceTypeJSONL, nil
	case ".yaml", ".yml":
		return SourceTypeYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, nil
	}
	return "", fmt.Errorf("unsupported data file extension: %q", filepath.Ext(path))
}

// DetectSource stats path and returns a DataSource describing it.
func DetectSource(path string) (DataSource, error) {
	typ, err := TypeForPath(path)
	if err != nil {
		return DataSource{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory", path)
	}
	return DataSource{
		Type:    typ,
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
