package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

const importsTable = "genefacet_imports"

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Equal reports whether two fingerprints identify the same file contents.
// Modification times compare at microsecond precision, as stored.
func (f FileFingerprint) Equal(other FileFingerprint) bool {
	return f.Path == other.Path &&
		f.Size == other.Size &&
		f.ModTime.Truncate(time.Microsecond).Equal(other.ModTime.Truncate(time.Microsecond))
}

// Import describes one written gene table.
type Import struct {
	Table         string
	Source        FileFingerprint
	SchemaVersion string
	Selection     string
	Genes         int
	ImportedAt    time.Time
}

// Current reports whether the import was made from the same source file,
// schema and selection.
func (im Import) Current(source FileFingerprint, schemaVersion, selection string) bool {
	return im.Source.Equal(source) && im.SchemaVersion == schemaVersion && im.Selection == selection
}

// RecordImport stores the provenance of a written table, replacing any
// earlier record for it.
func (s *Store) RecordImport(im Import) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO `+importsTable+` VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		im.Table, im.Source.Path, im.Source.Size, im.Source.ModTime.UTC(),
		im.SchemaVersion, im.Selection, int64(im.Genes), im.ImportedAt.UTC())
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// LookupImport returns the provenance of a table. The boolean is false when
// the table was never recorded.
func (s *Store) LookupImport(table string) (Import, bool, error) {
	im := Import{Table: table}
	var genes int64
	err := s.db.QueryRow(`SELECT source, source_size, source_mtime, schema_version, selection, genes, imported_at
		FROM `+importsTable+` WHERE table_name = ?`, table).Scan(
		&im.Source.Path, &im.Source.Size, &im.Source.ModTime,
		&im.SchemaVersion, &im.Selection, &genes, &im.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, false, nil
	}
	if err != nil {
		return Import{}, false, fmt.Errorf("lookup import: %w", err)
	}
	im.Genes = int(genes)
	return im, true, nil
}
