// Package pdx reads PDX archives: ZIP containers holding one or more ODX
// files describing the same ECU (typically one diagnostic layer container
// plus shared COMPARAM-SPEC catalogues). Reading a PDX parses every .odx
// entry and merges the results into a single DiagDatabase.
package pdx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/bburda42dot/diag-converter-sub001/ir"
	"github.com/bburda42dot/diag-converter-sub001/odx"
)

// ErrNoOdxFiles is returned when a PDX archive contains no entries ending in
// ".odx" (case-insensitive).
var ErrNoOdxFiles = errors.New("no ODX files found in PDX archive")

// Read opens the PDX archive at path and returns its merged DiagDatabase.
func Read(path string) (*ir.DiagDatabase, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open PDX archive: %w", err)
	}
	defer r.Close()
	return readArchive(&r.Reader)
}

// ReadFromReader reads a PDX archive from an in-memory or otherwise
// seekable reader, for use by callers that already hold the archive bytes.
func ReadFromReader(r io.ReaderAt, size int64) (*ir.DiagDatabase, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open PDX archive: %w", err)
	}
	return readArchive(zr)
}

func readArchive(zr *zip.Reader) (*ir.DiagDatabase, error) {
	var merged *ir.DiagDatabase

	for _, f := range zr.File {
		if !isOdxEntry(f.Name) {
			continue
		}
		if !isSafePath(f.Name) {
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}

		db, err := parseEntry(f)
		if err != nil {
			return nil, fmt.Errorf("ODX parse error in %q: %w", f.Name, err)
		}

		if merged == nil {
			merged = db
		} else {
			merged = mergeDatabases(merged, db)
		}
	}

	if merged == nil {
		return nil, ErrNoOdxFiles
	}
	return merged, nil
}

func isOdxEntry(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".odx")
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func parseEntry(f *zip.File) (*ir.DiagDatabase, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return odx.Parse(doc)
}

// mergeDatabases folds other into base: the first non-empty metadata value
// wins, variants are deduplicated by short-name (first write wins), and
// DTCs are deduplicated by trouble code (first write wins).
func mergeDatabases(base, other *ir.DiagDatabase) *ir.DiagDatabase {
	if base.EcuName == "" {
		base.EcuName = other.EcuName
	}
	if base.Version == "" {
		base.Version = other.Version
	}
	if base.Revision == "" {
		base.Revision = other.Revision
	}

	seenVariants := make(map[string]bool, len(base.Variants))
	for _, v := range base.Variants {
		seenVariants[v.DiagLayer.ShortName] = true
	}
	for _, v := range other.Variants {
		if !seenVariants[v.DiagLayer.ShortName] {
			base.Variants = append(base.Variants, v)
			seenVariants[v.DiagLayer.ShortName] = true
		}
	}

	seenGroups := make(map[string]bool, len(base.FunctionalGroups))
	for _, fg := range base.FunctionalGroups {
		seenGroups[fg.DiagLayer.ShortName] = true
	}
	for _, fg := range other.FunctionalGroups {
		if !seenGroups[fg.DiagLayer.ShortName] {
			base.FunctionalGroups = append(base.FunctionalGroups, fg)
			seenGroups[fg.DiagLayer.ShortName] = true
		}
	}

	seenDtcs := make(map[uint32]bool, len(base.Dtcs))
	for _, d := range base.Dtcs {
		seenDtcs[d.TroubleCode] = true
	}
	for _, d := range other.Dtcs {
		if !seenDtcs[d.TroubleCode] {
			base.Dtcs = append(base.Dtcs, d)
			seenDtcs[d.TroubleCode] = true
		}
	}

	return base
}
