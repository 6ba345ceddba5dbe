// Package convert is the top-level conversion orchestrator: it detects a
// file's format from its extension, parses it into the canonical IR,
// optionally filters the result by audience, and writes it out in any
// other supported format. Every cross-format conversion in this system
// goes parse -> (filter) -> write through this package; no pair of formats
// talks to each other directly.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/bburda42dot/diag-converter-sub001/compression"
	"github.com/bburda42dot/diag-converter-sub001/ir"
	"github.com/bburda42dot/diag-converter-sub001/mdd"
	"github.com/bburda42dot/diag-converter-sub001/odx"
	"github.com/bburda42dot/diag-converter-sub001/pdx"
	"github.com/bburda42dot/diag-converter-sub001/yamlcfg"
)

// Format is one of the four file representations this system converts
// between.
type Format int

// ENUM(Odx, Pdx, Yaml, Mdd)
const (
	FormatOdx Format = iota
	FormatPdx
	FormatYaml
	FormatMdd
)

func (f Format) String() string {
	switch f {
	case FormatOdx:
		return "ODX"
	case FormatPdx:
		return "PDX"
	case FormatYaml:
		return "YAML"
	case FormatMdd:
		return "MDD"
	default:
		return "UNKNOWN"
	}
}

// DetectFormat maps a file's extension to its Format, per spec.md §4.8
// (".odx|.pdx|.yml|.yaml|.mdd").
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".odx":
		return FormatOdx, nil
	case ".pdx":
		return FormatPdx, nil
	case ".yml", ".yaml":
		return FormatYaml, nil
	case ".mdd":
		return FormatMdd, nil
	default:
		return 0, fmt.Errorf("convert: cannot detect format from extension of %q", path)
	}
}

// ErrPdxWriteUnsupported is returned for any attempt to write a PDX output.
// This system's PDX support is reader-only (component C6 of spec.md); no
// component ever constructs a PDX archive.
var ErrPdxWriteUnsupported = fmt.Errorf("convert: writing PDX output is not supported")

// ParseFile reads path and converts it to a DiagDatabase according to its
// detected Format.
func ParseFile(path string) (*ir.DiagDatabase, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	return ParseFileAs(path, format)
}

// ParseFileAs reads path and converts it to a DiagDatabase, using format
// rather than detecting it from the extension.
func ParseFileAs(path string, format Format) (*ir.DiagDatabase, error) {
	switch format {
	case FormatOdx:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("convert: read %s: %w", path, err)
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(data); err != nil {
			return nil, fmt.Errorf("convert: parse ODX %s: %w", path, err)
		}
		return odx.Parse(doc)
	case FormatPdx:
		db, err := pdx.Read(path)
		if err != nil {
			return nil, fmt.Errorf("convert: parse PDX %s: %w", path, err)
		}
		return db, nil
	case FormatYaml:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("convert: read %s: %w", path, err)
		}
		db, err := yamlcfg.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("convert: parse YAML %s: %w", path, err)
		}
		return db, nil
	case FormatMdd:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("convert: read %s: %w", path, err)
		}
		_, payload, err := mdd.Read(data)
		if err != nil {
			return nil, fmt.Errorf("convert: read MDD %s: %w", path, err)
		}
		db, err := mdd.DecodeDatabase(payload)
		if err != nil {
			return nil, fmt.Errorf("convert: decode MDD schema %s: %w", path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("convert: unknown format %v", format)
	}
}

// WriteOptions configures WriteFile's MDD output; it is ignored for every
// other format.
type WriteOptions struct {
	Compression compression.Algorithm
	Sign        bool
}

// WriteFile serialises db to path according to its detected Format.
func WriteFile(db *ir.DiagDatabase, path string, opts WriteOptions) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	return WriteFileAs(db, path, format, opts)
}

// WriteFileAs serialises db to path in the given format.
func WriteFileAs(db *ir.DiagDatabase, path string, format Format, opts WriteOptions) error {
	var data []byte
	var err error

	switch format {
	case FormatOdx:
		data, err = odx.Write(db)
	case FormatPdx:
		return ErrPdxWriteUnsupported
	case FormatYaml:
		data, err = yamlcfg.Write(db)
	case FormatMdd:
		payload := mdd.EncodeDatabase(db)
		data, err = mdd.Write(payload, mdd.WriteOptions{
			Version:              db.Version,
			EcuName:              db.EcuName,
			Revision:             db.Revision,
			CompressionAlgorithm: opts.Compression,
			Sign:                 opts.Sign,
		})
	default:
		return fmt.Errorf("convert: unknown format %v", format)
	}
	if err != nil {
		return fmt.Errorf("convert: write %v %s: %w", format, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("convert: write %s: %w", path, err)
	}
	return nil
}

// Options configures Convert.
type Options struct {
	// Audience, when non-empty, filters the parsed database (see
	// ir.FilterByAudience) before it is written out.
	Audience string
	Write    WriteOptions
	// Overwrite allows Convert to replace an existing destination file.
	// Without it, Convert refuses to clobber a pre-existing dst.
	Overwrite bool
}

// ErrDestinationExists is returned by Convert when dst already exists and
// Options.Overwrite is false.
var ErrDestinationExists = fmt.Errorf("convert: destination already exists")

// Convert parses src, optionally filters the result by audience, and
// writes it to dst. Both formats are auto-detected from their extensions.
// Every pair of formats this system supports is expressed as this single
// parse -> filter -> write pipeline through the IR.
func Convert(src, dst string, opts Options) error {
	if !opts.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	db, err := ParseFile(src)
	if err != nil {
		return err
	}
	if opts.Audience != "" {
		ir.FilterByAudience(db, opts.Audience)
	}
	return WriteFile(db, dst, opts.Write)
}
