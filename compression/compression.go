// Package compression provides a uniform compress/decompress facade over
// the four algorithms an MDD container may use for its payload chunk.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz/lzma"
)

// Algorithm selects a compression scheme. Algorithm names used on the wire
// (see Name) are case-sensitive lowercase.
type Algorithm int

// ENUM(None, Lzma, Gzip, Zstd)
const (
	None Algorithm = iota
	Lzma
	Gzip
	Zstd
)

// Name returns the wire-format algorithm name, matching the
// Chunk.compression_algorithm strings an MDD descriptor carries.
func (a Algorithm) Name() string {
	switch a {
	case Lzma:
		return "lzma"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return ""
	}
}

// ParseAlgorithm maps a wire algorithm name back to an Algorithm. An empty
// string maps to None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lzma":
		return Lzma, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

var (
	// ErrUnknownAlgorithm is returned by ParseAlgorithm for unrecognised names.
	ErrUnknownAlgorithm = fmt.Errorf("unknown compression algorithm")
)

// Compress encodes data with the given algorithm. None returns data
// unchanged.
func Compress(data []byte, alg Algorithm) ([]byte, error) {
	switch alg {
	case None:
		return data, nil
	case Lzma:
		return compressLzma(data)
	case Gzip:
		return compressGzip(data)
	case Zstd:
		return compressZstd(data)
	default:
		return nil, fmt.Errorf("%w: algorithm %d", ErrUnknownAlgorithm, alg)
	}
}

// Decompress decodes data with the given algorithm name, matching the
// MDD Chunk.compression_algorithm wire values. An unrecognised name fails
// with ErrUnknownAlgorithm.
func Decompress(data []byte, algName string) ([]byte, error) {
	alg, err := ParseAlgorithm(algName)
	if err != nil {
		return nil, err
	}
	switch alg {
	case None:
		return data, nil
	case Lzma:
		return decompressLzma(data)
	case Gzip:
		return decompressGzip(data)
	case Zstd:
		return decompressZstd(data)
	default:
		return nil, fmt.Errorf("%w: algorithm %q", ErrUnknownAlgorithm, algName)
	}
}

// lzmaPresetDictCap is the dictionary capacity xz's preset level 6 uses
// (8 MiB); the downstream runtime's decoder was sized against that preset.
const lzmaPresetDictCap = 1 << 23

// compressLzma writes the classic LZMA-ALONE container (not the .xz
// container): this is what the downstream runtime's decoder hard-codes.
// Using xz.NewWriter here instead would be wire-incompatible and is a bug.
func compressLzma(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{DictCap: lzmaPresetDictCap}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressLzma(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return out, nil
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return out, nil
}

func compressZstd(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(3)))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer w.Close()
	return w.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer r.Close()
	out, err := r.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}
