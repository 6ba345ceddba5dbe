// Package mdd implements the MDD binary container: a fixed ASCII magic
// header followed by a length-delimited protobuf-wire-format descriptor
// that frames a list of chunks, the first DiagnosticDescription chunk
// carrying the actual payload a runtime loader wants.
package mdd

import (
	"bytes"
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/bburda42dot/diag-converter-sub001/compression"
)

// Magic is the 20-byte header every MDD file starts with: 19 printable
// ASCII characters padded with spaces, followed by a NUL terminator.
const Magic = "MDD version 0      \x00"

const magicLen = len(Magic)

// SignatureAlgorithmSHA512 is the only integrity algorithm this codec
// understands; any other Signature.Algorithm value present on a chunk is
// preserved but not checked.
const SignatureAlgorithmSHA512 = "sha512_uncompressed"

var (
	// ErrInvalidMagic is returned when the input is shorter than the magic
	// header or the header bytes don't match.
	ErrInvalidMagic = errors.New("mdd: invalid magic header")
	// ErrNoDescriptionChunk is returned when the descriptor has no chunk of
	// type DiagnosticDescription.
	ErrNoDescriptionChunk = errors.New("mdd: no diagnostic description chunk")
	// ErrSignatureMismatch is returned when a chunk's sha512_uncompressed
	// signature does not match its decompressed payload.
	ErrSignatureMismatch = errors.New("mdd: signature mismatch")
)

func init() {
	if magicLen != 20 {
		panic(fmt.Sprintf("mdd: magic header must be 20 bytes, got %d", magicLen))
	}
}

// ExtraChunk is a caller-supplied chunk appended after the mandatory
// description chunk, used to bundle job-jar payloads alongside the
// diagnostic description.
type ExtraChunk struct {
	Type ChunkType
	Name string
	Data []byte
}

// WriteOptions configures Write.
type WriteOptions struct {
	Version              string
	EcuName              string
	Revision             string
	Metadata             map[string]string
	FeatureFlags         uint64
	CompressionAlgorithm compression.Algorithm
	Sign                 bool
	ExtraChunks          []ExtraChunk
}

// Write encodes payload (the diagnostic-description binary-schema blob) as
// an MDD file per the configured options.
func Write(payload []byte, opts WriteOptions) ([]byte, error) {
	compressed, err := compression.Compress(payload, opts.CompressionAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("mdd: compress description chunk: %w", err)
	}

	descChunk := Chunk{
		Type:     ChunkTypeDiagnosticDescription,
		MimeType: "application/x-flatbuffers",
		Data:     compressed,
	}
	if opts.CompressionAlgorithm != compression.None {
		descChunk.CompressionAlgorithm = opts.CompressionAlgorithm.Name()
		descChunk.HasUncompressedSize = true
		descChunk.UncompressedSize = uint64(len(payload))
	}
	if opts.Sign {
		sum := sha512.Sum512(payload)
		descChunk.Signatures = append(descChunk.Signatures, Signature{
			Algorithm: SignatureAlgorithmSHA512,
			Value:     sum[:],
		})
	}

	chunks := []Chunk{descChunk}
	for _, extra := range opts.ExtraChunks {
		chunks = append(chunks, Chunk{
			Type: extra.Type,
			Name: extra.Name,
			Data: extra.Data,
		})
	}

	file := &MddFile{
		Version:      opts.Version,
		EcuName:      opts.EcuName,
		Revision:     opts.Revision,
		Metadata:     opts.Metadata,
		Chunks:       chunks,
		FeatureFlags: opts.FeatureFlags,
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.Write(file.encode())
	return buf.Bytes(), nil
}

// Read parses an MDD file, returning the decoded descriptor and the
// decompressed payload of its first DiagnosticDescription chunk.
func Read(data []byte) (*MddFile, []byte, error) {
	if len(data) < magicLen || string(data[:magicLen]) != Magic {
		return nil, nil, ErrInvalidMagic
	}
	file, err := decodeMddFile(data[magicLen:])
	if err != nil {
		return nil, nil, err
	}

	for i := range file.Chunks {
		chunk := &file.Chunks[i]
		if chunk.Type != ChunkTypeDiagnosticDescription {
			continue
		}
		payload, err := decodeChunkPayload(chunk)
		if err != nil {
			return nil, nil, err
		}
		if err := verifyChunkSignatures(chunk, payload); err != nil {
			return nil, nil, err
		}
		return file, payload, nil
	}
	return nil, nil, ErrNoDescriptionChunk
}

// decodeChunkPayload decompresses a chunk's data. A chunk with no
// compression_algorithm and fewer than 4 bytes of data is treated as
// malformed rather than silently passed through; otherwise the reader
// falls back to trying LZMA first, then raw passthrough, for producers
// that omit the field.
func decodeChunkPayload(chunk *Chunk) ([]byte, error) {
	if chunk.CompressionAlgorithm != "" {
		return compression.Decompress(chunk.Data, chunk.CompressionAlgorithm)
	}
	if len(chunk.Data) < 4 {
		return nil, fmt.Errorf("mdd: chunk %q has no compression_algorithm and too little data to be raw", chunk.Name)
	}
	if out, err := compression.Decompress(chunk.Data, "lzma"); err == nil {
		return out, nil
	}
	return chunk.Data, nil
}

func verifyChunkSignatures(chunk *Chunk, payload []byte) error {
	for _, sig := range chunk.Signatures {
		if sig.Algorithm != SignatureAlgorithmSHA512 {
			continue
		}
		sum := sha512.Sum512(payload)
		if !bytes.Equal(sum[:], sig.Value) {
			return ErrSignatureMismatch
		}
	}
	return nil
}
