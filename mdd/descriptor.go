package mdd

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// ChunkType mirrors the Chunk.type enum of the MDD descriptor: 0 is the
// mandatory diagnostic description payload, 1 and 2 carry auxiliary job
// jar data the runtime loader may also bundle.
type ChunkType int32

// ENUM(DiagnosticDescription, JarFile, JarFilePartial)
const (
	ChunkTypeDiagnosticDescription ChunkType = 0
	ChunkTypeJarFile               ChunkType = 1
	ChunkTypeJarFilePartial        ChunkType = 2
)

// String renders the chunk type the way MDD descriptors name it.
func (t ChunkType) String() string {
	switch t {
	case ChunkTypeDiagnosticDescription:
		return "DIAGNOSTIC_DESCRIPTION"
	case ChunkTypeJarFile:
		return "JAR_FILE"
	case ChunkTypeJarFilePartial:
		return "JAR_FILE_PARTIAL"
	default:
		return fmt.Sprintf("ChunkType(%d)", int32(t))
	}
}

// Signature is a cryptographic integrity tag attached to a Chunk.
type Signature struct {
	Algorithm string
	Value     []byte
}

// Chunk is one entry of an MddFile's chunk list.
type Chunk struct {
	Type                 ChunkType
	Name                 string
	Metadata             map[string]string
	Signatures           []Signature
	CompressionAlgorithm string
	HasUncompressedSize  bool
	UncompressedSize     uint64
	MimeType             string
	Data                 []byte
}

// MddFile is the length-delimited descriptor that follows the MDD magic
// header. Field numbers below are this project's own wire assignment: the
// MDD format has no externally generated .proto, so the descriptor is
// framed directly with protowire primitives (see encode and decodeMddFile
// below, called by Write and Read in mdd.go).
type MddFile struct {
	Version          string
	EcuName          string
	Revision         string
	Metadata         map[string]string
	Chunks           []Chunk
	FeatureFlags     uint64
	ChunksSignature  []byte
}

const (
	fieldFileVersion         = 1
	fieldFileEcuName         = 2
	fieldFileRevision        = 3
	fieldFileMetadata        = 4
	fieldFileChunks          = 5
	fieldFileFeatureFlags    = 6
	fieldFileChunksSignature = 7

	fieldChunkType                 = 1
	fieldChunkName                 = 2
	fieldChunkMetadata              = 3
	fieldChunkSignatures            = 4
	fieldChunkCompressionAlgorithm  = 5
	fieldChunkUncompressedSize      = 6
	fieldChunkMimeType              = 8
	fieldChunkData                  = 9

	fieldSignatureAlgorithm = 1
	fieldSignatureValue     = 2

	fieldMapKey   = 1
	fieldMapValue = 2
)

// encode serialises f to protobuf wire format.
func (f *MddFile) encode() []byte {
	var b []byte
	if f.Version != "" {
		b = protowire.AppendTag(b, fieldFileVersion, protowire.BytesType)
		b = protowire.AppendString(b, f.Version)
	}
	if f.EcuName != "" {
		b = protowire.AppendTag(b, fieldFileEcuName, protowire.BytesType)
		b = protowire.AppendString(b, f.EcuName)
	}
	if f.Revision != "" {
		b = protowire.AppendTag(b, fieldFileRevision, protowire.BytesType)
		b = protowire.AppendString(b, f.Revision)
	}
	for _, k := range sortedKeys(f.Metadata) {
		b = protowire.AppendTag(b, fieldFileMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeMapEntry(k, f.Metadata[k]))
	}
	for _, c := range f.Chunks {
		b = protowire.AppendTag(b, fieldFileChunks, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeChunk(&c))
	}
	if f.FeatureFlags != 0 {
		b = protowire.AppendTag(b, fieldFileFeatureFlags, protowire.VarintType)
		b = protowire.AppendVarint(b, f.FeatureFlags)
	}
	if len(f.ChunksSignature) > 0 {
		b = protowire.AppendTag(b, fieldFileChunksSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, f.ChunksSignature)
	}
	return b
}

func encodeMapEntry(k, v string) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMapKey, protowire.BytesType)
	b = protowire.AppendString(b, k)
	b = protowire.AppendTag(b, fieldMapValue, protowire.BytesType)
	b = protowire.AppendString(b, v)
	return b
}

func encodeChunk(c *Chunk) []byte {
	var b []byte
	if c.Type != ChunkTypeDiagnosticDescription {
		b = protowire.AppendTag(b, fieldChunkType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(c.Type))
	}
	if c.Name != "" {
		b = protowire.AppendTag(b, fieldChunkName, protowire.BytesType)
		b = protowire.AppendString(b, c.Name)
	}
	for _, k := range sortedKeys(c.Metadata) {
		b = protowire.AppendTag(b, fieldChunkMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeMapEntry(k, c.Metadata[k]))
	}
	for _, sig := range c.Signatures {
		b = protowire.AppendTag(b, fieldChunkSignatures, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSignature(&sig))
	}
	if c.CompressionAlgorithm != "" {
		b = protowire.AppendTag(b, fieldChunkCompressionAlgorithm, protowire.BytesType)
		b = protowire.AppendString(b, c.CompressionAlgorithm)
	}
	if c.HasUncompressedSize {
		b = protowire.AppendTag(b, fieldChunkUncompressedSize, protowire.VarintType)
		b = protowire.AppendVarint(b, c.UncompressedSize)
	}
	if c.MimeType != "" {
		b = protowire.AppendTag(b, fieldChunkMimeType, protowire.BytesType)
		b = protowire.AppendString(b, c.MimeType)
	}
	if len(c.Data) > 0 {
		b = protowire.AppendTag(b, fieldChunkData, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Data)
	}
	return b
}

func encodeSignature(s *Signature) []byte {
	var b []byte
	if s.Algorithm != "" {
		b = protowire.AppendTag(b, fieldSignatureAlgorithm, protowire.BytesType)
		b = protowire.AppendString(b, s.Algorithm)
	}
	if len(s.Value) > 0 {
		b = protowire.AppendTag(b, fieldSignatureValue, protowire.BytesType)
		b = protowire.AppendBytes(b, s.Value)
	}
	return b
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// decodeMddFile parses the wire bytes of an MddFile descriptor.
func decodeMddFile(data []byte) (*MddFile, error) {
	f := &MddFile{Metadata: map[string]string{}}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed descriptor tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case fieldFileVersion:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			f.Version = s
			data = data[n:]
		case fieldFileEcuName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			f.EcuName = s
			data = data[n:]
		case fieldFileRevision:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			f.Revision = s
			data = data[n:]
		case fieldFileMetadata:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			k, v, err := decodeMapEntry(raw)
			if err != nil {
				return nil, err
			}
			f.Metadata[k] = v
			data = data[n:]
		case fieldFileChunks:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			chunk, err := decodeChunk(raw)
			if err != nil {
				return nil, err
			}
			f.Chunks = append(f.Chunks, *chunk)
			data = data[n:]
		case fieldFileFeatureFlags:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			f.FeatureFlags = v
			data = data[n:]
		case fieldFileChunksSignature:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			f.ChunksSignature = append([]byte(nil), raw...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed descriptor field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return f, nil
}

func decodeMapEntry(data []byte) (string, string, error) {
	var key, value string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", fmt.Errorf("mdd: malformed map entry tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldMapKey:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return "", "", err
			}
			key = s
			data = data[n:]
		case fieldMapValue:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return "", "", err
			}
			value = s
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", "", fmt.Errorf("mdd: malformed map entry field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return key, value, nil
}

func decodeChunk(data []byte) (*Chunk, error) {
	c := &Chunk{Metadata: map[string]string{}}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed chunk tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldChunkType:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			c.Type = ChunkType(v)
			data = data[n:]
		case fieldChunkName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			c.Name = s
			data = data[n:]
		case fieldChunkMetadata:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			k, v, err := decodeMapEntry(raw)
			if err != nil {
				return nil, err
			}
			c.Metadata[k] = v
			data = data[n:]
		case fieldChunkSignatures:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			sig, err := decodeSignature(raw)
			if err != nil {
				return nil, err
			}
			c.Signatures = append(c.Signatures, *sig)
			data = data[n:]
		case fieldChunkCompressionAlgorithm:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			c.CompressionAlgorithm = s
			data = data[n:]
		case fieldChunkUncompressedSize:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			c.UncompressedSize = v
			c.HasUncompressedSize = true
			data = data[n:]
		case fieldChunkMimeType:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			c.MimeType = s
			data = data[n:]
		case fieldChunkData:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			c.Data = append([]byte(nil), raw...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed chunk field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}

func decodeSignature(data []byte) (*Signature, error) {
	s := &Signature{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed signature tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldSignatureAlgorithm:
			v, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			s.Algorithm = v
			data = data[n:]
		case fieldSignatureValue:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			s.Value = append([]byte(nil), raw...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed signature field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return s, nil
}

func consumeString(data []byte, typ protowire.Type) (string, int, error) {
	b, n, err := consumeBytes(data, typ)
	if err != nil {
		return "", 0, err
	}
	return string(b), n, nil
}

func consumeBytes(data []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("mdd: expected length-delimited field, got wire type %d", typ)
	}
	b, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, fmt.Errorf("mdd: malformed length-delimited field: %w", protowire.ParseError(n))
	}
	return b, n, nil
}

func consumeVarint(data []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("mdd: expected varint field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, fmt.Errorf("mdd: malformed varint field: %w", protowire.ParseError(n))
	}
	return v, n, nil
}
