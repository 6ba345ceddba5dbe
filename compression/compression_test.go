package compression

import "testing"

func TestLzmaRoundtrip(t *testing.T) {
	original := []byte("Hello diagnostic world! This is test data for LZMA compression.")
	compressed, err := Compress(original, Lzma)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if string(compressed) == string(original) {
		t.Fatal("compressed output should differ from input")
	}
	decompressed, err := Decompress(compressed, "lzma")
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(decompressed) != string(original) {
		t.Fatalf("roundtrip mismatch: got %q want %q", decompressed, original)
	}
}

func TestGzipRoundtrip(t *testing.T) {
	original := []byte("Hello diagnostic world!")
	compressed, err := Compress(original, Gzip)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, "gzip")
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(decompressed) != string(original) {
		t.Fatalf("roundtrip mismatch: got %q want %q", decompressed, original)
	}
}

func TestZstdRoundtrip(t *testing.T) {
	original := []byte("Hello diagnostic world!")
	compressed, err := Compress(original, Zstd)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	decompressed, err := Decompress(compressed, "zstd")
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(decompressed) != string(original) {
		t.Fatalf("roundtrip mismatch: got %q want %q", decompressed, original)
	}
}

func TestNonePassthrough(t *testing.T) {
	original := []byte("no compression")
	result, err := Compress(original, None)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if string(result) != string(original) {
		t.Fatalf("None should pass through unchanged, got %q", result)
	}
}

func TestParseAlgorithm_Unknown(t *testing.T) {
	if _, err := ParseAlgorithm("brotli"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestAllAlgorithms_Roundtrip(t *testing.T) {
	data := []byte("test data repeated enough times to actually compress well " +
		"test data repeated enough times to actually compress well")
	for _, alg := range []Algorithm{None, Lzma, Gzip, Zstd} {
		compressed, err := Compress(data, alg)
		if err != nil {
			t.Fatalf("Compress(%v): %v", alg, err)
		}
		decompressed, err := Decompress(compressed, alg.Name())
		if err != nil {
			t.Fatalf("Decompress(%v): %v", alg, err)
		}
		if string(decompressed) != string(data) {
			t.Fatalf("roundtrip mismatch for %v", alg)
		}
	}
}
