package pdx

import (
	"archive/zip"
	"bytes"
	"os"
	"strings"
	"testing"
)

func minimalOdx(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../odx/testdata/minimal.odx")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func buildPdxBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestPdxWithSingleOdx(t *testing.T) {
	data := buildPdxBytes(t, map[string]string{"ECU.odx": minimalOdx(t)})
	db, err := ReadFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFromReader: %v", err)
	}
	if db.EcuName == "" {
		t.Error("expected non-empty ECU name")
	}
	if len(db.Variants) == 0 {
		t.Error("expected at least one variant")
	}
}

func TestPdxSkipsNonOdxFiles(t *testing.T) {
	data := buildPdxBytes(t, map[string]string{
		"ECU.odx":    minimalOdx(t),
		"README.txt": "not an ODX file",
		"data.xml":   "<root/>",
	})
	db, err := ReadFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFromReader: %v", err)
	}
	if db.EcuName == "" {
		t.Error("expected non-empty ECU name")
	}
}

func TestPdxWithNoOdxFilesErrors(t *testing.T) {
	data := buildPdxBytes(t, map[string]string{"README.txt": "no ODX here"})
	_, err := ReadFromReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "no ODX files") {
		t.Errorf("error = %q, want it to mention 'no ODX files'", err.Error())
	}
}

func TestPdxWithMultipleOdxMerges(t *testing.T) {
	fixture := minimalOdx(t)
	data := buildPdxBytes(t, map[string]string{"ECU1.odx": fixture, "ECU2.odx": fixture})
	db, err := ReadFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFromReader: %v", err)
	}
	seen := make(map[string]bool, len(db.Variants))
	for _, v := range db.Variants {
		if seen[v.DiagLayer.ShortName] {
			t.Errorf("duplicate variant %q after merge", v.DiagLayer.ShortName)
		}
		seen[v.DiagLayer.ShortName] = true
	}
}

func TestPdxWithComparamSpecSkipped(t *testing.T) {
	const comparamXML = `<?xml version="1.0" encoding="UTF-8"?>
<ODX MODEL-VERSION="2.2.0">
  <COMPARAM-SPEC><SHORT-NAME>CP_Spec</SHORT-NAME></COMPARAM-SPEC>
</ODX>`

	data := buildPdxBytes(t, map[string]string{
		"comparam.odx": comparamXML,
		"ECU.odx":      minimalOdx(t),
	})
	db, err := ReadFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFromReader: %v", err)
	}
	if len(db.Variants) == 0 {
		t.Error("expected at least one variant from ECU.odx")
	}
}
