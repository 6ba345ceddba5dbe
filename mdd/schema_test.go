package mdd

import (
	"sort"
	"testing"

	"github.com/bburda42dot/diag-converter-sub001/compression"
	"github.com/bburda42dot/diag-converter-sub001/ir"
)

func sampleDatabase() *ir.DiagDatabase {
	return &ir.DiagDatabase{
		EcuName:  "FLXC1000",
		Version:  "1.0",
		Revision: "A",
		Variants: []ir.Variant{
			{
				IsBaseVariant: true,
				DiagLayer: ir.DiagLayer{
					ShortName: "FLXC1000_Base",
					DiagServices: []ir.DiagService{
						{DiagComm: ir.DiagComm{ShortName: "ReadDID", Semantic: "READ-DID"}},
						{DiagComm: ir.DiagComm{ShortName: "SecurityAccess_1", Semantic: "SECURITY-ACCESS"}},
					},
					StateCharts: []ir.StateChart{
						{ShortName: "SESSION", Semantic: "SESSION", States: []ir.State{{ShortName: "default"}, {ShortName: "programming"}}},
					},
				},
			},
			{
				DiagLayer:  ir.DiagLayer{ShortName: "Boot_Variant"},
				ParentRefs: []string{"FLXC1000_Base"},
			},
		},
		Dtcs: []ir.Dtc{
			{ShortName: "DTC_A", TroubleCode: 0x0A0B0C, Text: "fault A", Severity: "high"},
			{ShortName: "DTC_B", TroubleCode: 0x0D0E0F},
		},
	}
}

func TestEncodeDecodeDatabaseRoundTrip(t *testing.T) {
	db := sampleDatabase()

	decoded, err := DecodeDatabase(EncodeDatabase(db))
	if err != nil {
		t.Fatalf("DecodeDatabase: %v", err)
	}

	if decoded.EcuName != db.EcuName {
		t.Fatalf("ecu_name mismatch: got %q want %q", decoded.EcuName, db.EcuName)
	}
	if len(decoded.Variants) != len(db.Variants) {
		t.Fatalf("variant count mismatch: got %d want %d", len(decoded.Variants), len(db.Variants))
	}
	if len(decoded.Dtcs) != len(db.Dtcs) {
		t.Fatalf("dtc count mismatch: got %d want %d", len(decoded.Dtcs), len(db.Dtcs))
	}

	var wantNames, gotNames []string
	for _, v := range db.Variants {
		wantNames = append(wantNames, v.DiagLayer.ShortName)
	}
	for _, v := range decoded.Variants {
		gotNames = append(gotNames, v.DiagLayer.ShortName)
	}
	sort.Strings(wantNames)
	sort.Strings(gotNames)
	for i := range wantNames {
		if wantNames[i] != gotNames[i] {
			t.Fatalf("variant name set mismatch: got %v want %v", gotNames, wantNames)
		}
	}
}

func TestEncodeDecodeThroughMddWriteRead(t *testing.T) {
	db := sampleDatabase()

	for _, alg := range []compression.Algorithm{compression.None, compression.Lzma, compression.Gzip, compression.Zstd} {
		payload := EncodeDatabase(db)
		out, err := Write(payload, WriteOptions{EcuName: db.EcuName, Version: db.Version, Revision: db.Revision, CompressionAlgorithm: alg})
		if err != nil {
			t.Fatalf("Write(%v): %v", alg, err)
		}

		meta, recovered, err := Read(out)
		if err != nil {
			t.Fatalf("Read(%v): %v", alg, err)
		}
		if meta.EcuName != db.EcuName {
			t.Fatalf("ecu_name mismatch for %v: got %q", alg, meta.EcuName)
		}

		decoded, err := DecodeDatabase(recovered)
		if err != nil {
			t.Fatalf("DecodeDatabase(%v): %v", alg, err)
		}
		if decoded.EcuName != db.EcuName {
			t.Fatalf("decoded ecu_name mismatch for %v: got %q", alg, decoded.EcuName)
		}
		if len(decoded.Variants) != len(db.Variants) {
			t.Fatalf("decoded variant count mismatch for %v: got %d", alg, len(decoded.Variants))
		}
		if len(decoded.Dtcs) != len(db.Dtcs) {
			t.Fatalf("decoded dtc count mismatch for %v: got %d", alg, len(decoded.Dtcs))
		}

		var base *ir.Variant
		for i := range decoded.Variants {
			if decoded.Variants[i].IsBaseVariant {
				base = &decoded.Variants[i]
			}
		}
		if base == nil {
			t.Fatalf("no base variant recovered for %v", alg)
		}
		var gotServices []string
		for _, svc := range base.DiagLayer.DiagServices {
			gotServices = append(gotServices, svc.DiagComm.ShortName)
		}
		sort.Strings(gotServices)
		want := []string{"ReadDID", "SecurityAccess_1"}
		if len(gotServices) != len(want) || gotServices[0] != want[0] || gotServices[1] != want[1] {
			t.Fatalf("base variant service set mismatch for %v: got %v", alg, gotServices)
		}
	}
}
