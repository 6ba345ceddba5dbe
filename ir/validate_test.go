package ir

import (
	"strings"
	"testing"
)

func TestValidateDatabase_EmptyIsValid(t *testing.T) {
	db := &DiagDatabase{}
	if err := ValidateDatabase(db); err != nil {
		t.Fatalf("empty database should validate, got %v", err)
	}
}

func TestValidateDatabase_VariantValidates(t *testing.T) {
	db := &DiagDatabase{
		EcuName: "TestECU",
		Version: "1.0",
		Variants: []Variant{{
			DiagLayer:     DiagLayer{ShortName: "BaseVariant"},
			IsBaseVariant: true,
		}},
	}
	if err := ValidateDatabase(db); err != nil {
		t.Fatalf("valid database should validate, got %v", err)
	}
}

func TestValidateDatabase_DuplicateServiceName(t *testing.T) {
	svc := DiagService{DiagComm: DiagComm{ShortName: "ReadDID"}}
	db := &DiagDatabase{
		EcuName: "TestECU",
		Variants: []Variant{{
			DiagLayer: DiagLayer{
				ShortName:    "Var1",
				DiagServices: []DiagService{svc, svc},
			},
		}},
	}
	err := ValidateDatabase(db)
	if err == nil {
		t.Fatal("expected duplicate service name error")
	}
	if !strings.Contains(err.Error(), "ReadDID") {
		t.Errorf("error should mention the duplicate service name, got %v", err)
	}
}

func TestValidateDatabase_EmptyServiceName(t *testing.T) {
	db := &DiagDatabase{
		EcuName: "TEST",
		Variants: []Variant{{
			DiagLayer: DiagLayer{
				ShortName:    "Base",
				DiagServices: []DiagService{{}},
			},
			IsBaseVariant: true,
		}},
	}
	err := ValidateDatabase(db)
	if err == nil || !strings.Contains(err.Error(), "empty service name") {
		t.Fatalf("should detect empty service name: %v", err)
	}
}

func TestValidateDatabase_DuplicateDtc(t *testing.T) {
	db := &DiagDatabase{
		EcuName: "TEST",
		Variants: []Variant{{
			DiagLayer:     DiagLayer{ShortName: "Base", DiagServices: []DiagService{{DiagComm: DiagComm{ShortName: "Svc"}}}},
			IsBaseVariant: true,
		}},
		Dtcs: []Dtc{
			{ShortName: "DTC_A", TroubleCode: 0x123456},
			{ShortName: "DTC_B", TroubleCode: 0x123456},
		},
	}
	err := ValidateDatabase(db)
	if err == nil || !strings.Contains(err.Error(), "duplicate DTC") {
		t.Fatalf("should detect duplicate DTC: %v", err)
	}
}

func TestValidateDatabase_DuplicateDtcWithoutVariants(t *testing.T) {
	db := &DiagDatabase{
		EcuName: "TEST",
		Dtcs: []Dtc{
			{ShortName: "P0001", TroubleCode: 1},
			{ShortName: "P0001_dup", TroubleCode: 1},
		},
	}
	if err := ValidateDatabase(db); err == nil {
		t.Fatal("duplicate DTC IDs should be caught even without base variants")
	}
}

func TestValidateDatabase_EmptyStateChart(t *testing.T) {
	db := &DiagDatabase{
		EcuName: "TEST",
		Variants: []Variant{{
			DiagLayer: DiagLayer{
				ShortName:    "Base",
				DiagServices: []DiagService{{DiagComm: DiagComm{ShortName: "Svc"}}},
				StateCharts: []StateChart{{
					ShortName: "EmptyChart",
				}},
			},
			IsBaseVariant: true,
		}},
	}
	err := ValidateDatabase(db)
	if err == nil || !strings.Contains(err.Error(), "EmptyChart") {
		t.Fatalf("should detect empty state chart: %v", err)
	}
}

func TestCompuMethodConstructsCorrectly(t *testing.T) {
	cm := CompuMethod{
		Category: CompuCategoryLinear,
		InternalToPhys: &CompuInternalToPhys{
			CompuScales: []CompuScale{{
				LowerLimit: &Limit{Value: "0", IntervalType: IntervalTypeClosed},
				UpperLimit: &Limit{Value: "255", IntervalType: IntervalTypeClosed},
			}},
		},
	}
	if cm.Category != CompuCategoryLinear {
		t.Errorf("category = %v, want Linear", cm.Category)
	}
	if len(cm.InternalToPhys.CompuScales) != 1 {
		t.Errorf("compu scales len = %d, want 1", len(cm.InternalToPhys.CompuScales))
	}
}
