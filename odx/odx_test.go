package odx

import (
	"os"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

func loadMinimal(t *testing.T) *ir.DiagDatabase {
	t.Helper()

	data, err := os.ReadFile("testdata/minimal.odx")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		t.Fatalf("parse fixture xml: %v", err)
	}
	db, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return db
}

func roundtrip(t *testing.T, db *ir.DiagDatabase) *ir.DiagDatabase {
	t.Helper()

	out, err := Write(db)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(out); err != nil {
		t.Fatalf("parse written xml: %v\n%s", err, out)
	}
	reparsed, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse written xml: %v", err)
	}
	return reparsed
}

func findBaseVariant(t *testing.T, db *ir.DiagDatabase) *ir.Variant {
	t.Helper()
	for i := range db.Variants {
		if db.Variants[i].IsBaseVariant {
			return &db.Variants[i]
		}
	}
	t.Fatal("fixture has no base variant")
	return nil
}

func TestRoundtripPreservesEcuName(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)
	if original.EcuName != reparsed.EcuName {
		t.Errorf("EcuName = %q, want %q", reparsed.EcuName, original.EcuName)
	}
}

func TestRoundtripPreservesVersion(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)
	if original.Version != reparsed.Version {
		t.Errorf("Version = %q, want %q", reparsed.Version, original.Version)
	}
}

func TestRoundtripPreservesRevision(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)
	if original.Revision != reparsed.Revision {
		t.Errorf("Revision = %q, want %q", reparsed.Revision, original.Revision)
	}
}

func TestRoundtripPreservesVariantCount(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)
	if len(original.Variants) != len(reparsed.Variants) {
		t.Errorf("variant count = %d, want %d", len(reparsed.Variants), len(original.Variants))
	}
}

func TestRoundtripPreservesDtcCount(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)
	if len(original.Dtcs) != len(reparsed.Dtcs) {
		t.Errorf("DTC count = %d, want %d", len(reparsed.Dtcs), len(original.Dtcs))
	}
}

func TestWriteProducesValidXML(t *testing.T) {
	db := loadMinimal(t)
	out, err := Write(db)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "<?xml") {
		t.Error("output does not start with an XML declaration")
	}
	if !strings.Contains(s, "<ODX") {
		t.Error("output does not contain an ODX root element")
	}
	if !strings.Contains(s, "DIAG-LAYER-CONTAINER") {
		t.Error("output does not contain DIAG-LAYER-CONTAINER")
	}
}

func TestRoundtripPreservesServiceNames(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)

	origBase := findBaseVariant(t, original)
	reprBase := findBaseVariant(t, reparsed)

	if len(origBase.DiagLayer.DiagServices) != len(reprBase.DiagLayer.DiagServices) {
		t.Fatalf("service count = %d, want %d", len(reprBase.DiagLayer.DiagServices), len(origBase.DiagLayer.DiagServices))
	}
	for i, svc := range origBase.DiagLayer.DiagServices {
		if svc.DiagComm.ShortName != reprBase.DiagLayer.DiagServices[i].DiagComm.ShortName {
			t.Errorf("service[%d] short name = %q, want %q", i, reprBase.DiagLayer.DiagServices[i].DiagComm.ShortName, svc.DiagComm.ShortName)
		}
	}
}

func TestRoundtripPreservesStateChart(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)

	origBase := findBaseVariant(t, original)
	reprBase := findBaseVariant(t, reparsed)

	if len(origBase.DiagLayer.StateCharts) != len(reprBase.DiagLayer.StateCharts) {
		t.Fatalf("state chart count = %d, want %d", len(reprBase.DiagLayer.StateCharts), len(origBase.DiagLayer.StateCharts))
	}
	if len(origBase.DiagLayer.StateCharts) == 0 {
		return
	}
	origSC := origBase.DiagLayer.StateCharts[0]
	reprSC := reprBase.DiagLayer.StateCharts[0]
	if origSC.ShortName != reprSC.ShortName {
		t.Errorf("state chart short name = %q, want %q", reprSC.ShortName, origSC.ShortName)
	}
	if len(origSC.States) != len(reprSC.States) {
		t.Errorf("state count = %d, want %d", len(reprSC.States), len(origSC.States))
	}
}

func TestRoundtripPreservesComParamRefs(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)

	origBase := findBaseVariant(t, original)
	reprBase := findBaseVariant(t, reparsed)

	if len(origBase.DiagLayer.ComParamRefs) != len(reprBase.DiagLayer.ComParamRefs) {
		t.Fatalf("comparam ref count = %d, want %d", len(reprBase.DiagLayer.ComParamRefs), len(origBase.DiagLayer.ComParamRefs))
	}

	origRef := origBase.DiagLayer.ComParamRefs[0]
	reprRef := reprBase.DiagLayer.ComParamRefs[0]

	if (origRef.SimpleValue == nil) != (reprRef.SimpleValue == nil) {
		t.Fatalf("simple_value presence mismatch")
	}
	if origRef.SimpleValue != nil && origRef.SimpleValue.Value != reprRef.SimpleValue.Value {
		t.Errorf("simple_value = %q, want %q", reprRef.SimpleValue.Value, origRef.SimpleValue.Value)
	}

	if (origRef.Protocol == nil) != (reprRef.Protocol == nil) {
		t.Fatalf("protocol SNREF presence mismatch")
	}
	if origRef.Protocol != nil && origRef.Protocol.ShortName != reprRef.Protocol.ShortName {
		t.Errorf("protocol SNREF = %q, want %q", reprRef.Protocol.ShortName, origRef.Protocol.ShortName)
	}

	if (origRef.ProtStack == nil) != (reprRef.ProtStack == nil) {
		t.Fatalf("prot_stack SNREF presence mismatch")
	}
	if origRef.ProtStack != nil && origRef.ProtStack.ShortName != reprRef.ProtStack.ShortName {
		t.Errorf("prot_stack SNREF = %q, want %q", reprRef.ProtStack.ShortName, origRef.ProtStack.ShortName)
	}
}

func TestRoundtripPreservesAudienceRefs(t *testing.T) {
	original := loadMinimal(t)
	reparsed := roundtrip(t, original)

	origBase := findBaseVariant(t, original)
	reprBase := findBaseVariant(t, reparsed)

	origSvc := origBase.DiagLayer.DiagServices[0]
	reprSvc := reprBase.DiagLayer.DiagServices[0]

	if (origSvc.DiagComm.Audience == nil) != (reprSvc.DiagComm.Audience == nil) {
		t.Fatalf("audience presence mismatch")
	}
	if origSvc.DiagComm.Audience.IsDevelopment != reprSvc.DiagComm.Audience.IsDevelopment {
		t.Errorf("is_development = %v, want %v", reprSvc.DiagComm.Audience.IsDevelopment, origSvc.DiagComm.Audience.IsDevelopment)
	}

	origEnabled := origSvc.DiagComm.Audience.EnabledAudiences
	reprEnabled := reprSvc.DiagComm.Audience.EnabledAudiences
	if len(origEnabled) == 0 {
		t.Fatal("fixture should have at least one enabled audience ref")
	}
	if len(origEnabled) != len(reprEnabled) {
		t.Fatalf("enabled audience count = %d, want %d", len(reprEnabled), len(origEnabled))
	}
	for i := range origEnabled {
		if origEnabled[i].ShortName != reprEnabled[i].ShortName {
			t.Errorf("enabled audience[%d] = %q, want %q", i, reprEnabled[i].ShortName, origEnabled[i].ShortName)
		}
	}
}

func TestWriterHandlesAllParamTypes(t *testing.T) {
	db := loadMinimal(t)
	out, err := Write(db)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "CODED-CONST") {
		t.Error("output should contain a CODED-CONST param")
	}
	if !strings.Contains(s, "VALUE") {
		t.Error("output should contain a VALUE param")
	}
}

func TestParseRejectsNonODXRoot(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString("<NOT-ODX/>"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Parse(doc); err == nil {
		t.Error("expected error for non-ODX root element")
	}
}

func TestFlattenLayersDetectsInheritanceCycle(t *testing.T) {
	const xml = `<?xml version="1.0"?>
<ODX>
  <DIAG-LAYER-CONTAINER>
    <SHORT-NAME>Cyclic</SHORT-NAME>
    <BASE-VARIANTS>
      <BASE-VARIANT ID="A">
        <SHORT-NAME>A</SHORT-NAME>
        <PARENT-REFS><PARENT-REF ID-REF="B"/></PARENT-REFS>
      </BASE-VARIANT>
      <BASE-VARIANT ID="B">
        <SHORT-NAME>B</SHORT-NAME>
        <PARENT-REFS><PARENT-REF ID-REF="A"/></PARENT-REFS>
      </BASE-VARIANT>
    </BASE-VARIANTS>
  </DIAG-LAYER-CONTAINER>
</ODX>`
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Parse(doc); err == nil {
		t.Error("expected an inheritance cycle error")
	}
}

func TestInheritanceMergesParentServices(t *testing.T) {
	const xml = `<?xml version="1.0"?>
<ODX>
  <DIAG-LAYER-CONTAINER>
    <SHORT-NAME>Inherit</SHORT-NAME>
    <BASE-VARIANTS>
      <BASE-VARIANT ID="BASE">
        <SHORT-NAME>BASE</SHORT-NAME>
        <DIAG-COMMS>
          <DIAG-SERVICE ID="S1" ADDRESSING="PHYSICAL" TRANSMISSION-MODE="SEND-AND-RECEIVE">
            <SHORT-NAME>TesterPresent</SHORT-NAME>
          </DIAG-SERVICE>
        </DIAG-COMMS>
      </BASE-VARIANT>
    </BASE-VARIANTS>
    <ECU-VARIANTS>
      <ECU-VARIANT ID="CHILD">
        <SHORT-NAME>CHILD</SHORT-NAME>
        <PARENT-REFS><PARENT-REF ID-REF="BASE"/></PARENT-REFS>
        <DIAG-COMMS>
          <DIAG-SERVICE ID="S2" ADDRESSING="PHYSICAL" TRANSMISSION-MODE="SEND-AND-RECEIVE">
            <SHORT-NAME>ReadDataByIdentifier</SHORT-NAME>
          </DIAG-SERVICE>
        </DIAG-COMMS>
      </ECU-VARIANT>
    </ECU-VARIANTS>
  </DIAG-LAYER-CONTAINER>
</ODX>`
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		t.Fatalf("parse: %v", err)
	}
	db, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var child *ir.Variant
	for i := range db.Variants {
		if db.Variants[i].DiagLayer.ShortName == "CHILD" {
			child = &db.Variants[i]
		}
	}
	if child == nil {
		t.Fatal("child variant not found")
	}
	if len(child.DiagLayer.DiagServices) != 2 {
		t.Fatalf("child should inherit base service plus its own: got %d services", len(child.DiagLayer.DiagServices))
	}
}
