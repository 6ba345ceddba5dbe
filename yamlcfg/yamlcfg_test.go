package yamlcfg

import (
	"os"
	"testing"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

func loadFixture(t *testing.T, name string) *ir.DiagDatabase {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	db, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s): %v", name, err)
	}
	return db
}

func findBaseVariant(t *testing.T, db *ir.DiagDatabase) ir.Variant {
	t.Helper()
	for _, v := range db.Variants {
		if v.IsBaseVariant {
			return v
		}
	}
	t.Fatal("no base variant found")
	return ir.Variant{}
}

func findStateChart(t *testing.T, v ir.Variant, shortName string) ir.StateChart {
	t.Helper()
	for _, sc := range v.DiagLayer.StateCharts {
		if sc.ShortName == shortName {
			return sc
		}
	}
	t.Fatalf("no %s state chart found", shortName)
	return ir.StateChart{}
}

func TestFlxc1000Structure(t *testing.T) {
	db := loadFixture(t, "FLXC1000.yml")
	if db.EcuName != "FLXC1000" {
		t.Errorf("EcuName = %q, want FLXC1000", db.EcuName)
	}
	if len(db.Variants) != 3 {
		t.Fatalf("len(Variants) = %d, want 3", len(db.Variants))
	}

	baseCount := 0
	var nonBaseNames []string
	for _, v := range db.Variants {
		if v.IsBaseVariant {
			baseCount++
		} else {
			nonBaseNames = append(nonBaseNames, v.DiagLayer.ShortName)
		}
	}
	if baseCount != 1 {
		t.Errorf("base variant count = %d, want 1", baseCount)
	}
	wantNonBase := map[string]bool{"Boot_Variant": true, "App_0101": true}
	for _, n := range nonBaseNames {
		if !wantNonBase[n] {
			t.Errorf("unexpected non-base variant %q", n)
		}
		delete(wantNonBase, n)
	}
	if len(wantNonBase) != 0 {
		t.Errorf("missing non-base variants: %v", wantNonBase)
	}

	base := findBaseVariant(t, db)
	session := findStateChart(t, base, "SESSION")
	if len(session.States) != 4 {
		t.Errorf("SESSION states = %d, want 4", len(session.States))
	}
	security := findStateChart(t, base, "SECURITY")
	if len(security.States) != 3 {
		t.Errorf("SECURITY states = %d, want 3", len(security.States))
	}
	if len(base.DiagLayer.DiagServices) < 3 {
		t.Errorf("base variant services = %d, want >= 3", len(base.DiagLayer.DiagServices))
	}
}

func TestFlxcng1000Structure(t *testing.T) {
	db := loadFixture(t, "FLXCNG1000.yml")
	if len(db.Variants) != 2 {
		t.Fatalf("len(Variants) = %d, want 2", len(db.Variants))
	}
	var nonBase string
	for _, v := range db.Variants {
		if !v.IsBaseVariant {
			nonBase = v.DiagLayer.ShortName
		}
	}
	if nonBase != "App_1010" {
		t.Errorf("non-base variant = %q, want App_1010", nonBase)
	}

	base := findBaseVariant(t, db)
	session := findStateChart(t, base, "SESSION")
	if len(session.States) != 4 {
		t.Errorf("SESSION states = %d, want 4", len(session.States))
	}
	security := findStateChart(t, base, "SECURITY")
	if len(security.States) != 2 {
		t.Errorf("SECURITY states = %d, want 2", len(security.States))
	}

	for _, svc := range base.DiagLayer.DiagServices {
		if svc.DiagComm.Semantic == SemanticSecurityAccess {
			t.Errorf("unexpected SECURITY-ACCESS service %q with securityAccess disabled", svc.DiagComm.ShortName)
		}
	}
}

func assertRoundtrip(t *testing.T, name string) {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	db1, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s): %v", name, err)
	}
	written, err := Write(db1)
	if err != nil {
		t.Fatalf("Write(%s): %v", name, err)
	}
	db2, err := Parse(written)
	if err != nil {
		t.Fatalf("Parse(written %s): %v\n%s", name, err, written)
	}

	if db1.EcuName != db2.EcuName {
		t.Errorf("ecu_name: %q != %q", db1.EcuName, db2.EcuName)
	}
	if len(db1.Variants) != len(db2.Variants) {
		t.Errorf("variant count: %d != %d", len(db1.Variants), len(db2.Variants))
	}
	if len(db1.Dtcs) != len(db2.Dtcs) {
		t.Errorf("dtc count: %d != %d", len(db1.Dtcs), len(db2.Dtcs))
	}
	base1 := findBaseVariant(t, db1)
	base2 := findBaseVariant(t, db2)
	if len(base1.DiagLayer.StateCharts) != len(base2.DiagLayer.StateCharts) {
		t.Errorf("base variant state chart count: %d != %d", len(base1.DiagLayer.StateCharts), len(base2.DiagLayer.StateCharts))
	}
}

func TestFlxc1000YamlRoundtrip(t *testing.T) {
	assertRoundtrip(t, "FLXC1000.yml")
}

func TestFlxcng1000YamlRoundtrip(t *testing.T) {
	assertRoundtrip(t, "FLXCNG1000.yml")
}

func validDoc() *Document {
	return &Document{
		Schema: SchemaID,
		Ecu:    EcuConfig{Name: "TEST"},
		Sessions: map[string]SessionConfig{
			"default":     {Id: 1},
			"programming": {Id: 2},
		},
		AccessPatterns: map[string]AccessPattern{
			"default": {
				Sessions:       Ref{Sentinel: "any"},
				Security:       Ref{Sentinel: "none"},
				Authentication: "none",
			},
		},
	}
}

func TestValidDocumentHasNoIssues(t *testing.T) {
	issues := ValidateSemantics(validDoc())
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestDuplicateSessionIds(t *testing.T) {
	doc := validDoc()
	doc.Sessions["extra"] = SessionConfig{Id: 1}
	issues := ValidateSemantics(doc)
	if len(issues) == 0 {
		t.Fatal("expected at least one issue")
	}
	found := false
	for _, i := range issues {
		if i.Severity == SeverityError && i.Message == "duplicate session ID 1 (already used by 'default')" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want duplicate session ID error", issues)
	}
}

func TestDuplicateSecurityLevels(t *testing.T) {
	doc := validDoc()
	doc.Security = map[string]SecurityConfig{
		"a": {Level: 1},
		"b": {Level: 1},
	}
	issues := ValidateSemantics(doc)
	found := false
	for _, i := range issues {
		if i.Severity == SeverityError && i.Message == "duplicate security level 1 (already used by 'a')" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want duplicate security level error", issues)
	}
}

func TestAccessPatternReferencesUndefinedSession(t *testing.T) {
	doc := validDoc()
	doc.AccessPatterns["restricted"] = AccessPattern{
		Sessions: Ref{Names: []string{"default", "nonexistent_session"}},
		Security: Ref{Sentinel: "none"},
	}
	issues := ValidateSemantics(doc)
	found := false
	for _, i := range issues {
		if i.Message == "references undefined session 'nonexistent_session'" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want undefined session reference error", issues)
	}
}

func TestAccessPatternReferencesUndefinedSecurity(t *testing.T) {
	doc := validDoc()
	doc.AccessPatterns["restricted"] = AccessPattern{
		Sessions: Ref{Sentinel: "any"},
		Security: Ref{Names: []string{"nonexistent_level"}},
	}
	issues := ValidateSemantics(doc)
	found := false
	for _, i := range issues {
		if i.Message == "references undefined security level 'nonexistent_level'" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want undefined security level reference error", issues)
	}
}

func TestStateModelUndefinedSessionWarning(t *testing.T) {
	doc := validDoc()
	doc.StateModel = &StateModelConfig{
		SessionTransitions: map[string][]string{"default": {"unknown_session"}},
	}
	issues := ValidateSemantics(doc)
	found := false
	for _, i := range issues {
		if i.Severity == SeverityWarning && i.Message == "transition target 'unknown_session' is not a defined session" {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want state model warning", issues)
	}
}

func TestAccessPatternAnySessionsNoError(t *testing.T) {
	doc := &Document{
		Schema:   SchemaID,
		Ecu:      EcuConfig{Name: "TEST"},
		Sessions: map[string]SessionConfig{},
		AccessPatterns: map[string]AccessPattern{
			"default": {Sessions: Ref{Sentinel: "any"}, Security: Ref{Sentinel: "none"}},
		},
	}
	issues := ValidateSemantics(doc)
	for _, i := range issues {
		if i.Path == "access_patterns/default/sessions" {
			t.Errorf("unexpected session-path issue for 'any' sentinel: %+v", i)
		}
	}
}
