package yamlcfg

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// FromIR reconstructs a Document from a DiagDatabase. It does not attempt
// to recover the exact original document (DID/routine declarations are
// not reconstructed, since the IR no longer distinguishes their origin
// from a hand-authored service); it reconstructs enough shape that a
// subsequent Generate reproduces equal ecu_name, variant count, DTC
// count, and per-base-variant state-chart counts (the round-trip
// invariant this package is tested against).
func FromIR(db *ir.DiagDatabase) *Document {
	doc := &Document{
		Schema: SchemaID,
		Meta:   map[string]any{"generator": "diagconv"},
		Ecu: EcuConfig{
			Name:     db.EcuName,
			Version:  db.Version,
			Revision: db.Revision,
		},
		Sessions: map[string]SessionConfig{},
		AccessPatterns: map[string]AccessPattern{
			"default": {
				Sessions:       Ref{Sentinel: "any"},
				Security:       Ref{Sentinel: "none"},
				Authentication: "none",
			},
		},
		Services: map[string]RawService{},
		Variants: map[string]VariantConfig{},
	}

	base := baseVariant(db)
	if base == nil {
		return doc
	}

	for _, sc := range base.DiagLayer.StateCharts {
		switch sc.Semantic {
		case "SESSION":
			for i, s := range sc.States {
				doc.Sessions[s.ShortName] = SessionConfig{Id: i + 1}
			}
			if len(sc.StateTransitions) > 0 {
				doc.StateModel = &StateModelConfig{SessionTransitions: map[string][]string{}}
				for _, t := range sc.StateTransitions {
					doc.StateModel.SessionTransitions[t.SourceShortNameRef] = append(
						doc.StateModel.SessionTransitions[t.SourceShortNameRef], t.TargetShortNameRef)
				}
			}
		case "SECURITY":
			if len(sc.States) > 0 {
				doc.Security = map[string]SecurityConfig{}
			}
			for i, s := range sc.States {
				doc.Security[s.ShortName] = SecurityConfig{
					Level:         i + 1,
					SeedRequest:   0x27,
					KeySend:       0x28,
					SeedSize:      4,
					KeySize:       4,
					Algorithm:     "xor",
					MaxAttempts:   3,
					DelayOnFailMs: 1000,
				}
			}
		}
	}

	hasSecurityAccess := false
	for _, svc := range base.DiagLayer.DiagServices {
		if svc.DiagComm.Semantic == SemanticSecurityAccess {
			hasSecurityAccess = true
			continue
		}
		doc.Services[svc.DiagComm.ShortName] = RawService{Semantic: svc.DiagComm.Semantic}
	}
	doc.Features.SecurityAccess = hasSecurityAccess

	for _, v := range db.Variants {
		if v.DiagLayer.ShortName == base.DiagLayer.ShortName {
			continue
		}
		doc.Variants[v.DiagLayer.ShortName] = VariantConfig{LongName: v.DiagLayer.LongName}
	}

	for _, d := range db.Dtcs {
		doc.Dtcs = append(doc.Dtcs, DtcConfig{
			Code:     d.TroubleCode,
			Text:     d.Text,
			Severity: d.Severity,
		})
	}

	return doc
}

func baseVariant(db *ir.DiagDatabase) *ir.Variant {
	for i := range db.Variants {
		if db.Variants[i].IsBaseVariant {
			return &db.Variants[i]
		}
	}
	if len(db.Variants) > 0 {
		return &db.Variants[0]
	}
	return nil
}

// Write serialises a DiagDatabase to YAML.
func Write(db *ir.DiagDatabase) ([]byte, error) {
	doc := FromIR(db)
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml document: %w", err)
	}
	return out, nil
}
