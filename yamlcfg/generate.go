package yamlcfg

import (
	"fmt"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// Semantic tags the service generator assigns to synthesised services, so
// that feature toggles are verifiable by tag alone (spec.md 4.7).
const (
	SemanticSecurityAccess        = "SECURITY-ACCESS"
	SemanticReadDataByIdentifier  = "READ-DATA-BY-IDENTIFIER"
	SemanticWriteDataByIdentifier = "WRITE-DATA-BY-IDENTIFIER"
	SemanticRoutineControl        = "ROUTINE-CONTROL"
)

// Generate expands a validated document into a DiagDatabase: one base
// variant carrying every generated service, plus one derived Variant per
// declared variant entry.
func Generate(doc *Document) *ir.DiagDatabase {
	baseShortName := doc.Ecu.BaseVariant
	if baseShortName == "" {
		baseShortName = doc.Ecu.Name + "_Base"
	}

	base := ir.DiagLayer{
		ShortName: baseShortName,
	}

	if len(doc.Sessions) > 0 {
		base.StateCharts = append(base.StateCharts, sessionStateChart(doc))
	}
	if len(doc.Security) > 0 {
		base.StateCharts = append(base.StateCharts, securityStateChart(doc))
	}

	if doc.Features.SecurityAccess {
		for _, name := range securityNamesByLevel(doc.Security) {
			base.DiagServices = append(base.DiagServices, securityAccessService(name, doc.Security[name]))
		}
	}
	for _, name := range sortedDidKeys(doc.Dids) {
		did := doc.Dids[name]
		base.DiagServices = append(base.DiagServices, readDidService(name, did))
		if did.Writable {
			base.DiagServices = append(base.DiagServices, writeDidService(name, did))
		}
	}
	for _, name := range sortedRoutineKeys(doc.Routines) {
		base.DiagServices = append(base.DiagServices, routineControlService(name, doc.Routines[name]))
	}
	for _, name := range sortedServiceKeys(doc.Services) {
		svc := doc.Services[name]
		base.DiagServices = append(base.DiagServices, rawService(name, svc))
	}

	db := &ir.DiagDatabase{
		EcuName: doc.Ecu.Name,
		Version: doc.Ecu.Version,
		Revision: doc.Ecu.Revision,
		Variants: []ir.Variant{{DiagLayer: base, IsBaseVariant: true}},
	}

	for _, name := range sortedVariantKeys(doc.Variants) {
		vc := doc.Variants[name]
		db.Variants = append(db.Variants, ir.Variant{
			DiagLayer: ir.DiagLayer{ShortName: name, LongName: vc.LongName},
			ParentRefs: []string{baseShortName},
		})
	}

	for _, d := range doc.Dtcs {
		db.Dtcs = append(db.Dtcs, ir.Dtc{
			ShortName:   fmt.Sprintf("DTC_%06X", d.Code),
			TroubleCode: d.Code,
			Text:        d.Text,
			Severity:    d.Severity,
		})
	}

	return db
}

func sessionStateChart(doc *Document) ir.StateChart {
	chart := ir.StateChart{ShortName: "SESSION", Semantic: "SESSION"}
	for _, name := range sessionNamesByID(doc.Sessions) {
		chart.States = append(chart.States, ir.State{ShortName: name})
	}
	if doc.StateModel != nil {
		for _, from := range sortedStringSliceKeys(doc.StateModel.SessionTransitions) {
			for _, to := range doc.StateModel.SessionTransitions[from] {
				chart.StateTransitions = append(chart.StateTransitions, ir.StateTransition{
					ShortName:          from + "_to_" + to,
					SourceShortNameRef: from,
					TargetShortNameRef: to,
				})
			}
		}
	}
	return chart
}

func securityStateChart(doc *Document) ir.StateChart {
	chart := ir.StateChart{ShortName: "SECURITY", Semantic: "SECURITY"}
	for _, name := range securityNamesByLevel(doc.Security) {
		chart.States = append(chart.States, ir.State{ShortName: name})
	}
	return chart
}

func securityAccessService(name string, sec SecurityConfig) ir.DiagService {
	return ir.DiagService{
		DiagComm: ir.DiagComm{
			ShortName: "SecurityAccess_" + name,
			Semantic:  SemanticSecurityAccess,
		},
		Request: &ir.Message{
			ShortName: "SecurityAccess_" + name + "_Req",
			Params: []ir.Param{
				{ShortName: "SID", Kind: ir.ParamKindCodedConst, CodedValue: fmt.Sprintf("0x%02X", sec.SeedRequest), BytePosition: 0, BitLength: 8},
			},
		},
	}
}

func readDidService(name string, did DidConfig) ir.DiagService {
	return ir.DiagService{
		DiagComm: ir.DiagComm{
			ShortName: "Read_" + name,
			Semantic:  SemanticReadDataByIdentifier,
		},
		Request: &ir.Message{
			ShortName: "Read_" + name + "_Req",
			Params: []ir.Param{
				{ShortName: "SID", Kind: ir.ParamKindCodedConst, CodedValue: "0x22", BytePosition: 0, BitLength: 8},
				{ShortName: "DID", Kind: ir.ParamKindCodedConst, CodedValue: fmt.Sprintf("0x%04X", did.Id), BytePosition: 1, BitLength: 16},
			},
		},
		PosResponses: []ir.Message{{
			ShortName: "Read_" + name + "_PosResp",
			Params: []ir.Param{
				{ShortName: "Value", Kind: ir.ParamKindValue, DopRef: "DOP_" + name, BytePosition: 3, BitLength: did.Dop.BitLength},
			},
		}},
	}
}

func writeDidService(name string, did DidConfig) ir.DiagService {
	return ir.DiagService{
		DiagComm: ir.DiagComm{
			ShortName: "Write_" + name,
			Semantic:  SemanticWriteDataByIdentifier,
		},
		Request: &ir.Message{
			ShortName: "Write_" + name + "_Req",
			Params: []ir.Param{
				{ShortName: "SID", Kind: ir.ParamKindCodedConst, CodedValue: "0x2E", BytePosition: 0, BitLength: 8},
				{ShortName: "DID", Kind: ir.ParamKindCodedConst, CodedValue: fmt.Sprintf("0x%04X", did.Id), BytePosition: 1, BitLength: 16},
				{ShortName: "Value", Kind: ir.ParamKindValue, DopRef: "DOP_" + name, BytePosition: 3, BitLength: did.Dop.BitLength},
			},
		},
	}
}

func routineControlService(name string, rc RoutineConfig) ir.DiagService {
	return ir.DiagService{
		DiagComm: ir.DiagComm{
			ShortName: "Routine_" + name,
			Semantic:  SemanticRoutineControl,
		},
		Request: &ir.Message{
			ShortName: "Routine_" + name + "_Req",
			Params: []ir.Param{
				{ShortName: "SID", Kind: ir.ParamKindCodedConst, CodedValue: "0x31", BytePosition: 0, BitLength: 8},
				{ShortName: "RoutineID", Kind: ir.ParamKindCodedConst, CodedValue: fmt.Sprintf("0x%04X", rc.Id), BytePosition: 1, BitLength: 16},
			},
		},
	}
}

func rawService(name string, svc RawService) ir.DiagService {
	diagComm := ir.DiagComm{ShortName: name, Semantic: svc.Semantic}
	d := ir.DiagService{DiagComm: diagComm}
	if svc.RequestSid != 0 {
		d.Request = &ir.Message{
			ShortName: name + "_Req",
			Params: []ir.Param{
				{ShortName: "SID", Kind: ir.ParamKindCodedConst, CodedValue: fmt.Sprintf("0x%02X", svc.RequestSid), BytePosition: 0, BitLength: 8},
			},
		}
	}
	return d
}
