package odx

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// Write serialises a DiagDatabase to one ODX document: a single
// DIAG-LAYER-CONTAINER holding every variant and functional group as a
// diagnostic layer. IDs are regenerated deterministically from
// {layer_short_name}_{entity_kind}_{entity_short_name} so that writing the
// same database twice produces byte-identical output.
func Write(db *ir.DiagDatabase) ([]byte, error) {
	if db == nil {
		return nil, fmt.Errorf("nil diagnostic database")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ODX")
	setAttrIfNonEmpty(root, "MODEL-VERSION", db.Version)

	container := root.CreateElement("DIAG-LAYER-CONTAINER")
	container.CreateAttr("ID", "DLC_"+sanitizeID(db.EcuName))
	setChildText(container, "SHORT-NAME", db.EcuName)

	if db.Revision != "" {
		admin := container.CreateElement("ADMIN-DATA")
		rev := admin.CreateElement("DOC-REVISIONS").CreateElement("DOC-REVISION")
		setChildText(rev, "REVISION-LABEL", db.Revision)
	}

	if len(db.Dtcs) > 0 {
		dtcs := container.CreateElement("DTCS")
		for _, dtc := range db.Dtcs {
			el := dtcs.CreateElement("DTC")
			el.CreateAttr("ID", idFor(db.EcuName, "DTC", dtc.ShortName))
			el.CreateAttr("TROUBLE-CODE", fmt.Sprintf("0x%06X", dtc.TroubleCode))
			setAttrIfNonEmpty(el, "DISPLAY-TROUBLE-CODE", dtc.DisplayTroubleCode)
			setChildText(el, "SHORT-NAME", dtc.ShortName)
			setChildText(el, "TEXT", dtc.Text)
			setChildText(el, "SEVERITY", dtc.Severity)
		}
	}

	var baseVariants, ecuVariants []ir.Variant
	for _, v := range db.Variants {
		if v.IsBaseVariant {
			baseVariants = append(baseVariants, v)
		} else {
			ecuVariants = append(ecuVariants, v)
		}
	}

	if len(baseVariants) > 0 {
		group := container.CreateElement("BASE-VARIANTS")
		for _, v := range baseVariants {
			writeLayer(group.CreateElement("BASE-VARIANT"), v.DiagLayer, v.ParentRefs, v.VariantPatterns)
		}
	}
	if len(ecuVariants) > 0 {
		group := container.CreateElement("ECU-VARIANTS")
		for _, v := range ecuVariants {
			writeLayer(group.CreateElement("ECU-VARIANT"), v.DiagLayer, v.ParentRefs, v.VariantPatterns)
		}
	}
	if len(db.FunctionalGroups) > 0 {
		group := container.CreateElement("FUNCTIONAL-GROUPS")
		for _, fg := range db.FunctionalGroups {
			writeLayer(group.CreateElement("FUNCTIONAL-GROUP"), fg.DiagLayer, fg.ParentRefs, nil)
		}
	}

	doc.Indent(2)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialise ODX document: %w", err)
	}
	return buf.Bytes(), nil
}

func sanitizeID(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func idFor(layerShortName, kind, entityShortName string) string {
	return sanitizeID(layerShortName) + "_" + kind + "_" + sanitizeID(entityShortName)
}

func writeLayer(el *etree.Element, layer ir.DiagLayer, parentRefs []string, patterns []ir.VariantPattern) {
	el.CreateAttr("ID", idFor(layer.ShortName, "LAYER", layer.ShortName))
	setChildText(el, "SHORT-NAME", layer.ShortName)
	setChildText(el, "LONG-NAME", layer.LongName)

	if len(parentRefs) > 0 {
		refs := el.CreateElement("PARENT-REFS")
		for _, p := range parentRefs {
			refs.CreateElement("PARENT-REF").CreateAttr("ID-REF", idFor(p, "LAYER", p))
		}
	}

	if len(patterns) > 0 {
		vps := el.CreateElement("VARIANT-PATTERNS")
		for _, p := range patterns {
			vp := vps.CreateElement("VARIANT-PATTERN")
			mps := vp.CreateElement("MATCHING-PARAMETERS")
			for _, m := range p.MatchingParameters {
				mp := mps.CreateElement("MATCHING-PARAMETER")
				setChildText(mp, "EXPECTED-VALUE", m.ExpectedValue)
				setChildText(mp, "DIAG-COM-PARAM-SNREF", m.DiagComParamSnref)
			}
		}
	}

	if len(layer.ComParamRefs) > 0 {
		refs := el.CreateElement("COM-PARAM-REFS")
		for _, c := range layer.ComParamRefs {
			writeComParamRef(refs.CreateElement("COM-PARAM-REF"), c)
		}
	}

	if len(layer.FunctClasses) > 0 {
		fcs := el.CreateElement("FUNCT-CLASS-REFS")
		for _, fc := range layer.FunctClasses {
			fcs.CreateElement("FUNCT-CLASS-REF").CreateAttr("ID-REF", idFor(layer.ShortName, "FUNCT-CLASS", fc))
		}
	}

	if len(layer.AdditionalAudiences) > 0 {
		aas := el.CreateElement("ADDITIONAL-AUDIENCES")
		for _, name := range layer.AdditionalAudiences {
			aa := aas.CreateElement("ADDITIONAL-AUDIENCE")
			aa.CreateAttr("ID", idFor(layer.ShortName, "AUDIENCE", name))
			setChildText(aa, "SHORT-NAME", name)
		}
	}

	if len(layer.DataObjectProps) > 0 || len(layer.DtcDops) > 0 || len(layer.Structures) > 0 || len(layer.Tables) > 0 {
		ddds := el.CreateElement("DIAG-DATA-DICTIONARY-SPEC")
		writeDataDictionary(ddds, layer)
	}

	if len(layer.DiagServices) > 0 || len(layer.SingleEcuJobs) > 0 {
		comms := el.CreateElement("DIAG-COMMS")
		for _, svc := range layer.DiagServices {
			writeDiagService(comms.CreateElement("DIAG-SERVICE"), layer.ShortName, svc)
		}
		for _, job := range layer.SingleEcuJobs {
			writeSingleEcuJob(comms.CreateElement("SINGLE-ECU-JOB"), layer.ShortName, job)
		}
	}

	if len(layer.StateCharts) > 0 {
		charts := el.CreateElement("STATE-CHARTS")
		for _, sc := range layer.StateCharts {
			writeStateChart(charts.CreateElement("STATE-CHART"), layer.ShortName, sc)
		}
	}

	writeSdgs(el, layer.Sdgs)
}

func writeComParamRef(el *etree.Element, c ir.ComParamRef) {
	setAttrIfNonEmpty(el, "SHORT-NAME-REF", c.ShortNameRef)
	if c.Protocol != nil {
		el.CreateElement("PROTOCOL-SNREF").CreateAttr("SHORT-NAME", c.Protocol.ShortName)
	}
	if c.ProtStack != nil {
		el.CreateElement("PROT-STACK-SNREF").CreateAttr("SHORT-NAME", c.ProtStack.ShortName)
	}
	if c.SimpleValue != nil {
		setChildText(el, "SIMPLE-VALUE", c.SimpleValue.Value)
	}
}

func writeDataDictionary(ddds *etree.Element, layer ir.DiagLayer) {
	if len(layer.DataObjectProps) > 0 {
		dops := ddds.CreateElement("DATA-OBJECT-PROPS")
		for _, d := range layer.DataObjectProps {
			writeDataObjectProp(dops.CreateElement("DATA-OBJECT-PROP"), layer.ShortName, d)
		}
	}
	if len(layer.DtcDops) > 0 {
		dtcDops := ddds.CreateElement("DTC-DOPS")
		for _, d := range layer.DtcDops {
			el := dtcDops.CreateElement("DTC-DOP")
			el.CreateAttr("ID", idFor(layer.ShortName, "DTC-DOP", d.ShortName))
			setChildText(el, "SHORT-NAME", d.ShortName)
			writeDiagCodedType(el, d.DiagCodedType)
			if len(d.DtcRefs) > 0 {
				refs := el.CreateElement("DTC-REFS")
				for _, ref := range d.DtcRefs {
					refs.CreateElement("DTC-SNREF").CreateAttr("SHORT-NAME", ref)
				}
			}
		}
	}
	if len(layer.Structures) > 0 {
		structs := ddds.CreateElement("STRUCTURES")
		for _, s := range layer.Structures {
			el := structs.CreateElement("STRUCTURE")
			el.CreateAttr("ID", idFor(layer.ShortName, "STRUCTURE", s.ShortName))
			setChildText(el, "SHORT-NAME", s.ShortName)
			if len(s.Params) > 0 {
				params := el.CreateElement("PARAMS")
				for _, p := range s.Params {
					writeParam(params.CreateElement("PARAM"), p)
				}
			}
		}
	}
	if len(layer.Tables) > 0 {
		tables := ddds.CreateElement("TABLES")
		for _, t := range layer.Tables {
			el := tables.CreateElement("TABLE")
			el.CreateAttr("ID", idFor(layer.ShortName, "TABLE", t.ShortName))
			setChildText(el, "SHORT-NAME", t.ShortName)
			setChildText(el, "KEY-DOP-SNREF", t.KeyDopRef)
			if len(t.Rows) > 0 {
				rows := el.CreateElement("TABLE-ROWS")
				for _, r := range t.Rows {
					row := rows.CreateElement("TABLE-ROW")
					setChildText(row, "SHORT-NAME", r.ShortName)
					setChildText(row, "KEY", r.Key)
					setChildText(row, "STRUCTURE-SNREF", r.StructureRef)
				}
			}
		}
	}
}

func writeDataObjectProp(el *etree.Element, layerShortName string, d ir.DataObjectProp) {
	el.CreateAttr("ID", idFor(layerShortName, "DOP", d.ShortName))
	setChildText(el, "SHORT-NAME", d.ShortName)
	writeDiagCodedType(el, d.DiagCodedType)
	writeCompuMethod(el, d.CompuMethod)
	setChildText(el, "UNIT-REF", d.PhysicalUnitRef)
}

func writeDiagCodedType(el *etree.Element, t ir.DiagCodedType) {
	dct := el.CreateElement("DIAG-CODED-TYPE")
	dct.CreateAttr("BASE-DATA-TYPE", t.BaseDataType)
	dct.CreateAttr("BIT-LENGTH", fmt.Sprint(t.BitLength))
	dct.CreateAttr("IS-HIGHLOW-BYTE-ORDER", fmt.Sprint(t.IsHighLowByteOrder))
}

func writeCompuMethod(el *etree.Element, m ir.CompuMethod) {
	cm := el.CreateElement("COMPU-METHOD")
	setChildText(cm, "CATEGORY", m.Category.String())
	if m.InternalToPhys != nil {
		writeCompuInternalToPhys(cm.CreateElement("COMPU-INTERNAL-TO-PHYS"), *m.InternalToPhys)
	}
	if m.PhysToInternal != nil {
		writeCompuInternalToPhys(cm.CreateElement("COMPU-PHYS-TO-INTERNAL"), *m.PhysToInternal)
	}
}

func writeCompuInternalToPhys(el *etree.Element, c ir.CompuInternalToPhys) {
	setChildText(el, "PROG-CODE", c.ProgCode)
	setChildText(el, "COMPU-DEFAULT-VALUE", c.CompuDefaultValue)
	if len(c.CompuScales) == 0 {
		return
	}
	scales := el.CreateElement("COMPU-SCALES")
	for _, s := range c.CompuScales {
		writeCompuScale(scales.CreateElement("COMPU-SCALE"), s)
	}
}

func writeCompuScale(el *etree.Element, s ir.CompuScale) {
	setChildText(el, "SHORT-LABEL", s.ShortLabel)
	writeLimit(el, "LOWER-LIMIT", s.LowerLimit)
	writeLimit(el, "UPPER-LIMIT", s.UpperLimit)
	setChildText(el, "COMPU-INVERSE-VALUE", s.InverseValue)
	setChildText(el, "COMPU-CONST", s.ConstValue)
	if len(s.RationalCoeffsNumerator) == 0 && len(s.RationalCoeffsDenominator) == 0 {
		return
	}
	rc := el.CreateElement("COMPU-RATIONAL-COEFFS")
	if len(s.RationalCoeffsNumerator) > 0 {
		num := rc.CreateElement("COMPU-NUMERATOR")
		for _, v := range s.RationalCoeffsNumerator {
			num.CreateElement("V").SetText(v)
		}
	}
	if len(s.RationalCoeffsDenominator) > 0 {
		den := rc.CreateElement("COMPU-DENOMINATOR")
		for _, v := range s.RationalCoeffsDenominator {
			den.CreateElement("V").SetText(v)
		}
	}
}

func writeLimit(parent *etree.Element, tag string, l *ir.Limit) {
	if l == nil {
		return
	}
	el := parent.CreateElement(tag)
	el.CreateAttr("INTERVAL-TYPE", l.IntervalType.String())
	el.SetText(l.Value)
}

func writeDiagComm(el *etree.Element, layerShortName string, c ir.DiagComm) {
	el.CreateAttr("ID", idFor(layerShortName, "COMM", c.ShortName))
	setAttrIfNonEmpty(el, "SEMANTIC", c.Semantic)
	el.CreateAttr("DIAG-CLASS-TYPE", diagClassTypeTag(c.DiagClassType))
	el.CreateAttr("IS-MANDATORY", fmt.Sprint(c.IsMandatory))
	el.CreateAttr("IS-EXECUTABLE", fmt.Sprint(c.IsExecutable))
	el.CreateAttr("IS-FINAL", fmt.Sprint(c.IsFinal))
	setChildText(el, "SHORT-NAME", c.ShortName)
	setChildText(el, "LONG-NAME", c.LongName)
	if c.Audience != nil {
		writeAudience(el.CreateElement("AUDIENCE"), *c.Audience)
	}
	if len(c.Protocols) > 0 {
		protos := el.CreateElement("PROTOCOLS")
		for _, p := range c.Protocols {
			protos.CreateElement("PROTOCOL-SNREF").CreateAttr("SHORT-NAME", p)
		}
	}
	if len(c.PreConditionStateRefs) > 0 {
		refs := el.CreateElement("PRE-CONDITION-STATE-REFS")
		for _, r := range c.PreConditionStateRefs {
			writeStateRef(refs.CreateElement("PRE-CONDITION-STATE-REF"), r)
		}
	}
	if len(c.StateTransitionRefs) > 0 {
		refs := el.CreateElement("STATE-TRANSITION-REFS")
		for _, r := range c.StateTransitionRefs {
			writeStateRef(refs.CreateElement("STATE-TRANSITION-REF"), r)
		}
	}
	writeSdgs(el, c.Sdgs)
}

func writeStateRef(el *etree.Element, r ir.StateRef) {
	el.CreateAttr("STATE-CHART-SNREF", r.StateChartShortNameRef)
	el.CreateAttr("STATE-SNREF", r.StateShortNameRef)
}

func writeAudience(el *etree.Element, a ir.Audience) {
	el.CreateAttr("IS-DEVELOPMENT", fmt.Sprint(a.IsDevelopment))
	el.CreateAttr("IS-SUPPLIER", fmt.Sprint(a.IsSupplier))
	el.CreateAttr("IS-MANUFACTURING", fmt.Sprint(a.IsManufacturing))
	el.CreateAttr("IS-AFTERSALES", fmt.Sprint(a.IsAftersales))
	el.CreateAttr("IS-AFTERMARKET", fmt.Sprint(a.IsAftermarket))
	if len(a.EnabledAudiences) > 0 {
		refs := el.CreateElement("ENABLED-AUDIENCE-REFS")
		for _, r := range a.EnabledAudiences {
			refs.CreateElement("ENABLED-AUDIENCE-REF").CreateAttr("SHORT-NAME", r.ShortName)
		}
	}
	if len(a.DisabledAudiences) > 0 {
		refs := el.CreateElement("DISABLED-AUDIENCE-REFS")
		for _, r := range a.DisabledAudiences {
			refs.CreateElement("DISABLED-AUDIENCE-REF").CreateAttr("SHORT-NAME", r.ShortName)
		}
	}
}

func diagClassTypeTag(t ir.DiagClassType) string {
	switch t {
	case ir.DiagClassTypeStopComm:
		return "STOP-COMM"
	case ir.DiagClassTypeVariantIdentification:
		return "VARIANT-IDENTIFICATION"
	case ir.DiagClassTypeReadDynamicallyDefinedDataIdentifier:
		return "READ-DYNAMICALLY-DEFINED-DATA-IDENTIFIER"
	case ir.DiagClassTypeDynamicallyDefineDataIdentifier:
		return "DYNAMICALLY-DEFINE-DATA-IDENTIFIER"
	case ir.DiagClassTypeClearDiagnosticInformation:
		return "CLEAR-DIAGNOSTIC-INFORMATION"
	default:
		return "START-COMM"
	}
}

func writeDiagService(el *etree.Element, layerShortName string, svc ir.DiagService) {
	writeDiagComm(el, layerShortName, svc.DiagComm)
	el.CreateAttr("ADDRESSING", addressingTag(svc.Addressing))
	el.CreateAttr("TRANSMISSION-MODE", transmissionModeTag(svc.TransmissionMode))
	el.CreateAttr("IS-CYCLIC", fmt.Sprint(svc.IsCyclic))
	el.CreateAttr("IS-MULTIPLE", fmt.Sprint(svc.IsMultiple))
	if svc.Request != nil {
		writeMessage(el.CreateElement("REQUEST"), *svc.Request)
	}
	if len(svc.PosResponses) > 0 {
		group := el.CreateElement("POS-RESPONSES")
		for _, m := range svc.PosResponses {
			writeMessage(group.CreateElement("POS-RESPONSE"), m)
		}
	}
	if len(svc.NegResponses) > 0 {
		group := el.CreateElement("NEG-RESPONSES")
		for _, m := range svc.NegResponses {
			writeMessage(group.CreateElement("NEG-RESPONSE"), m)
		}
	}
	if len(svc.ComParamRefs) > 0 {
		refs := el.CreateElement("COM-PARAM-REFS")
		for _, c := range svc.ComParamRefs {
			writeComParamRef(refs.CreateElement("COM-PARAM-REF"), c)
		}
	}
}

func addressingTag(a ir.Addressing) string {
	if a == ir.AddressingFunctional {
		return "FUNCTIONAL"
	}
	return "PHYSICAL"
}

func transmissionModeTag(t ir.TransmissionMode) string {
	switch t {
	case ir.TransmissionModeSendOnly:
		return "SEND-ONLY"
	case ir.TransmissionModeSendOrReceive:
		return "SEND-OR-RECEIVE"
	default:
		return "SEND-AND-RECEIVE"
	}
}

func writeSingleEcuJob(el *etree.Element, layerShortName string, job ir.SingleEcuJob) {
	writeDiagComm(el, layerShortName, job.DiagComm)
	if len(job.ProgCodes) > 0 {
		codes := el.CreateElement("PROG-CODES")
		for _, c := range job.ProgCodes {
			codes.CreateElement("PROG-CODE").SetText(c)
		}
	}
}

func writeMessage(el *etree.Element, msg ir.Message) {
	setChildText(el, "SHORT-NAME", msg.ShortName)
	if len(msg.Params) == 0 {
		return
	}
	params := el.CreateElement("PARAMS")
	for _, p := range msg.Params {
		writeParam(params.CreateElement("PARAM"), p)
	}
}

func writeParam(el *etree.Element, p ir.Param) {
	el.CreateAttr("xsi:type", p.Kind.String())
	el.CreateAttr("BYTE-POSITION", fmt.Sprint(p.BytePosition))
	el.CreateAttr("BIT-LENGTH", fmt.Sprint(p.BitLength))
	setChildText(el, "SHORT-NAME", p.ShortName)
	setChildText(el, "CODED-VALUE", p.CodedValue)
	setAttrRef(el, "DOP-SNREF", p.DopRef)
	if p.Kind == ir.ParamKindMatchingRequestParam {
		el.CreateElement("REQUEST-BYTE-POSITION").SetText(fmt.Sprint(p.RequestBytePosition))
	}
	setAttrRef(el, "TABLE-SNREF", p.TableRef)
	setAttrRef(el, "TABLE-ROW-SNREF", p.TableRowRef)
	setAttrRef(el, "LENGTH-KEY-SNREF", p.LengthKeyRef)
}

func setAttrRef(parent *etree.Element, tag, shortName string) {
	if shortName == "" {
		return
	}
	parent.CreateElement(tag).CreateAttr("SHORT-NAME", shortName)
}

func writeStateChart(el *etree.Element, layerShortName string, sc ir.StateChart) {
	el.CreateAttr("ID", idFor(layerShortName, "STATE-CHART", sc.ShortName))
	setAttrIfNonEmpty(el, "SEMANTIC", sc.Semantic)
	setChildText(el, "SHORT-NAME", sc.ShortName)
	setChildText(el, "START-STATE-SNREF", sc.StartStateShortNameRef)
	if len(sc.States) > 0 {
		states := el.CreateElement("STATES")
		for _, s := range sc.States {
			state := states.CreateElement("STATE")
			state.CreateAttr("ID", idFor(layerShortName, "STATE", s.ShortName))
			setChildText(state, "SHORT-NAME", s.ShortName)
			setChildText(state, "LONG-NAME", s.LongName)
		}
	}
	if len(sc.StateTransitions) > 0 {
		trans := el.CreateElement("STATE-TRANSITIONS")
		for _, t := range sc.StateTransitions {
			tel := trans.CreateElement("STATE-TRANSITION")
			tel.CreateAttr("ID", idFor(layerShortName, "TRANSITION", t.ShortName))
			setChildText(tel, "SHORT-NAME", t.ShortName)
			setChildText(tel, "SOURCE-SNREF", t.SourceShortNameRef)
			setChildText(tel, "TARGET-SNREF", t.TargetShortNameRef)
			setChildText(tel, "DIAG-COMM-SNREF", t.DiagComShortNameRef)
		}
	}
}

func writeSdgs(parent *etree.Element, sdgs *ir.Sdgs) {
	if sdgs == nil || len(sdgs.Entries) == 0 {
		return
	}
	el := parent.CreateElement("SDGS")
	for _, e := range sdgs.Entries {
		writeSdgEntry(el, e)
	}
}

func writeSdgEntry(parent *etree.Element, e ir.SdgEntry) {
	el := parent.CreateElement("SDG")
	el.CreateAttr("SI", e.Key)
	if len(e.Children) == 0 {
		setChildText(el, "SD", e.Value)
		return
	}
	for _, c := range e.Children {
		writeSdgEntry(el, c)
	}
}
