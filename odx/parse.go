package odx

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// Parse converts a parsed ODX document into a DiagDatabase. doc must contain
// exactly one ODX root holding one DIAG-LAYER-CONTAINER; PDX archives carry
// several such documents and merge them separately (see package pdx).
func Parse(doc *etree.Document) (*ir.DiagDatabase, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if root.Tag != "ODX" {
		return nil, fmt.Errorf("unexpected root element %q, want ODX", root.Tag)
	}

	container := root.SelectElement("DIAG-LAYER-CONTAINER")
	if container == nil {
		if root.SelectElement("COMPARAM-SPEC") != nil {
			// A communication parameter catalogue carries no diagnostic
			// layers of its own; PDX archives ship these alongside ECU
			// descriptions, so they parse to an empty database rather
			// than failing the whole archive.
			return &ir.DiagDatabase{}, nil
		}
		return nil, fmt.Errorf("ODX root has no DIAG-LAYER-CONTAINER")
	}

	idx, err := buildIndex(container)
	if err != nil {
		return nil, fmt.Errorf("DIAG-LAYER-CONTAINER %q: %w", childText(container, "SHORT-NAME"), err)
	}

	effective, err := flattenLayers(idx)
	if err != nil {
		return nil, fmt.Errorf("DIAG-LAYER-CONTAINER %q: %w", childText(container, "SHORT-NAME"), err)
	}

	db := &ir.DiagDatabase{
		EcuName:  childText(container, "SHORT-NAME"),
		Version:  root.SelectAttrValue("MODEL-VERSION", ""),
		Revision: childText(childElement(container, "ADMIN-DATA", "DOC-REVISIONS", "DOC-REVISION"), "REVISION-LABEL"),
	}

	for _, entry := range idx.layers {
		eff := effective[entry.shortName]
		layer := materializeLayer(entry, eff, idx)
		switch entry.kind {
		case layerFunctionalGroup:
			db.FunctionalGroups = append(db.FunctionalGroups, ir.FunctionalGroup{
				DiagLayer:  layer,
				ParentRefs: parentShortNames(entry, idx),
			})
		default:
			db.Variants = append(db.Variants, ir.Variant{
				DiagLayer:       layer,
				IsBaseVariant:   entry.kind == layerBaseVariant,
				VariantPatterns: parseVariantPatterns(entry.el),
				ParentRefs:      parentShortNames(entry, idx),
			})
		}
	}

	if dtcs := container.SelectElement("DTCS"); dtcs != nil {
		for _, el := range dtcs.SelectElements("DTC") {
			db.Dtcs = append(db.Dtcs, ir.Dtc{
				ShortName:          childText(el, "SHORT-NAME"),
				TroubleCode:        attrUint32Hex(el, "TROUBLE-CODE"),
				Text:               childText(el, "TEXT"),
				Severity:           childText(el, "SEVERITY"),
				DisplayTroubleCode: el.SelectAttrValue("DISPLAY-TROUBLE-CODE", ""),
			})
		}
	}

	return db, nil
}

func parentShortNames(entry *layerEntry, idx *OdxIndex) []string {
	var out []string
	for _, id := range entry.parentRefs {
		if name := idx.shortNameOf(id); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func parseVariantPatterns(layerEl *etree.Element) []ir.VariantPattern {
	patterns := layerEl.SelectElement("VARIANT-PATTERNS")
	if patterns == nil {
		return nil
	}
	var out []ir.VariantPattern
	for _, vp := range patterns.SelectElements("VARIANT-PATTERN") {
		var pattern ir.VariantPattern
		mp := vp.SelectElement("MATCHING-PARAMETERS")
		if mp == nil {
			continue
		}
		for _, m := range mp.SelectElements("MATCHING-PARAMETER") {
			pattern.MatchingParameters = append(pattern.MatchingParameters, ir.MatchingParameter{
				ExpectedValue:     childText(m, "EXPECTED-VALUE"),
				DiagComParamSnref: childText(m, "DIAG-COM-PARAM-SNREF"),
			})
		}
		out = append(out, pattern)
	}
	return out
}

func materializeLayer(entry *layerEntry, eff *effectiveLayer, idx *OdxIndex) ir.DiagLayer {
	layer := ir.DiagLayer{
		ShortName:           entry.shortName,
		LongName:            childText(entry.el, "LONG-NAME"),
		AdditionalAudiences: additionalAudienceNames(eff),
		Sdgs:                parseSdgs(entry.el.SelectElement("SDGS")),
	}
	if eff == nil {
		return layer
	}

	layer.FunctClasses = resolveFunctClasses(eff.functClasses, idx)
	layer.ComParamRefs = parseComParamRefs(eff.comParamRefs)
	layer.DataObjectProps = parseDataObjectProps(eff.dataObjectProps)
	layer.DtcDops = parseDtcDops(eff.dtcDops)
	layer.Structures = parseStructures(eff.structures)
	layer.Tables = parseTables(eff.tables)
	layer.StateCharts = parseStateCharts(eff.stateCharts)

	for _, el := range eff.diagComms {
		switch el.Tag {
		case "SINGLE-ECU-JOB":
			layer.SingleEcuJobs = append(layer.SingleEcuJobs, parseSingleEcuJob(el))
		default: // DIAG-SERVICE, or an unrecognised comm treated as a service
			layer.DiagServices = append(layer.DiagServices, parseDiagService(el))
		}
	}

	return layer
}

func additionalAudienceNames(eff *effectiveLayer) []string {
	if eff == nil {
		return nil
	}
	var out []string
	for _, el := range eff.audiences {
		out = append(out, childText(el, "SHORT-NAME"))
	}
	return out
}

func resolveFunctClasses(ids []string, idx *OdxIndex) []string {
	var out []string
	for _, id := range ids {
		if name := idx.shortNameOf(id); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func parseComParamRefs(els []*etree.Element) []ir.ComParamRef {
	var out []ir.ComParamRef
	for _, el := range els {
		ref := ir.ComParamRef{
			ShortNameRef: el.SelectAttrValue("SHORT-NAME-REF", ""),
		}
		if v := childText(el, "SIMPLE-VALUE"); v != "" {
			ref.SimpleValue = &ir.SimpleValue{Value: v}
		}
		if p := el.SelectElement("PROTOCOL-SNREF"); p != nil {
			ref.Protocol = &ir.ProtocolRef{ShortName: p.SelectAttrValue("SHORT-NAME", "")}
		}
		if p := el.SelectElement("PROT-STACK-SNREF"); p != nil {
			ref.ProtStack = &ir.ProtStackRef{ShortName: p.SelectAttrValue("SHORT-NAME", "")}
		}
		out = append(out, ref)
	}
	return out
}

func parseSdgs(el *etree.Element) *ir.Sdgs {
	if el == nil {
		return nil
	}
	sdgs := &ir.Sdgs{}
	for _, sd := range el.SelectElements("SDG") {
		sdgs.Entries = append(sdgs.Entries, parseSdgEntry(sd))
	}
	if len(sdgs.Entries) == 0 {
		return nil
	}
	return sdgs
}

func parseSdgEntry(el *etree.Element) ir.SdgEntry {
	entry := ir.SdgEntry{
		Key:   el.SelectAttrValue("SI", ""),
		Value: el.SelectAttrValue("SI", ""),
	}
	if v := childText(el, "SD"); v != "" {
		entry.Value = v
	}
	for _, child := range el.SelectElements("SDG") {
		entry.Children = append(entry.Children, parseSdgEntry(child))
	}
	return entry
}

func parseDiagCodedType(el *etree.Element) ir.DiagCodedType {
	if el == nil {
		return ir.DiagCodedType{}
	}
	return ir.DiagCodedType{
		BaseDataType:       el.SelectAttrValue("BASE-DATA-TYPE", ""),
		BitLength:          attrInt(el, "BIT-LENGTH", 0),
		IsHighLowByteOrder: attrBool(el, "IS-HIGHLOW-BYTE-ORDER", true),
	}
}

func parseCompuMethod(el *etree.Element) ir.CompuMethod {
	if el == nil {
		return ir.CompuMethod{}
	}
	var method ir.CompuMethod
	switch childText(el, "CATEGORY") {
	case "LINEAR":
		method.Category = ir.CompuCategoryLinear
	case "SCALE-LINEAR":
		method.Category = ir.CompuCategoryScaleLinear
	case "TEXTTABLE":
		method.Category = ir.CompuCategoryTexttableRat
	case "TAB-INTP":
		method.Category = ir.CompuCategoryTabIntp
	case "COMPUCODE":
		method.Category = ir.CompuCategoryCompucode
	default:
		method.Category = ir.CompuCategoryIdentical
	}
	method.InternalToPhys = parseCompuInternalToPhys(el.SelectElement("COMPU-INTERNAL-TO-PHYS"))
	method.PhysToInternal = parseCompuInternalToPhys(el.SelectElement("COMPU-PHYS-TO-INTERNAL"))
	return method
}

func parseCompuInternalToPhys(el *etree.Element) *ir.CompuInternalToPhys {
	if el == nil {
		return nil
	}
	out := &ir.CompuInternalToPhys{
		ProgCode:          childText(el, "PROG-CODE"),
		CompuDefaultValue: childText(el, "COMPU-DEFAULT-VALUE"),
	}
	scales := el.SelectElement("COMPU-SCALES")
	if scales == nil {
		return out
	}
	for _, sc := range scales.SelectElements("COMPU-SCALE") {
		out.CompuScales = append(out.CompuScales, parseCompuScale(sc))
	}
	return out
}

func parseCompuScale(el *etree.Element) ir.CompuScale {
	scale := ir.CompuScale{
		ShortLabel:   childText(el, "SHORT-LABEL"),
		LowerLimit:   parseLimit(el.SelectElement("LOWER-LIMIT")),
		UpperLimit:   parseLimit(el.SelectElement("UPPER-LIMIT")),
		InverseValue: childText(el, "COMPU-INVERSE-VALUE"),
		ConstValue:   childText(el, "COMPU-CONST"),
	}
	if rc := el.SelectElement("COMPU-RATIONAL-COEFFS"); rc != nil {
		if num := rc.SelectElement("COMPU-NUMERATOR"); num != nil {
			for _, v := range num.SelectElements("V") {
				scale.RationalCoeffsNumerator = append(scale.RationalCoeffsNumerator, v.Text())
			}
		}
		if den := rc.SelectElement("COMPU-DENOMINATOR"); den != nil {
			for _, v := range den.SelectElements("V") {
				scale.RationalCoeffsDenominator = append(scale.RationalCoeffsDenominator, v.Text())
			}
		}
	}
	return scale
}

func parseLimit(el *etree.Element) *ir.Limit {
	if el == nil {
		return nil
	}
	limit := &ir.Limit{Value: el.Text()}
	if el.SelectAttrValue("INTERVAL-TYPE", "") == "OPEN" {
		limit.IntervalType = ir.IntervalTypeOpen
	}
	return limit
}

func parseDataObjectProps(els []*etree.Element) []ir.DataObjectProp {
	var out []ir.DataObjectProp
	for _, el := range els {
		out = append(out, ir.DataObjectProp{
			ShortName:       childText(el, "SHORT-NAME"),
			DiagCodedType:   parseDiagCodedType(el.SelectElement("DIAG-CODED-TYPE")),
			CompuMethod:     parseCompuMethod(el.SelectElement("COMPU-METHOD")),
			PhysicalUnitRef: childText(el, "UNIT-REF"),
		})
	}
	return out
}

func parseDtcDops(els []*etree.Element) []ir.DtcDop {
	var out []ir.DtcDop
	for _, el := range els {
		dop := ir.DtcDop{
			ShortName:     childText(el, "SHORT-NAME"),
			DiagCodedType: parseDiagCodedType(el.SelectElement("DIAG-CODED-TYPE")),
		}
		if refs := el.SelectElement("DTC-REFS"); refs != nil {
			for _, ref := range refs.SelectElements("DTC-SNREF") {
				dop.DtcRefs = append(dop.DtcRefs, ref.SelectAttrValue("SHORT-NAME", ""))
			}
		}
		out = append(out, dop)
	}
	return out
}

func parseStructures(els []*etree.Element) []ir.Structure {
	var out []ir.Structure
	for _, el := range els {
		s := ir.Structure{ShortName: childText(el, "SHORT-NAME")}
		if params := el.SelectElement("PARAMS"); params != nil {
			for _, p := range params.SelectElements("PARAM") {
				s.Params = append(s.Params, parseParam(p))
			}
		}
		out = append(out, s)
	}
	return out
}

func parseTables(els []*etree.Element) []ir.Table {
	var out []ir.Table
	for _, el := range els {
		t := ir.Table{
			ShortName: childText(el, "SHORT-NAME"),
			KeyDopRef: childText(el, "KEY-DOP-SNREF"),
		}
		if rows := el.SelectElement("TABLE-ROWS"); rows != nil {
			for _, r := range rows.SelectElements("TABLE-ROW") {
				t.Rows = append(t.Rows, ir.TableRow{
					ShortName:    childText(r, "SHORT-NAME"),
					Key:          childText(r, "KEY"),
					StructureRef: childText(r, "STRUCTURE-SNREF"),
				})
			}
		}
		out = append(out, t)
	}
	return out
}

func parseStateCharts(els []*etree.Element) []ir.StateChart {
	var out []ir.StateChart
	for _, el := range els {
		sc := ir.StateChart{
			ShortName:              childText(el, "SHORT-NAME"),
			Semantic:               el.SelectAttrValue("SEMANTIC", ""),
			StartStateShortNameRef: childText(el, "START-STATE-SNREF"),
		}
		if states := el.SelectElement("STATES"); states != nil {
			for _, s := range states.SelectElements("STATE") {
				sc.States = append(sc.States, ir.State{
					ShortName: childText(s, "SHORT-NAME"),
					LongName:  childText(s, "LONG-NAME"),
				})
			}
		}
		if trans := el.SelectElement("STATE-TRANSITIONS"); trans != nil {
			for _, t := range trans.SelectElements("STATE-TRANSITION") {
				sc.StateTransitions = append(sc.StateTransitions, ir.StateTransition{
					ShortName:           childText(t, "SHORT-NAME"),
					SourceShortNameRef:  childText(t, "SOURCE-SNREF"),
					TargetShortNameRef:  childText(t, "TARGET-SNREF"),
					DiagComShortNameRef: childText(t, "DIAG-COMM-SNREF"),
				})
			}
		}
		out = append(out, sc)
	}
	return out
}

func parseDiagComm(el *etree.Element) ir.DiagComm {
	comm := ir.DiagComm{
		ShortName:   childText(el, "SHORT-NAME"),
		LongName:    childText(el, "LONG-NAME"),
		Semantic:    el.SelectAttrValue("SEMANTIC", ""),
		Sdgs:        parseSdgs(el.SelectElement("SDGS")),
		IsMandatory: attrBool(el, "IS-MANDATORY", false),
		IsExecutable: attrBool(el, "IS-EXECUTABLE", true),
		IsFinal:      attrBool(el, "IS-FINAL", false),
	}
	comm.DiagClassType = parseDiagClassType(el.SelectAttrValue("DIAG-CLASS-TYPE", ""))
	if protos := el.SelectElement("PROTOCOLS"); protos != nil {
		for _, p := range protos.SelectElements("PROTOCOL-SNREF") {
			comm.Protocols = append(comm.Protocols, p.SelectAttrValue("SHORT-NAME", ""))
		}
	}
	if refs := el.SelectElement("PRE-CONDITION-STATE-REFS"); refs != nil {
		for _, r := range refs.SelectElements("PRE-CONDITION-STATE-REF") {
			comm.PreConditionStateRefs = append(comm.PreConditionStateRefs, parseStateRef(r))
		}
	}
	if refs := el.SelectElement("STATE-TRANSITION-REFS"); refs != nil {
		for _, r := range refs.SelectElements("STATE-TRANSITION-REF") {
			comm.StateTransitionRefs = append(comm.StateTransitionRefs, parseStateRef(r))
		}
	}
	comm.Audience = parseAudience(el.SelectElement("AUDIENCE"))
	return comm
}

func parseStateRef(el *etree.Element) ir.StateRef {
	return ir.StateRef{
		StateChartShortNameRef: el.SelectAttrValue("STATE-CHART-SNREF", ""),
		StateShortNameRef:      el.SelectAttrValue("STATE-SNREF", ""),
	}
}

func parseAudience(el *etree.Element) *ir.Audience {
	if el == nil {
		return nil
	}
	aud := &ir.Audience{
		IsDevelopment:   attrBool(el, "IS-DEVELOPMENT", false),
		IsSupplier:      attrBool(el, "IS-SUPPLIER", false),
		IsManufacturing: attrBool(el, "IS-MANUFACTURING", false),
		IsAftersales:    attrBool(el, "IS-AFTERSALES", false),
		IsAftermarket:   attrBool(el, "IS-AFTERMARKET", false),
	}
	if refs := el.SelectElement("ENABLED-AUDIENCE-REFS"); refs != nil {
		for _, r := range refs.SelectElements("ENABLED-AUDIENCE-REF") {
			aud.EnabledAudiences = append(aud.EnabledAudiences, ir.AudienceRef{ShortName: r.SelectAttrValue("SHORT-NAME", "")})
		}
	}
	if refs := el.SelectElement("DISABLED-AUDIENCE-REFS"); refs != nil {
		for _, r := range refs.SelectElements("DISABLED-AUDIENCE-REF") {
			aud.DisabledAudiences = append(aud.DisabledAudiences, ir.AudienceRef{ShortName: r.SelectAttrValue("SHORT-NAME", "")})
		}
	}
	return aud
}

func parseDiagClassType(s string) ir.DiagClassType {
	switch s {
	case "STOP-COMM":
		return ir.DiagClassTypeStopComm
	case "VARIANT-IDENTIFICATION":
		return ir.DiagClassTypeVariantIdentification
	case "READ-DYNAMICALLY-DEFINED-DATA-IDENTIFIER":
		return ir.DiagClassTypeReadDynamicallyDefinedDataIdentifier
	case "DYNAMICALLY-DEFINE-DATA-IDENTIFIER":
		return ir.DiagClassTypeDynamicallyDefineDataIdentifier
	case "CLEAR-DIAGNOSTIC-INFORMATION":
		return ir.DiagClassTypeClearDiagnosticInformation
	default:
		return ir.DiagClassTypeStartComm
	}
}

func parseDiagService(el *etree.Element) ir.DiagService {
	svc := ir.DiagService{
		DiagComm:   parseDiagComm(el),
		IsCyclic:   attrBool(el, "IS-CYCLIC", false),
		IsMultiple: attrBool(el, "IS-MULTIPLE", false),
	}
	if el.SelectAttrValue("ADDRESSING", "") == "FUNCTIONAL" {
		svc.Addressing = ir.AddressingFunctional
	}
	switch el.SelectAttrValue("TRANSMISSION-MODE", "") {
	case "SEND-ONLY":
		svc.TransmissionMode = ir.TransmissionModeSendOnly
	case "SEND-OR-RECEIVE":
		svc.TransmissionMode = ir.TransmissionModeSendOrReceive
	default:
		svc.TransmissionMode = ir.TransmissionModeSendAndReceive
	}
	if req := el.SelectElement("REQUEST"); req != nil {
		msg := parseMessage(req)
		svc.Request = &msg
	}
	if pos := el.SelectElement("POS-RESPONSES"); pos != nil {
		for _, r := range pos.SelectElements("POS-RESPONSE") {
			svc.PosResponses = append(svc.PosResponses, parseMessage(r))
		}
	}
	if neg := el.SelectElement("NEG-RESPONSES"); neg != nil {
		for _, r := range neg.SelectElements("NEG-RESPONSE") {
			svc.NegResponses = append(svc.NegResponses, parseMessage(r))
		}
	}
	if cprefs := el.SelectElement("COM-PARAM-REFS"); cprefs != nil {
		svc.ComParamRefs = parseComParamRefs(cprefs.SelectElements("COM-PARAM-REF"))
	}
	return svc
}

func parseSingleEcuJob(el *etree.Element) ir.SingleEcuJob {
	job := ir.SingleEcuJob{DiagComm: parseDiagComm(el)}
	if pcs := el.SelectElement("PROG-CODES"); pcs != nil {
		for _, p := range pcs.SelectElements("PROG-CODE") {
			job.ProgCodes = append(job.ProgCodes, p.Text())
		}
	}
	return job
}

func parseMessage(el *etree.Element) ir.Message {
	msg := ir.Message{ShortName: childText(el, "SHORT-NAME")}
	if params := el.SelectElement("PARAMS"); params != nil {
		for _, p := range params.SelectElements("PARAM") {
			msg.Params = append(msg.Params, parseParam(p))
		}
	}
	return msg
}

func parseParam(el *etree.Element) ir.Param {
	p := ir.Param{
		ShortName:    childText(el, "SHORT-NAME"),
		Kind:         parseParamKind(el.SelectAttrValue("xsi:type", "")),
		BytePosition: attrInt(el, "BYTE-POSITION", 0),
		BitLength:    attrInt(el, "BIT-LENGTH", 0),
	}
	p.CodedValue = childText(el, "CODED-VALUE")
	if dop := el.SelectElement("DOP-SNREF"); dop != nil {
		p.DopRef = dop.SelectAttrValue("SHORT-NAME", "")
	}
	if rbp := el.SelectElement("REQUEST-BYTE-POSITION"); rbp != nil {
		p.RequestBytePosition = elemInt(rbp)
	}
	if tr := el.SelectElement("TABLE-SNREF"); tr != nil {
		p.TableRef = tr.SelectAttrValue("SHORT-NAME", "")
	}
	if tr := el.SelectElement("TABLE-ROW-SNREF"); tr != nil {
		p.TableRowRef = tr.SelectAttrValue("SHORT-NAME", "")
	}
	if lk := el.SelectElement("LENGTH-KEY-SNREF"); lk != nil {
		p.LengthKeyRef = lk.SelectAttrValue("SHORT-NAME", "")
	}
	return p
}

func parseParamKind(xsiType string) ir.ParamKind {
	switch xsiType {
	case "VALUE":
		return ir.ParamKindValue
	case "RESERVED":
		return ir.ParamKindReserved
	case "MATCHING-REQUEST-PARAM":
		return ir.ParamKindMatchingRequestParam
	case "PHYS-CONST":
		return ir.ParamKindPhysConst
	case "TABLE-KEY":
		return ir.ParamKindTableKey
	case "TABLE-STRUCT":
		return ir.ParamKindTableStruct
	case "LENGTH-KEY":
		return ir.ParamKindLengthKey
	case "NRC-CONST":
		return ir.ParamKindNrcConst
	default:
		return ir.ParamKindCodedConst
	}
}
