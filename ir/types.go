// Package ir defines the canonical in-memory data model for an ECU
// diagnostic description. Every input format (ODX, PDX, YAML) parses into a
// DiagDatabase, and every output format (ODX, YAML, MDD) is produced from
// one. Cross-entity relationships are carried by short-name, never by
// pointer, so a DiagDatabase owns its entire tree and can be copied,
// filtered, and serialised without aliasing concerns.
package ir

// DiagDatabase is the top-level entity: everything describing one ECU's
// diagnostic surface.
type DiagDatabase struct {
	EcuName          string
	Version          string
	Revision         string
	Variants         []Variant
	FunctionalGroups []FunctionalGroup
	Dtcs             []Dtc
}

// Variant is a concrete ECU configuration: the base variant plus zero or
// more derived (ECU) variants.
type Variant struct {
	DiagLayer      DiagLayer
	IsBaseVariant  bool
	VariantPatterns []VariantPattern
	ParentRefs     []string
}

// VariantPattern matches a variant against observed identification data;
// the pattern content itself is opaque to the conversion pipeline.
type VariantPattern struct {
	MatchingParameters []MatchingParameter
}

// MatchingParameter pairs an expected value with the DOP used to decode it.
type MatchingParameter struct {
	ExpectedValue string
	DiagComParamSnref string
}

// FunctionalGroup is a cross-variant grouping of services that apply to a
// functional addressing scope rather than a single ECU variant.
type FunctionalGroup struct {
	DiagLayer  DiagLayer
	ParentRefs []string
}

// DiagLayer is the scope shared by Variant and FunctionalGroup: services,
// jobs, state charts, and data dictionary references that apply within it.
// Inheritance (ODX parent-ref DAG) is already flattened by the time a
// DiagLayer reaches the IR: every DiagLayer holds its own effective set.
type DiagLayer struct {
	ShortName           string
	LongName             string
	FunctClasses         []string
	ComParamRefs         []ComParamRef
	DiagServices         []DiagService
	SingleEcuJobs        []SingleEcuJob
	StateCharts          []StateChart
	AdditionalAudiences  []string
	Sdgs                 *Sdgs

	DataObjectProps []DataObjectProp
	DtcDops         []DtcDop
	Structures      []Structure
	Tables          []Table
}

// ComParamRef references a communication parameter by short-name, carrying
// an optional inline override value and protocol/prot-stack scoping.
type ComParamRef struct {
	ShortNameRef string
	SimpleValue  *SimpleValue
	Protocol     *ProtocolRef
	ProtStack    *ProtStackRef
}

// SimpleValue is a scalar override value carried on a ComParamRef.
type SimpleValue struct {
	Value string
}

// ProtocolRef names a protocol layer by short-name (SNREF).
type ProtocolRef struct {
	ShortName string
}

// ProtStackRef names a protocol stack by short-name (SNREF).
type ProtStackRef struct {
	ShortName string
}

// Sdgs (structured data groups) is an opaque key/value tree carried
// verbatim from ODX SDGS elements; it has no semantic meaning to the
// conversion pipeline beyond round-tripping.
type Sdgs struct {
	Entries []SdgEntry
}

// SdgEntry is a single structured-data key/value pair, possibly nested.
type SdgEntry struct {
	Key      string
	Value    string
	Children []SdgEntry
}

// DiagClassType distinguishes the category of a diagnostic communication
// object (ODX DIAG-COMM-TYPE attribute).
type DiagClassType int

// ENUM(StartComm, StopComm, VariantIdentification, ReadDynamicallyDefinedDataIdentifier,
// DynamicallyDefineDataIdentifier, ClearDiagnosticInformation)
const (
	DiagClassTypeStartComm DiagClassType = iota
	DiagClassTypeStopComm
	DiagClassTypeVariantIdentification
	DiagClassTypeReadDynamicallyDefinedDataIdentifier
	DiagClassTypeDynamicallyDefineDataIdentifier
	DiagClassTypeClearDiagnosticInformation
)

func (d DiagClassType) String() string {
	switch d {
	case DiagClassTypeStartComm:
		return "StartComm"
	case DiagClassTypeStopComm:
		return "StopComm"
	case DiagClassTypeVariantIdentification:
		return "VariantIdentification"
	case DiagClassTypeReadDynamicallyDefinedDataIdentifier:
		return "ReadDynamicallyDefinedDataIdentifier"
	case DiagClassTypeDynamicallyDefineDataIdentifier:
		return "DynamicallyDefineDataIdentifier"
	case DiagClassTypeClearDiagnosticInformation:
		return "ClearDiagnosticInformation"
	default:
		return "Unknown"
	}
}

// Addressing is the ODX ADDRESSING attribute of a DiagService.
type Addressing int

// ENUM(Physical, Functional)
const (
	AddressingPhysical Addressing = iota
	AddressingFunctional
)

func (a Addressing) String() string {
	if a == AddressingFunctional {
		return "Functional"
	}
	return "Physical"
}

// TransmissionMode is the ODX TRANSMISSION-MODE attribute of a DiagService.
type TransmissionMode int

// ENUM(SendOnly, SendAndReceive, SendOrReceive)
const (
	TransmissionModeSendOnly TransmissionMode = iota
	TransmissionModeSendAndReceive
	TransmissionModeSendOrReceive
)

func (t TransmissionMode) String() string {
	switch t {
	case TransmissionModeSendOnly:
		return "SendOnly"
	case TransmissionModeSendOrReceive:
		return "SendOrReceive"
	default:
		return "SendAndReceive"
	}
}

// Audience controls visibility of a DiagComm to a filter target (see
// FilterByAudience).
type Audience struct {
	IsDevelopment      bool
	IsSupplier         bool
	IsManufacturing    bool
	IsAftersales       bool
	IsAftermarket      bool
	EnabledAudiences   []AudienceRef
	DisabledAudiences  []AudienceRef
}

// AudienceRef names an ADDITIONAL-AUDIENCE by short-name.
type AudienceRef struct {
	ShortName string
}

// DiagComm is the shared header of DiagService and SingleEcuJob.
type DiagComm struct {
	ShortName               string
	LongName                string
	Semantic                string
	FunctClasses            []string
	Sdgs                    *Sdgs
	DiagClassType           DiagClassType
	PreConditionStateRefs   []StateRef
	StateTransitionRefs     []StateRef
	Protocols               []string
	Audience                *Audience
	IsMandatory             bool
	IsExecutable            bool
	IsFinal                 bool
}

// StateRef references a State by its owning state chart and short-name.
type StateRef struct {
	StateChartShortNameRef string
	StateShortNameRef      string
}

// DiagService is a request/response diagnostic communication object: the
// bulk of what a conversion pipeline moves between formats.
type DiagService struct {
	DiagComm          DiagComm
	Request           *Message
	PosResponses      []Message
	NegResponses      []Message
	IsCyclic          bool
	IsMultiple        bool
	Addressing        Addressing
	TransmissionMode  TransmissionMode
	ComParamRefs      []ComParamRef
}

// SingleEcuJob is a diagnostic job implemented outside the wire protocol
// (e.g. a programmed routine executed by tooling rather than the ECU).
type SingleEcuJob struct {
	DiagComm   DiagComm
	ProgCodes  []string
}

// Message is an ordered sequence of wire-level Params: a request, a
// positive response, or a negative response.
type Message struct {
	ShortName string
	Params    []Param
}

// ParamKind is the xsi:type tag of a Param.
type ParamKind int

// ENUM(CodedConst, Value, Reserved, MatchingRequestParam, PhysConst, TableKey,
// TableStruct, LengthKey, NrcConst)
const (
	ParamKindCodedConst ParamKind = iota
	ParamKindValue
	ParamKindReserved
	ParamKindMatchingRequestParam
	ParamKindPhysConst
	ParamKindTableKey
	ParamKindTableStruct
	ParamKindLengthKey
	ParamKindNrcConst
)

func (k ParamKind) String() string {
	switch k {
	case ParamKindCodedConst:
		return "CODED-CONST"
	case ParamKindValue:
		return "VALUE"
	case ParamKindReserved:
		return "RESERVED"
	case ParamKindMatchingRequestParam:
		return "MATCHING-REQUEST-PARAM"
	case ParamKindPhysConst:
		return "PHYS-CONST"
	case ParamKindTableKey:
		return "TABLE-KEY"
	case ParamKindTableStruct:
		return "TABLE-STRUCT"
	case ParamKindLengthKey:
		return "LENGTH-KEY"
	case ParamKindNrcConst:
		return "NRC-CONST"
	default:
		return "UNKNOWN"
	}
}

// Param is a tagged union over the nine ODX param xsi:type variants. Only
// the fields relevant to Kind are populated; writers dispatch on Kind to
// pick which fields to emit.
type Param struct {
	ShortName string
	Kind      ParamKind
	BytePosition int
	BitLength    int

	// CODED-CONST / PHYS-CONST / NRC-CONST / VALUE
	CodedValue string
	// VALUE / PHYS-CONST: reference to the DOP that interprets the bytes.
	DopRef string
	// RESERVED has no payload beyond position/length.
	// MATCHING-REQUEST-PARAM
	RequestBytePosition int
	// TABLE-KEY / TABLE-STRUCT
	TableRef        string
	TableRowRef     string
	// LENGTH-KEY
	LengthKeyRef string
}

// StateChart is a named finite-state model (SESSION, SECURITY, ...).
type StateChart struct {
	ShortName                string
	Semantic                 string
	States                   []State
	StateTransitions         []StateTransition
	StartStateShortNameRef   string
}

// State is one named node of a StateChart.
type State struct {
	ShortName string
	LongName  string
}

// StateTransition is an edge of a StateChart, optionally gated by the
// diagnostic service that triggers it.
type StateTransition struct {
	ShortName            string
	SourceShortNameRef    string
	TargetShortNameRef    string
	DiagComShortNameRef   string
}

// Dtc is a diagnostic trouble code: a 24-bit fault identifier plus display
// metadata.
type Dtc struct {
	ShortName          string
	TroubleCode        uint32
	Text               string
	Severity           string
	DisplayTroubleCode string
}

// CompuCategory selects the computation rule a CompuMethod applies.
type CompuCategory int

// ENUM(Identical, Linear, ScaleLinear, TexttableRat, TabIntp, Compucode)
const (
	CompuCategoryIdentical CompuCategory = iota
	CompuCategoryLinear
	CompuCategoryScaleLinear
	CompuCategoryTexttableRat
	CompuCategoryTabIntp
	CompuCategoryCompucode
)

func (c CompuCategory) String() string {
	switch c {
	case CompuCategoryIdentical:
		return "IDENTICAL"
	case CompuCategoryLinear:
		return "LINEAR"
	case CompuCategoryScaleLinear:
		return "SCALE-LINEAR"
	case CompuCategoryTexttableRat:
		return "TEXTTABLE"
	case CompuCategoryTabIntp:
		return "TAB-INTP"
	case CompuCategoryCompucode:
		return "COMPUCODE"
	default:
		return "UNKNOWN"
	}
}

// IntervalType selects whether a Limit value is included in its interval.
type IntervalType int

// ENUM(Closed, Open)
const (
	IntervalTypeClosed IntervalType = iota
	IntervalTypeOpen
)

func (i IntervalType) String() string {
	if i == IntervalTypeOpen {
		return "OPEN"
	}
	return "CLOSED"
}

// Limit bounds one edge of a CompuScale.
type Limit struct {
	Value        string
	IntervalType IntervalType
}

// CompuScale is one entry of an ordered internal-to-physical mapping table;
// the first scale whose bounds contain the internal value wins.
type CompuScale struct {
	ShortLabel      string
	LowerLimit      *Limit
	UpperLimit      *Limit
	InverseValue    string
	ConstValue      string
	RationalCoeffsNumerator   []string
	RationalCoeffsDenominator []string
}

// CompuInternalToPhys is the internal->physical half of a CompuMethod.
type CompuInternalToPhys struct {
	CompuScales        []CompuScale
	ProgCode           string
	CompuDefaultValue  string
}

// CompuMethod describes how raw internal (on-wire) values map to physical
// values and back.
type CompuMethod struct {
	Category        CompuCategory
	InternalToPhys  *CompuInternalToPhys
	PhysToInternal  *CompuInternalToPhys
}

// DiagCodedType describes the wire encoding of a DOP's internal value: base
// datatype, bit length, and byte order.
type DiagCodedType struct {
	BaseDataType string
	BitLength    int
	IsHighLowByteOrder bool
}

// DataObjectProp (DOP) maps raw bytes to a physical value via a CompuMethod.
type DataObjectProp struct {
	ShortName     string
	DiagCodedType DiagCodedType
	CompuMethod   CompuMethod
	PhysicalUnitRef string
}

// DtcDop is a DOP specialised to decode a DTC's trouble-code bytes.
type DtcDop struct {
	ShortName     string
	DiagCodedType DiagCodedType
	DtcRefs       []string
}

// Structure is a composite DOP: an ordered sequence of Params describing a
// nested byte layout (used by TABLE-STRUCT and structured DIDs).
type Structure struct {
	ShortName string
	Params    []Param
}

// Table pairs a key DOP with an ordered sequence of TableRow entries (used
// by TABLE-KEY / TABLE-STRUCT params).
type Table struct {
	ShortName string
	KeyDopRef string
	Rows      []TableRow
}

// TableRow is one entry of a Table: a key value bound to a structure.
type TableRow struct {
	ShortName    string
	Key          string
	StructureRef string
}
