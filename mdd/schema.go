package mdd

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bburda42dot/diag-converter-sub001/ir"
)

// This file is the binary-schema half of the MDD codec: it encodes a
// DiagDatabase into the columnar table the description chunk's payload
// carries, and decodes it back. The real runtime loader's schema is a
// FlatBuffers root table generated from a schema file (out of scope per
// spec.md §1, along with the code generator that produces it); this is this
// project's own wire format for the same role, framed with the same
// protowire primitives descriptor.go uses for the outer MddFile envelope.
// It carries only what a loader and the conversion roundtrip laws need:
// identity, variants with their service names and state charts, and DTCs.

const (
	fieldDbEcuName  = 1
	fieldDbVersion  = 2
	fieldDbRevision = 3
	fieldDbVariant  = 4
	fieldDbDtc      = 5

	fieldVariantShortName   = 1
	fieldVariantIsBase      = 2
	fieldVariantParentRef   = 3
	fieldVariantService     = 4
	fieldVariantStateChart  = 5

	fieldServiceShortName = 1
	fieldServiceSemantic  = 2

	fieldChartShortName = 1
	fieldChartSemantic  = 2
	fieldChartState     = 3

	fieldDtcShortName   = 1
	fieldDtcTroubleCode = 2
	fieldDtcText        = 3
	fieldDtcSeverity    = 4
	fieldDtcDisplay     = 5
)

// EncodeDatabase serialises db into the columnar binary-schema blob an MDD
// description chunk carries as its payload.
func EncodeDatabase(db *ir.DiagDatabase) []byte {
	var b []byte
	if db.EcuName != "" {
		b = protowire.AppendTag(b, fieldDbEcuName, protowire.BytesType)
		b = protowire.AppendString(b, db.EcuName)
	}
	if db.Version != "" {
		b = protowire.AppendTag(b, fieldDbVersion, protowire.BytesType)
		b = protowire.AppendString(b, db.Version)
	}
	if db.Revision != "" {
		b = protowire.AppendTag(b, fieldDbRevision, protowire.BytesType)
		b = protowire.AppendString(b, db.Revision)
	}
	for _, v := range db.Variants {
		b = protowire.AppendTag(b, fieldDbVariant, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSchemaVariant(&v))
	}
	for _, dtc := range db.Dtcs {
		b = protowire.AppendTag(b, fieldDbDtc, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSchemaDtc(&dtc))
	}
	return b
}

func encodeSchemaVariant(v *ir.Variant) []byte {
	var b []byte
	if v.DiagLayer.ShortName != "" {
		b = protowire.AppendTag(b, fieldVariantShortName, protowire.BytesType)
		b = protowire.AppendString(b, v.DiagLayer.ShortName)
	}
	if v.IsBaseVariant {
		b = protowire.AppendTag(b, fieldVariantIsBase, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	for _, p := range v.ParentRefs {
		b = protowire.AppendTag(b, fieldVariantParentRef, protowire.BytesType)
		b = protowire.AppendString(b, p)
	}
	for _, svc := range v.DiagLayer.DiagServices {
		b = protowire.AppendTag(b, fieldVariantService, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSchemaService(&svc))
	}
	for _, sc := range v.DiagLayer.StateCharts {
		b = protowire.AppendTag(b, fieldVariantStateChart, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeSchemaStateChart(&sc))
	}
	return b
}

func encodeSchemaService(svc *ir.DiagService) []byte {
	var b []byte
	if svc.DiagComm.ShortName != "" {
		b = protowire.AppendTag(b, fieldServiceShortName, protowire.BytesType)
		b = protowire.AppendString(b, svc.DiagComm.ShortName)
	}
	if svc.DiagComm.Semantic != "" {
		b = protowire.AppendTag(b, fieldServiceSemantic, protowire.BytesType)
		b = protowire.AppendString(b, svc.DiagComm.Semantic)
	}
	return b
}

func encodeSchemaStateChart(sc *ir.StateChart) []byte {
	var b []byte
	if sc.ShortName != "" {
		b = protowire.AppendTag(b, fieldChartShortName, protowire.BytesType)
		b = protowire.AppendString(b, sc.ShortName)
	}
	if sc.Semantic != "" {
		b = protowire.AppendTag(b, fieldChartSemantic, protowire.BytesType)
		b = protowire.AppendString(b, sc.Semantic)
	}
	for _, st := range sc.States {
		b = protowire.AppendTag(b, fieldChartState, protowire.BytesType)
		b = protowire.AppendString(b, st.ShortName)
	}
	return b
}

func encodeSchemaDtc(dtc *ir.Dtc) []byte {
	var b []byte
	if dtc.ShortName != "" {
		b = protowire.AppendTag(b, fieldDtcShortName, protowire.BytesType)
		b = protowire.AppendString(b, dtc.ShortName)
	}
	b = protowire.AppendTag(b, fieldDtcTroubleCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(dtc.TroubleCode))
	if dtc.Text != "" {
		b = protowire.AppendTag(b, fieldDtcText, protowire.BytesType)
		b = protowire.AppendString(b, dtc.Text)
	}
	if dtc.Severity != "" {
		b = protowire.AppendTag(b, fieldDtcSeverity, protowire.BytesType)
		b = protowire.AppendString(b, dtc.Severity)
	}
	if dtc.DisplayTroubleCode != "" {
		b = protowire.AppendTag(b, fieldDtcDisplay, protowire.BytesType)
		b = protowire.AppendString(b, dtc.DisplayTroubleCode)
	}
	return b
}

// DecodeDatabase parses a columnar binary-schema blob previously produced
// by EncodeDatabase back into a DiagDatabase. Every variant it recovers is
// reconstructed as its own diagnostic layer; functional groups are not part
// of this payload (the runtime loader this format feeds has no concept of
// them), so a round trip through MDD never carries functional groups.
func DecodeDatabase(data []byte) (*ir.DiagDatabase, error) {
	db := &ir.DiagDatabase{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed schema tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldDbEcuName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			db.EcuName = s
			data = data[n:]
		case fieldDbVersion:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			db.Version = s
			data = data[n:]
		case fieldDbRevision:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			db.Revision = s
			data = data[n:]
		case fieldDbVariant:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			v, err := decodeSchemaVariant(raw)
			if err != nil {
				return nil, err
			}
			db.Variants = append(db.Variants, *v)
			data = data[n:]
		case fieldDbDtc:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			dtc, err := decodeSchemaDtc(raw)
			if err != nil {
				return nil, err
			}
			db.Dtcs = append(db.Dtcs, *dtc)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed schema field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return db, nil
}

func decodeSchemaVariant(data []byte) (*ir.Variant, error) {
	v := &ir.Variant{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed variant tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldVariantShortName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			v.DiagLayer.ShortName = s
			data = data[n:]
		case fieldVariantIsBase:
			val, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			v.IsBaseVariant = val != 0
			data = data[n:]
		case fieldVariantParentRef:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			v.ParentRefs = append(v.ParentRefs, s)
			data = data[n:]
		case fieldVariantService:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			svc, err := decodeSchemaService(raw)
			if err != nil {
				return nil, err
			}
			v.DiagLayer.DiagServices = append(v.DiagLayer.DiagServices, *svc)
			data = data[n:]
		case fieldVariantStateChart:
			raw, n, err := consumeBytes(data, typ)
			if err != nil {
				return nil, err
			}
			sc, err := decodeSchemaStateChart(raw)
			if err != nil {
				return nil, err
			}
			v.DiagLayer.StateCharts = append(v.DiagLayer.StateCharts, *sc)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed variant field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return v, nil
}

func decodeSchemaService(data []byte) (*ir.DiagService, error) {
	svc := &ir.DiagService{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed service tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldServiceShortName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			svc.DiagComm.ShortName = s
			data = data[n:]
		case fieldServiceSemantic:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			svc.DiagComm.Semantic = s
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed service field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return svc, nil
}

func decodeSchemaStateChart(data []byte) (*ir.StateChart, error) {
	sc := &ir.StateChart{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed state chart tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldChartShortName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			sc.ShortName = s
			data = data[n:]
		case fieldChartSemantic:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			sc.Semantic = s
			data = data[n:]
		case fieldChartState:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			sc.States = append(sc.States, ir.State{ShortName: s})
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed state chart field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return sc, nil
}

func decodeSchemaDtc(data []byte) (*ir.Dtc, error) {
	dtc := &ir.Dtc{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("mdd: malformed dtc tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldDtcShortName:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			dtc.ShortName = s
			data = data[n:]
		case fieldDtcTroubleCode:
			v, n, err := consumeVarint(data, typ)
			if err != nil {
				return nil, err
			}
			dtc.TroubleCode = uint32(v)
			data = data[n:]
		case fieldDtcText:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			dtc.Text = s
			data = data[n:]
		case fieldDtcSeverity:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			dtc.Severity = s
			data = data[n:]
		case fieldDtcDisplay:
			s, n, err := consumeString(data, typ)
			if err != nil {
				return nil, err
			}
			dtc.DisplayTroubleCode = s
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("mdd: malformed dtc field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return dtc, nil
}
