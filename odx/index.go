package odx

import (
	"fmt"

	"github.com/beevik/etree"
)

// layerKind distinguishes the three kinds of diagnostic layer this package
// understands. Protocols and ECU-SHARED-DATAS are not modelled: ComParamRef
// only needs their short-names, which are carried verbatim as SNREFs.
type layerKind int

const (
	layerBaseVariant layerKind = iota
	layerEcuVariant
	layerFunctionalGroup
)

// layerEntry is one diagnostic layer as seen during index building, before
// inheritance has been folded in.
type layerEntry struct {
	kind       layerKind
	el         *etree.Element
	id         string
	shortName  string
	parentRefs []string // IDs of parent layers, in document order
}

// OdxIndex resolves ID-REF attributes to their target elements across an
// entire DIAG-LAYER-CONTAINER. Every element in the document that carries an
// ID attribute is registered here regardless of its kind, since ODX never
// reuses an ID across entity kinds within one container.
type OdxIndex struct {
	byID      map[string]*etree.Element
	layers    []*layerEntry
	layerByID map[string]*layerEntry
}

// buildIndex walks a DIAG-LAYER-CONTAINER element and registers every
// descendant that carries an ID, then records each diagnostic layer's
// parent-ref edges for the inheritance pass that follows.
func buildIndex(container *etree.Element) (*OdxIndex, error) {
	idx := &OdxIndex{
		byID:      make(map[string]*etree.Element),
		layerByID: make(map[string]*layerEntry),
	}

	indexByID(container, idx.byID)

	walkLayers(container, "BASE-VARIANTS", "BASE-VARIANT", layerBaseVariant, idx)
	walkLayers(container, "ECU-VARIANTS", "ECU-VARIANT", layerEcuVariant, idx)
	walkLayers(container, "FUNCTIONAL-GROUPS", "FUNCTIONAL-GROUP", layerFunctionalGroup, idx)

	if len(idx.layers) == 0 {
		return nil, fmt.Errorf("DIAG-LAYER-CONTAINER has no BASE-VARIANT, ECU-VARIANT or FUNCTIONAL-GROUP")
	}

	return idx, nil
}

func indexByID(el *etree.Element, byID map[string]*etree.Element) {
	if id := el.SelectAttrValue("ID", ""); id != "" {
		byID[id] = el
	}
	for _, child := range el.ChildElements() {
		indexByID(child, byID)
	}
}

func walkLayers(container *etree.Element, groupTag, itemTag string, kind layerKind, idx *OdxIndex) {
	group := container.SelectElement(groupTag)
	if group == nil {
		return
	}
	for _, el := range group.SelectElements(itemTag) {
		entry := &layerEntry{
			kind:      kind,
			el:        el,
			id:        el.SelectAttrValue("ID", ""),
			shortName: childText(el, "SHORT-NAME"),
		}
		if refs := el.SelectElement("PARENT-REFS"); refs != nil {
			for _, ref := range refs.SelectElements("PARENT-REF") {
				if id := ref.SelectAttrValue("ID-REF", ""); id != "" {
					entry.parentRefs = append(entry.parentRefs, id)
				}
			}
		}
		idx.layers = append(idx.layers, entry)
		if entry.id != "" {
			idx.layerByID[entry.id] = entry
		}
	}
}

// shortNameOf resolves an ID-REF to the SHORT-NAME of its target element. It
// returns "" for an unresolved reference rather than failing: per the
// materialisation contract, unresolved references degrade instead of
// aborting the conversion.
func (idx *OdxIndex) shortNameOf(id string) string {
	if id == "" {
		return ""
	}
	el, ok := idx.byID[id]
	if !ok {
		return ""
	}
	return childText(el, "SHORT-NAME")
}
