package odx

import (
	"fmt"

	"github.com/beevik/etree"
)

// effectiveLayer is one diagnostic layer after inheritance has been folded
// in: every element slice already reflects basal content overridden and
// extended by derived content, keyed by short-name.
type effectiveLayer struct {
	entry *layerEntry

	diagComms       []*etree.Element
	stateCharts     []*etree.Element
	comParamRefs    []*etree.Element
	dataObjectProps []*etree.Element
	dtcDops         []*etree.Element
	structures      []*etree.Element
	tables          []*etree.Element
	audiences       []*etree.Element
	functClasses    []string
}

// flattenLayers topologically sorts the diagnostic layers by their
// PARENT-REFS DAG (basal variants before the layers that refer to them) and
// folds each layer's inheritable content into its children: a derived layer
// starts from the union of its parents' effective content, NOT-INHERITED
// exclusions remove what the derived layer opts out of, then the layer's own
// directly declared content overrides same-short-name entries and appends
// new ones. A cycle in PARENT-REFS is fatal: it has no resolution order.
func flattenLayers(idx *OdxIndex) (map[string]*effectiveLayer, error) {
	order, err := topoSortLayers(idx)
	if err != nil {
		return nil, err
	}

	effective := make(map[string]*effectiveLayer, len(order))
	for _, entry := range order {
		eff := &effectiveLayer{entry: entry}

		for _, parentID := range entry.parentRefs {
			parent, ok := idx.layerByID[parentID]
			if !ok {
				continue // unresolved parent ref: degrade, do not fail
			}
			parentEff := effective[parent.shortName]
			if parentEff == nil {
				continue
			}
			mergeInherited(eff, parentEff, entry.el)
		}

		applyOwnContent(eff, entry.el)
		effective[entry.shortName] = eff
	}

	return effective, nil
}

// topoSortLayers orders layers so that every parent precedes its children,
// detecting cycles with the standard three-colour DFS.
func topoSortLayers(idx *OdxIndex) ([]*layerEntry, error) {
	const (
		white = iota
		gray
		black
	)
	colour := make(map[string]int, len(idx.layers))
	var order []*layerEntry

	byID := idx.layerByID
	var visit func(e *layerEntry) error
	visit = func(e *layerEntry) error {
		if e.id == "" {
			order = append(order, e)
			return nil
		}
		switch colour[e.id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("inheritance cycle detected at diagnostic layer %q", e.shortName)
		}
		colour[e.id] = gray
		for _, parentID := range e.parentRefs {
			parent, ok := byID[parentID]
			if !ok {
				continue
			}
			if err := visit(parent); err != nil {
				return err
			}
		}
		colour[e.id] = black
		order = append(order, e)
		return nil
	}

	for _, e := range idx.layers {
		if e.id == "" || colour[e.id] == white {
			if err := visit(e); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func shortNameRefs(parent *etree.Element, groupTag, itemTag string) map[string]bool {
	out := make(map[string]bool)
	group := parent.SelectElement(groupTag)
	if group == nil {
		return out
	}
	for _, item := range group.SelectElements(itemTag) {
		if ref := item.SelectAttrValue("SHORT-NAME-REF", ""); ref != "" {
			out[ref] = true
		} else if ref := childText(item, "SHORT-NAME-REF"); ref != "" {
			out[ref] = true
		}
	}
	return out
}

func mergeInherited(eff, parentEff *effectiveLayer, ownEl *etree.Element) {
	excludedComms := shortNameRefs(ownEl, "NOT-INHERITED-DIAG-COMMS", "NOT-INHERITED-DIAG-COMM")
	excludedCharts := shortNameRefs(ownEl, "NOT-INHERITED-STATE-CHARTS", "NOT-INHERITED-STATE-CHART")
	excludedDops := shortNameRefs(ownEl, "NOT-INHERITED-DOPS", "NOT-INHERITED-DOP")

	for _, el := range parentEff.diagComms {
		if !excludedComms[childText(el, "SHORT-NAME")] {
			eff.diagComms = appendOrOverride(eff.diagComms, el)
		}
	}
	for _, el := range parentEff.stateCharts {
		if !excludedCharts[childText(el, "SHORT-NAME")] {
			eff.stateCharts = appendOrOverride(eff.stateCharts, el)
		}
	}
	for _, el := range parentEff.dataObjectProps {
		if !excludedDops[childText(el, "SHORT-NAME")] {
			eff.dataObjectProps = appendOrOverride(eff.dataObjectProps, el)
		}
	}
	eff.dtcDops = appendAllOrOverride(eff.dtcDops, parentEff.dtcDops)
	eff.structures = appendAllOrOverride(eff.structures, parentEff.structures)
	eff.tables = appendAllOrOverride(eff.tables, parentEff.tables)
	eff.comParamRefs = append(eff.comParamRefs, parentEff.comParamRefs...)
	eff.audiences = appendAllOrOverride(eff.audiences, parentEff.audiences)
	eff.functClasses = append(eff.functClasses, parentEff.functClasses...)
}

func applyOwnContent(eff *effectiveLayer, layerEl *etree.Element) {
	if comms := layerEl.SelectElement("DIAG-COMMS"); comms != nil {
		for _, el := range comms.ChildElements() {
			eff.diagComms = appendOrOverride(eff.diagComms, el)
		}
	}
	if charts := layerEl.SelectElement("STATE-CHARTS"); charts != nil {
		for _, el := range charts.SelectElements("STATE-CHART") {
			eff.stateCharts = appendOrOverride(eff.stateCharts, el)
		}
	}
	if cprefs := layerEl.SelectElement("COM-PARAM-REFS"); cprefs != nil {
		eff.comParamRefs = append(eff.comParamRefs, cprefs.SelectElements("COM-PARAM-REF")...)
	}
	if aud := layerEl.SelectElement("ADDITIONAL-AUDIENCES"); aud != nil {
		eff.audiences = append(eff.audiences, aud.SelectElements("ADDITIONAL-AUDIENCE")...)
	}
	if ddds := layerEl.SelectElement("DIAG-DATA-DICTIONARY-SPEC"); ddds != nil {
		if dops := ddds.SelectElement("DATA-OBJECT-PROPS"); dops != nil {
			for _, el := range dops.SelectElements("DATA-OBJECT-PROP") {
				eff.dataObjectProps = appendOrOverride(eff.dataObjectProps, el)
			}
		}
		if dtcDops := ddds.SelectElement("DTC-DOPS"); dtcDops != nil {
			eff.dtcDops = append(eff.dtcDops, dtcDops.SelectElements("DTC-DOP")...)
		}
		if structs := ddds.SelectElement("STRUCTURES"); structs != nil {
			eff.structures = append(eff.structures, structs.SelectElements("STRUCTURE")...)
		}
		if tables := ddds.SelectElement("TABLES"); tables != nil {
			eff.tables = append(eff.tables, tables.SelectElements("TABLE")...)
		}
	}
	if fcs := layerEl.SelectElement("FUNCT-CLASS-REFS"); fcs != nil {
		for _, ref := range fcs.SelectElements("FUNCT-CLASS-REF") {
			eff.functClasses = append(eff.functClasses, ref.SelectAttrValue("ID-REF", ""))
		}
	}
}

// appendOrOverride replaces any existing entry with the same SHORT-NAME,
// otherwise appends. Order is preserved so the writer round-trips a stable
// sequence.
func appendOrOverride(list []*etree.Element, el *etree.Element) []*etree.Element {
	name := childText(el, "SHORT-NAME")
	for i, existing := range list {
		if childText(existing, "SHORT-NAME") == name {
			list[i] = el
			return list
		}
	}
	return append(list, el)
}

func appendAllOrOverride(list, more []*etree.Element) []*etree.Element {
	for _, el := range more {
		list = appendOrOverride(list, el)
	}
	return list
}
