package odx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

func childText(el *etree.Element, tag string) string {
	if el == nil {
		return ""
	}
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func childElement(el *etree.Element, path ...string) *etree.Element {
	cur := el
	for _, tag := range path {
		if cur == nil {
			return nil
		}
		cur = cur.SelectElement(tag)
	}
	return cur
}

func attrInt(el *etree.Element, name string, def int) int {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func attrBool(el *etree.Element, name string, def bool) bool {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}

func attrUint32Hex(el *etree.Element, name string) uint32 {
	v := el.SelectAttrValue(name, "")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

func setAttrIfNonEmpty(el *etree.Element, name, value string) {
	if value != "" {
		el.CreateAttr(name, value)
	}
}

func elemInt(el *etree.Element) int {
	if el == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(el.Text()))
	if err != nil {
		return 0
	}
	return n
}

func setChildText(parent *etree.Element, tag, value string) {
	if value == "" {
		return
	}
	parent.CreateElement(tag).SetText(value)
}
