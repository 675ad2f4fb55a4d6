package adb

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/beevik/etree"

	"github.com/BilalMagg/Auralia-sub000/api/schemas"
)

var (
	boundsRe = regexp.MustCompile(`^\[(-?\d+),(-?\d+)\]\[(-?\d+),(-?\d+)\]$`)

	errEmptyHierarchy = errors.New("window hierarchy has no nodes")
)

// parseBounds reads uiautomator's "[left,top][right,bottom]" notation.
// Malformed values give an empty rectangle.
func parseBounds(s string) schemas.Rect {
	m := boundsRe.FindStringSubmatch(s)
	if m == nil {
		return schemas.Rect{}
	}
	v := make([]int, 4)
	for i := range v {
		v[i], _ = strconv.Atoi(m[i+1])
	}
	return schemas.Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}
}

// trimDump drops the status lines adb prints around the XML document.
func trimDump(raw []byte) []byte {
	start := bytes.Index(raw, []byte("<?xml"))
	if start < 0 {
		start = bytes.Index(raw, []byte("<hierarchy"))
	}
	if start < 0 {
		return nil
	}
	raw = raw[start:]
	if end := bytes.LastIndexByte(raw, '>'); end >= 0 {
		raw = raw[:end+1]
	}
	return raw
}

// parseHierarchy converts a uiautomator dump into a UINode tree. Several
// top-level windows are wrapped in a synthetic root spanning all of them.
func parseHierarchy(raw []byte) (*schemas.UINode, error) {
	raw = trimDump(raw)
	if raw == nil {
		return nil, fmt.Errorf("no XML document in dump output")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse window hierarchy: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errEmptyHierarchy
	}

	var windows []*schemas.UINode
	if root.Tag == "node" {
		windows = append(windows, convertElement(root))
	} else {
		for _, el := range root.SelectElements("node") {
			windows = append(windows, convertElement(el))
		}
	}

	switch len(windows) {
	case 0:
		return nil, errEmptyHierarchy
	case 1:
		return windows[0], nil
	}

	top := &schemas.UINode{
		ClassName: "android.view.View",
		Package:   windows[0].Package,
		Bounds:    windows[0].Bounds,
		Children:  windows,
	}
	for _, w := range windows[1:] {
		top.Bounds = union(top.Bounds, w.Bounds)
	}
	return top, nil
}

func convertElement(el *etree.Element) *schemas.UINode {
	node := &schemas.UINode{
		Text:               el.SelectAttrValue("text", ""),
		ContentDescription: el.SelectAttrValue("content-desc", ""),
		ResourceID:         el.SelectAttrValue("resource-id", ""),
		ClassName:          el.SelectAttrValue("class", ""),
		Package:            el.SelectAttrValue("package", ""),
		Bounds:             parseBounds(el.SelectAttrValue("bounds", "")),
		Clickable:          el.SelectAttrValue("clickable", "false") == "true",
	}
	for _, child := range el.SelectElements("node") {
		node.Children = append(node.Children, convertElement(child))
	}
	return node
}

func union(a, b schemas.Rect) schemas.Rect {
	return schemas.Rect{
		Left:   min(a.Left, b.Left),
		Top:    min(a.Top, b.Top),
		Right:  max(a.Right, b.Right),
		Bottom: max(a.Bottom, b.Bottom),
	}
}
