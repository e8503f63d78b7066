package nfo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Element is a generic XML tree node. Sidecar documents come from many
// scraper dialects with no consistent schema, so parsing binds to a plain
// tree instead of a rigid struct and callers walk it with the find helpers.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Element  `xml:",any"`
}

// parseDocument decodes an XML document into its root element.
func parseDocument(r io.Reader) (*Element, error) {
	var root Element
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// findFirst returns the first direct child with the given element name,
// or nil when none exists.
func (e *Element) findFirst(name string) *Element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// findAll returns all direct children with the given element name in
// document order.
func (e *Element) findAll(name string) []*Element {
	var out []*Element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			out = append(out, &e.Children[i])
		}
	}
	return out
}

// attr returns the value of the named attribute, or "".
func (e *Element) attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// text returns the element's trimmed character data. Elements that carry
// children report "" because their chardata is only inter-element
// whitespace.
func (e *Element) text() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text)
}

// render writes the tree back out with stable one-element-per-line
// formatting. xml.MarshalIndent is not used because parsed chardata keeps
// the original inter-element whitespace, which would accumulate on every
// rewrite.
func (e *Element) render(w *bytes.Buffer, depth int) error {
	indent := strings.Repeat("    ", depth)

	w.WriteString(indent)
	w.WriteByte('<')
	w.WriteString(e.XMLName.Local)
	for _, a := range e.Attrs {
		fmt.Fprintf(w, " %s=", a.Name.Local)
		w.WriteByte('"')
		if err := escapeInto(w, a.Value); err != nil {
			return err
		}
		w.WriteByte('"')
	}

	text := e.text()
	if len(e.Children) == 0 && text == "" {
		w.WriteString("/>\n")
		return nil
	}
	w.WriteByte('>')

	if len(e.Children) == 0 {
		if err := escapeInto(w, text); err != nil {
			return err
		}
	} else {
		w.WriteByte('\n')
		for i := range e.Children {
			if err := e.Children[i].render(w, depth+1); err != nil {
				return err
			}
		}
		w.WriteString(indent)
	}

	w.WriteString("</")
	w.WriteString(e.XMLName.Local)
	w.WriteString(">\n")
	return nil
}

func escapeInto(w *bytes.Buffer, s string) error {
	return xml.EscapeText(w, []byte(s))
}

// encodeDocument serializes the root element with an XML declaration.
func encodeDocument(root *Element) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	if err := root.render(&buf, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
