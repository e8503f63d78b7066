package nfo

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// WriteVocabulary replaces the genre and tag elements of a sidecar document
// in place. All existing genre/tag elements are removed and the new ordered
// sets appended as direct children of the document root; every other
// element is preserved untouched. A document that cannot be parsed is a
// hard error so a broken file is never blindly overwritten.
func WriteVocabulary(path string, genres, tags []string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open sidecar document: %w", err)
	}
	root, err := parseDocument(f)
	closeErr := f.Close()
	if err != nil {
		return fmt.Errorf("cannot parse sidecar document %s: %w", path, err)
	}
	if closeErr != nil {
		return closeErr
	}

	kept := root.Children[:0]
	for _, child := range root.Children {
		if child.XMLName.Local == "genre" || child.XMLName.Local == "tag" {
			continue
		}
		kept = append(kept, child)
	}
	root.Children = kept

	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			root.Children = append(root.Children, textElement("genre", g))
		}
	}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			root.Children = append(root.Children, textElement("tag", t))
		}
	}

	data, err := encodeDocument(root)
	if err != nil {
		return fmt.Errorf("cannot serialize sidecar document %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write sidecar document: %w", err)
	}
	return nil
}

func textElement(name, text string) Element {
	return Element{
		XMLName: xml.Name{Local: name},
		Text:    text,
	}
}
