// Package nfo parses sidecar metadata documents (Kodi/Ember-style NFO
// files) into normalized VideoMetadata records and resolves their artwork
// through ordered fallback searches.
//
// Parsing is deliberately tolerant: documents come from many scraper
// dialects with no consistent schema, so every field is optional, numeric
// fields fall back to zero on junk text, and a document that fails to parse
// yields an empty record instead of an error.
//
// The package also supports writing the genre/tag vocabulary back into a
// document in place, preserving all other elements, with stable
// one-element-per-line formatting.
package nfo
