// Package mediatypes defines file type classification shared between the
// library synchronizer and the HTTP layer: the sidecar document extension,
// the fixed video extension search order, and MIME type lookup.
package mediatypes
