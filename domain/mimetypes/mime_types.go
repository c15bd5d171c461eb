// Package mimetypes recognizes the content type of submitted code snippets.
package mimetypes

import (
	"mime"

	"github.com/gabriel-vasile/mimetype"
)

type MIME string

const (
	Unknown     MIME = "unknown"
	TextPlain   MIME = "text/plain"
	TextHTML    MIME = "text/html"
	TextJS      MIME = "text/javascript"
	TextPython  MIME = "text/x-python"
	OctetStream MIME = "application/octet-stream"
)

// Matches reports whether a detected media type, parameters ignored, is expected.
func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}

// DetectSnippet returns the detected type of a snippet and whether it is text,
// that is text/plain or one of its descendants.
func DetectSnippet(code []byte) (MIME, bool) {
	detected := mimetype.Detect(code)
	mt, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return Unknown, false
	}
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := Matches(m.String(), TextPlain); ok {
			return MIME(mt), true
		}
	}
	return MIME(mt), false
}
