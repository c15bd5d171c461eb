package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		detected string
		expected MIME
		want     bool
	}{
		{"Plain text with charset", "text/plain; charset=utf-8", TextPlain, true},
		{"HTML text", "text/html; charset=utf-8", TextHTML, true},
		{"Python source", "text/x-python", TextPython, true},
		{"Mismatch", "text/plain; charset=utf-8", TextJS, false},
		{"Unknown type", "application/octet-stream", TextPlain, false},
		{"Invalid MIME", "not a mime", TextPlain, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Matches(tt.detected, tt.expected)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestDetectSnippet(t *testing.T) {
	tests := []struct {
		name   string
		code   []byte
		isText bool
	}{
		{"Python one liner", []byte(`print("Hello, world!")`), true},
		{"Python script", []byte("#!/usr/bin/env python3\nprint('hi')\n"), true},
		{"Java class", []byte("public class Main {\n  public static void main(String[] args) {}\n}"), true},
		{"Binary", []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}, false},
		{"PNG header", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			mt, ok := DetectSnippet(tt.code)
			req.Equal(tt.isText, ok, "detected %s", mt)
		})
	}
}
