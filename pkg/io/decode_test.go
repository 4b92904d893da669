package io

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		encoding string
	}{
		{name: "utf-8", input: []byte("Text,café"), expected: "Text,café", encoding: "utf-8"},
		{name: "bom", input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("Text")...), expected: "Text", encoding: "utf-8-sig"},
		{name: "latin-1", input: []byte{'c', 'a', 'f', 0xE9}, expected: "café", encoding: "latin-1"},
		{name: "windows-1252", input: []byte{0x93, 'h', 'i', 0x94}, expected: "“hi”", encoding: "windows-1252"},
		{name: "replacement", input: []byte{'a', 0x81, 'b'}, expected: "a�b", encoding: "utf-8-replace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, encoding := DecodeText(tt.input)
			require.Equal(t, tt.expected, text)
			require.Equal(t, tt.encoding, encoding)
		})
	}
}
