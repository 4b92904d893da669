package io

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errUndecodable = errors.New("input is not valid in this encoding")

// textDecoder converts raw bytes in one encoding to UTF-8.
type textDecoder struct {
	Name   string
	Decode func([]byte) ([]byte, error)
}

// decoders are tried in order until one accepts the input.
var decoders = []textDecoder{
	{Name: "utf-8", Decode: decodeUTF8},
	{Name: "utf-8-sig", Decode: decodeUTF8BOM},
	{Name: "latin-1", Decode: decodeLatin1},
	{Name: "windows-1252", Decode: decodeWindows1252},
}

func decodeUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, utf8BOM) || !utf8.Valid(data) {
		return nil, errUndecodable
	}
	return data, nil
}

func decodeUTF8BOM(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, errUndecodable
	}
	return unicode.UTF8BOM.NewDecoder().Bytes(data)
}

// decodeLatin1 refuses C1 control bytes, which in practice mean the text is
// windows-1252.
func decodeLatin1(data []byte) ([]byte, error) {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return nil, errUndecodable
		}
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(data)
}

func decodeWindows1252(data []byte) ([]byte, error) {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, err
	}
	// Bytes unassigned in windows-1252 come back as C1 controls.
	if bytes.IndexFunc(decoded, func(r rune) bool {
		return r == utf8.RuneError || (r >= 0x80 && r <= 0x9F)
	}) >= 0 {
		return nil, errUndecodable
	}
	return decoded, nil
}

// DecodeText converts data to UTF-8 with the first decoder that accepts it.
// When none does, invalid sequences are replaced with U+FFFD. The name of the
// encoding used is returned alongside.
func DecodeText(data []byte) (string, string) {
	for _, d := range decoders {
		decoded, err := d.Decode(data)
		if err == nil {
			return string(decoded), d.Name
		}
	}
	return strings.ToValidUTF8(string(data), "�"), "utf-8-replace"
}
