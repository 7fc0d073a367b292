// Package encoding provides text helpers for legacy binary model formats
// whose names are stored as fixed-size EUC-KR strings.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to a UTF-8 string.
// Returns the input unchanged if conversion fails.
func EUCKRToUTF8(data []byte) string {
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts a UTF-8 string to EUC-KR bytes.
// Returns the input unchanged if conversion fails.
func UTF8ToEUCKR(s string) []byte {
	result, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedStringToUTF8 decodes a null-terminated fixed-size EUC-KR field.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return EUCKRToUTF8(data)
}

// UTF8ToFixedString encodes s into a zero-padded EUC-KR field of size bytes.
// Longer names are truncated.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToEUCKR(s))
	return result
}

// NormalizeAssetPath converts Windows separators to forward slashes.
func NormalizeAssetPath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
