// Package encoding converts the GBK strings stored in C3 chunks and archive
// names to and from UTF-8.
package encoding

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// GBKToUTF8 converts GBK encoded bytes to a UTF-8 string.
// Returns the bytes unchanged if they are not valid GBK.
func GBKToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// GBKStringToUTF8 converts a GBK encoded string to UTF-8.
func GBKStringToUTF8(s string) string {
	return GBKToUTF8([]byte(s))
}

// UTF8ToGBK converts a UTF-8 string to GBK encoded bytes.
// Returns the bytes of s unchanged if it has characters GBK cannot represent.
func UTF8ToGBK(s string) []byte {
	if !utf8.ValidString(s) {
		return []byte(s)
	}
	result, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(data []byte) string {
	return string(TrimNullBytes(data))
}

// FixedStringToUTF8 decodes a null-padded GBK field, stopping at the first
// null byte.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return GBKToUTF8(data)
}

// UTF8ToFixedString encodes s as GBK into a null-padded field of size bytes.
// Longer strings are truncated.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToGBK(s))
	return result
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
