package model

import "strings"

// TransactionTrytesSize is the width of a serialized transaction in trytes.
const TransactionTrytesSize = 2673

// NextWord returns the successor of s in the key sequence A, B, ..., Z, ZA, ZB, ...
// The right-most letter that is not a 'Z' is incremented; when every letter
// is a 'Z' an 'A' is appended. Every call yields a word never produced before.
func NextWord(s string) string {
	if s == "" {
		return "A"
	}
	chars := []byte(strings.ToUpper(s))
	for i := len(chars) - 1; i >= 0; i-- {
		if chars[i] != 'Z' {
			chars[i]++
			return string(chars)
		}
	}
	return string(chars) + "A"
}

// ExpandTrytes right-pads s with '9' up to width. Longer strings are returned unchanged.
func ExpandTrytes(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat("9", width-len(s))
}

// GenerateKeys returns n keys created by repeatedly applying NextWord and
// padding each word to width.
func GenerateKeys(n, width int) []Indexable {
	keys := make([]Indexable, 0, n)
	word := ""
	for i := 0; i < n; i++ {
		word = NextWord(word)
		keys = append(keys, Indexable(ExpandTrytes(word, width)))
	}
	return keys
}
