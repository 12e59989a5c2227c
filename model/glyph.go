package model

import (
	"strings"
	"unicode"
)

// keywords maps the button phrases to their pixels. The pairing follows the
// board silkscreen, not the button order.
var keywords = map[string]int{
	"cap":     LED_PEACE,
	"wassup":  LED_SUP,
	"i'm out": LED_CAP,
	"slap":    LED_SLAP,
}

// CharToIndex maps A-Z to 0..25 and 0-9 to 26..35, ignoring case. Every
// other rune gives InvalidIndex, including non-ASCII runes that fold onto
// A-Z such as 'ı' and 'ſ'.
func CharToIndex(c rune) int {
	if c > unicode.MaxASCII {
		return InvalidIndex
	}
	c = unicode.ToUpper(c)
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= '0' && c <= '9':
		return 26 + int(c-'0')
	}
	return InvalidIndex
}

// IndexToChar is the inverse of CharToIndex for glyph pixels.
func IndexToChar(i int) (rune, bool) {
	switch {
	case i >= 0 && i < 26:
		return rune('A' + i), true
	case i >= 26 && i < GlyphCount:
		return rune('0' + i - 26), true
	}
	return 0, false
}

// WordToIndex matches one of the four button keywords, ignoring case.
func WordToIndex(word string) int {
	if i, ok := keywords[strings.ToLower(word)]; ok {
		return i
	}
	return InvalidIndex
}

// Displayable reports whether c has a glyph pixel.
func Displayable(c rune) bool {
	return CharToIndex(c) != InvalidIndex
}

// IsSkippable reports whether c is ASCII whitespace or punctuation. Those
// characters take up time in a message but light nothing.
func IsSkippable(c rune) bool {
	if c > unicode.MaxASCII {
		return false
	}
	return unicode.IsSpace(c) || unicode.IsPunct(c) || unicode.IsSymbol(c)
}
