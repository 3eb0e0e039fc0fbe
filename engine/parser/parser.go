// Package parser normalizes raw utterances into word sequences.
// Intentionally dumb: no NLP, just case folding and punctuation handling.
package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// controlCodes matches IRC formatting: colour with optional fg,bg numbers,
// plus bold, reset, reverse, italic and underline toggles.
var controlCodes = regexp.MustCompile("\x03(?:\\d{1,2}(?:,\\d{1,2})?)?|[\x02\x0f\x16\x1d\x1f]")

// Normalize lowercases s, drops apostrophes and replaces every other
// non-alphanumeric rune with a space. Runs of whitespace are collapsed.
func Normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

// Tokenize normalizes s and splits it into words.
// "What's up, Nano?" → ["whats", "up", "nano"]
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			// "don't" and "dont" are the same word.
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// StripControl removes IRC colour and formatting codes from s.
func StripControl(s string) string {
	return controlCodes.ReplaceAllString(s, "")
}

// Directed reports whether msg is explicitly addressed to botName, i.e. it
// starts with the name, an optional separator and whitespace
// ("nano: hi", "Nano, hi", "nano hi"). The message itself is not modified.
func Directed(msg, botName string) bool {
	if botName == "" {
		return false
	}
	n := len(botName)
	if len(msg) <= n || !strings.EqualFold(msg[:n], botName) {
		return false
	}
	rest := msg[n:]
	r, size := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(r) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return false
		}
		rest = rest[size:]
	}
	r, _ = utf8.DecodeRuneInString(rest)
	return rest != "" && unicode.IsSpace(r)
}

// IsNumeric reports whether word consists only of ASCII digits.
func IsNumeric(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsAlpha reports whether word consists only of letters.
func IsAlpha(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
