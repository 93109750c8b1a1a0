package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const (
	specialChars    = `._[](){}#|!+-=*~>` + "`"
	urlSpecialChars = `)\`
)

//nolint:gochecknoglobals // Lookup tables meant to be immutable.
var (
	textLookup = lookup(specialChars + `\`)
	urlLookup  = lookup(urlSpecialChars)
)

// EscapeV2 escapes free text for a MarkdownV2 message.
func EscapeV2(input string) string {
	return escape(input, &textLookup)
}

// EscapeURL escapes the target part of an inline link.
func EscapeURL(input string) string {
	return escape(input, &urlLookup)
}

func Bold(text string) string {
	return "*" + EscapeV2(text) + "*"
}

func Italic(text string) string {
	return "_" + EscapeV2(text) + "_"
}

func Link(text, url string) string {
	return "[" + EscapeV2(text) + "](" + EscapeURL(url) + ")"
}

func escape(input string, table *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if table[input[i]] {
			charsToEscape++
		}
	}

	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if table[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func lookup(chars string) [256]bool {
	var m [256]bool
	for i := range len(chars) {
		m[chars[i]] = true
	}
	return m
}
