package category

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Truncate cuts s to maxWidth display cells and appends "..." when it was cut.
// The ellipsis is not counted against maxWidth.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 0 {
		maxWidth = 0
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	return runewidth.Truncate(s, maxWidth, "") + "..."
}

// Unscream turns SCREAMING_SNAKE_CASE into Title Case words
func Unscream(s string) string {
	runes := []rune(strings.ReplaceAll(strings.ToLower(s), "_", " "))
	startOfWord := true
	for i, r := range runes {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && startOfWord {
			runes[i] = unicode.ToUpper(r)
		}
		startOfWord = !isWord
	}
	return string(runes)
}
