// Package render formats server state into chat message text.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TruncateMarker is appended to text cut by Truncate.
const TruncateMarker = "\n… (truncated)"

// Money formats an amount of in-game money with thousands separators, e.g. "$1,234,567".
func Money(amount int64) string {
	p := message.NewPrinter(language.English)
	if amount < 0 {
		return p.Sprintf("-$%d", -amount)
	}
	return p.Sprintf("$%d", amount)
}

// Playtime formats a duration in seconds as "Xh Ym", or "Ym" under an hour.
func Playtime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int64(seconds) / 60
	hours := minutes / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Truncate caps s at limit characters, replacing the tail with TruncateMarker.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(TruncateMarker)
	if keep <= 0 {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:keep]) + TruncateMarker
}

// Split breaks s into chunks of at most limit characters, cutting on line boundaries
// where possible.
func Split(s string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var chunks []string
	var b strings.Builder
	size := 0
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			size = 0
		}
	}

	for _, line := range strings.Split(s, "\n") {
		runes := []rune(line)
		// Lines that can never fit are hard cut.
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}

		need := len(runes)
		if size > 0 {
			need++
		}
		if size+need > limit {
			flush()
			need = len(runes)
		}
		if size > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(runes))
		size += need
	}
	flush()
	return chunks
}
