// Package textutil provides text helpers for transcript-derived naming and
// filename-derived titles.
package textutil

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxTranscriptNameLength bounds auto-derived names.
const maxTranscriptNameLength = 50

// unsafeNameChars are removed from transcript-derived names.
var unsafeNameChars = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// TranscriptName synthesizes a slice name from transcript text: at most the
// first 50 characters, filesystem-unsafe characters removed, whitespace
// trimmed. Falls back to a placeholder derived from the slice id when
// nothing usable remains.
func TranscriptName(text string, sliceID int64) string {
	runes := []rune(text)
	if len(runes) > maxTranscriptNameLength {
		runes = runes[:maxTranscriptNameLength]
	}
	name := strings.TrimSpace(unsafeNameChars.Replace(string(runes)))
	if name == "" {
		return fmt.Sprintf("Slice %d", sliceID)
	}
	return name
}

// DeriveTitle builds a human label from a recording filename, optionally
// annotated with the original recording date.
func DeriveTitle(fileName string, recordedAt *time.Time) string {
	base := fileName
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}

	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	title := strings.TrimSpace(cleaned.String())
	if title != "" {
		title = cases.Title(language.Und).String(title)
	}
	switch {
	case title == "" && recordedAt != nil:
		return "Recording " + recordedAt.Format("2006-01-02")
	case title == "":
		return "Untitled"
	case recordedAt != nil:
		return title + " (" + recordedAt.Format("2006-01-02") + ")"
	default:
		return title
	}
}

// CountWords counts whitespace-delimited tokens.
func CountWords(text string) int64 {
	return int64(len(strings.Fields(text)))
}
