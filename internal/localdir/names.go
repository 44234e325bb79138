package localdir

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxNameRunes = 120
	maxExtRunes  = 16
)

// SanitizeName turns an arbitrary string into a single safe path segment.
// Separators, reserved characters and control runes become underscores and
// the result is NFC-normalised so visually equal names compare equal. Long
// names are shortened in the stem so the extension survives.
func SanitizeName(value string) string {
	value = norm.NFC.String(strings.TrimSpace(value))
	var b strings.Builder
	for _, r := range value {
		switch {
		case r == '/', r == '\\', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if utf8.RuneCountInString(out) <= maxNameRunes {
		return out
	}

	ext := path.Ext(out)
	if ext == out || utf8.RuneCountInString(ext) > maxExtRunes {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(out, ext))
	stem = stem[:maxNameRunes-utf8.RuneCountInString(ext)]
	return strings.TrimRight(string(stem), " .") + ext
}

// FoldName returns the key used to detect output name collisions.
func FoldName(value string) string {
	return strings.ToLower(norm.NFC.String(value))
}
