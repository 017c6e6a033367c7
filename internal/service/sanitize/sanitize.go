// Package sanitize turns human-readable titles into filesystem-safe names.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

const (
	// MaxLength is the maximum length, in characters, of a sanitized name.
	MaxLength = 100
	// MaxBytes leaves room for an extension under the common 255-byte
	// file name limit.
	MaxBytes = 250
)

var (
	// Characters illegal or problematic in paths, shells and Content-Disposition headers.
	invalidChars = regexp.MustCompile(`[\\/*?:"<>|!\x00-\x1f\x7f]`)
	// Bracketed 11-character video IDs the extraction tool appends to titles.
	videoIDToken = regexp.MustCompile(`\[[\w-]{11}\]`)
)

// Filename maps an arbitrary title to a filesystem-safe name of at most
// MaxLength characters and MaxBytes bytes. It never returns an empty string.
func Filename(title string) string {
	name := invalidChars.ReplaceAllString(title, "")
	name = strings.ReplaceAll(name, " ", "_")
	name = videoIDToken.ReplaceAllString(name, "")
	name = strings.Trim(name, "_. \t")

	if runes := []rune(name); len(runes) > MaxLength {
		name = strings.TrimRight(string(runes[:MaxLength]), "_. ")
	}
	if len(name) > MaxBytes {
		cut := MaxBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], "_. ")
	}

	if name == "" {
		return domain.PlaceholderTitle
	}
	return name
}
