package api

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackFilename is used when nothing of the client name survives sanitizing.
const fallbackFilename = "upload.csv"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// secureFilename reduces a client supplied filename to a flat ASCII name
// that is safe to join with the upload directory.
func secureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name == "" {
		return fallbackFilename
	}
	return name
}
