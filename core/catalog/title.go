package catalog

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	mp3Suffix    = regexp.MustCompile(`(?i)\.mp3$`)
	wordBreakers = regexp.MustCompile(`[-_]+`)
)

// TitleFromFile derives a human readable title from a file name:
// "my_best-song.mp3" becomes "My Best Song".
func TitleFromFile(name string) string {
	base := mp3Suffix.ReplaceAllString(name, "")
	base = wordBreakers.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	words := strings.Split(base, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
