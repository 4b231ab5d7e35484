package postal

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes to NFD, drops combining marks, and recomposes.
// "Baden-Württemberg" and "Baden-Wurttemberg" fold to the same key.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldKey lowercases a place name and strips diacritics, producing the key
// used when merging city lists against postal-code tables whose sources
// transliterate names differently. ß folds to "ss" to match the common
// romanization.
func FoldKey(name string) string {
	name = strings.ReplaceAll(name, "ß", "ss")
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// CleanCityName strips the qualifiers Wikipedia appends to city titles:
// parenthesized disambiguations and slash-separated alternate names.
func CleanCityName(title string) string {
	if open := strings.IndexByte(title, '('); open >= 0 {
		if close := strings.IndexByte(title[open:], ')'); close >= 0 {
			title = title[:open] + title[open+close+1:]
		} else {
			title = title[:open]
		}
	}
	if slash := strings.IndexByte(title, '/'); slash >= 0 {
		title = title[:slash]
	}
	return strings.TrimSpace(title)
}
