package memory

import (
	"strings"
	"unicode"
)

// foldTable maps accented characters to their base Latin letters.
// The mapping is explicit rather than locale-dependent so that the
// same text always produces the same terms, whatever the device
// locale. Covers the Latin-1 and Latin Extended-A letters that occur
// in French corpora.
var foldTable = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a",
	'ç': "c",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ñ': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ý': "y", 'ÿ': "y",
	'æ': "ae", 'œ': "oe", 'ß': "ss",
}

// Fold lower-cases s and replaces accented characters with their base
// letters using the explicit mapping table.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if folded, ok := foldTable[r]; ok {
			b.WriteString(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize normalizes text into search terms: fold, then split on
// whitespace and hyphens.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
}
