package translate

import (
	"strings"
	"unicode"
)

// SpanishThreshold is the share of Spanish stop words above which a text
// is considered Spanish.
const SpanishThreshold = 0.15

var spanishStopWords = toSet(
	"de", "la", "que", "el", "en", "y", "los", "del", "se", "las", "por", "un",
	"para", "con", "una", "su", "al", "lo", "como", "más", "pero", "sus", "le",
	"ya", "este", "sí", "porque", "esta", "entre", "cuando", "muy", "sin",
	"sobre", "también", "hasta", "hay", "donde", "quien", "desde", "todo",
	"nos", "durante", "todos", "uno", "les", "ni", "contra", "otros", "ese",
	"eso", "ante", "ellos", "esto", "antes", "algunos", "qué", "unos", "otro",
	"otras", "otra", "él", "tanto", "esa", "estos", "mucho", "quienes", "nada",
	"muchos", "cual", "poco", "ella", "estar", "estas", "algunas", "algo",
	"nosotros", "usted", "ustedes", "es", "son", "fue", "será", "deberá",
)

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// DetectLanguage returns "es" when at least SpanishThreshold of the words
// are Spanish stop words, else "en".
func DetectLanguage(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return English
	}
	hits := 0
	for _, w := range words {
		if _, ok := spanishStopWords[w]; ok {
			hits++
		}
	}
	if float64(hits)/float64(len(words)) >= SpanishThreshold {
		return Spanish
	}
	return English
}
