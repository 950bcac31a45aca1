package extract

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

func rules(pairs ...string) []rewrite {
	out := make([]rewrite, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rewrite{regexp.MustCompile(pairs[i]), pairs[i+1]})
	}
	return out
}

var (
	whitespaceRules = rules(
		`[\t\f\v\x{00A0}]+`, " ",
		` {2,}`, " ",
		`(?m) +$`, "",
		`(?m)^ +`, "",
		`\n{3,}`, "\n\n",
	)

	// Character confusions typical of OCR output. Each is applied twice so
	// overlapping matches ("c0mm0n") are caught.
	ocrRules = rules(
		`([a-z])0([a-z])`, "${1}o${2}",
		`([A-Z])0([A-Z])`, "${1}O${2}",
		`([a-z])1([a-z])`, "${1}l${2}",
		`(\d)[Oo](\d)`, "${1}0${2}",
		`(\d)[lI](\d)`, "${1}1${2}",
		`(^|\s)\|(\s|$)`, "${1}I${2}",
	)

	ocrWords = map[string]string{
		"tbe":      "the",
		"Tbe":      "The",
		"tlie":     "the",
		"Tlie":     "The",
		"wliich":   "which",
		"rnay":     "may",
		"rnust":    "must",
		"frorn":    "from",
		"tirne":    "time",
		"cornpany": "company",
		"Cornpany": "Company",
	}
	wordRe = regexp.MustCompile(`\b[A-Za-z]+\b`)

	citationRules = rules(
		`(§§?)\s*(\d)`, "$1 $2",
		`U\.\s*S\.\s*C\.`, "U.S.C.",
		`U\.\s+S\.`, "U.S.",
		`\bF\.\s*(\d)d\b`, "F.${1}d",
		`\bF\.\s*Supp\.\s*(\d)d\b`, "F. Supp. ${1}d",
		`(\w)\s+v\s*\.\s+(\w)`, "$1 v. $2",
		`(\w)\s+vs\.?\s+(\w)`, "$1 v. $2",
	)

	abbreviationRules = rules(
		`\b(Corp|Inc|Ltd)\b\.?`, "$1.",
		`\bCo\b\.?([ ,])`, "Co.$1",
		`\bL\.?L\.?C\b\.?`, "LLC",
		`\bL\.?L\.?P\b\.?`, "LLP",
		`\b(?:No|NO|no)\.?\s*(\d)`, "No. $1",
	)

	pageLineRe = regexp.MustCompile(`(?i)^(?:page\s+\d+(?:\s+of\s+\d+)?|-\s*\d+\s*-|\d{1,4})$`)
)

func apply(text string, rs []rewrite) string {
	for _, r := range rs {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// Clean runs the fixed cleanup pipeline: whitespace, OCR confusions,
// citation spacing, abbreviations, then header/footer stripping.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = apply(text, whitespaceRules)

	text = apply(apply(text, ocrRules), ocrRules)
	text = wordRe.ReplaceAllStringFunc(text, func(w string) string {
		if fixed, ok := ocrWords[w]; ok {
			return fixed
		}
		return w
	})

	text = apply(text, citationRules)
	text = apply(text, abbreviationRules)
	text = stripHeadersFooters(text)
	text = apply(text, whitespaceRules)
	return strings.TrimSpace(text)
}

// stripHeadersFooters drops page-number lines and short lines that repeat
// three or more times (running heads and footers).
func stripHeadersFooters(text string) string {
	lines := strings.Split(text, "\n")
	counts := map[string]int{}
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && len(t) <= 40 {
			counts[t]++
		}
	}
	out := lines[:0]
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && (pageLineRe.MatchString(t) || counts[t] >= 3) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
