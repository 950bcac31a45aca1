// Package translate is a dictionary-based English↔Spanish translator for
// legal vocabulary, with optional LLM polishing of the draft.
package translate

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	English = "en"
	Spanish = "es"
)

//go:embed dictionaries.yaml
var dictionariesYAML []byte

type phrase struct {
	from, to string
	words    int
}

type Dictionary struct {
	// byFirst buckets phrases by their lowercased first rune, longest first.
	byFirst map[rune][]phrase
	size    int
}

func newDictionary(entries map[string]string) *Dictionary {
	d := &Dictionary{byFirst: map[rune][]phrase{}}
	for from, to := range entries {
		from = strings.ToLower(strings.TrimSpace(from))
		if from == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(from)
		d.byFirst[r] = append(d.byFirst[r], phrase{from: from, to: to, words: len(strings.Fields(from))})
		d.size++
	}
	for r := range d.byFirst {
		ps := d.byFirst[r]
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].words != ps[j].words {
				return ps[i].words > ps[j].words
			}
			if len(ps[i].from) != len(ps[j].from) {
				return len(ps[i].from) > len(ps[j].from)
			}
			return ps[i].from < ps[j].from
		})
	}
	return d
}

func (d *Dictionary) Len() int { return d.size }

type dictionaryFile struct {
	EnToEs map[string]string `yaml:"en_to_es"`
	EsToEn map[string]string `yaml:"es_to_en"`
}

// LoadDictionaries parses the YAML document. Every en_to_es entry is also
// inverted into es_to_en unless es_to_en defines that term.
func LoadDictionaries(raw []byte) (enToEs, esToEn *Dictionary, err error) {
	var f dictionaryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("parse dictionaries: %w", err)
	}
	reverse := map[string]string{}
	for en, es := range f.EnToEs {
		key := strings.ToLower(es)
		if _, ok := reverse[key]; !ok || len(en) < len(reverse[key]) {
			reverse[key] = en
		}
	}
	for es, en := range f.EsToEn {
		reverse[strings.ToLower(es)] = en
	}
	return newDictionary(f.EnToEs), newDictionary(reverse), nil
}

// Generator is the LLM used to polish drafts.
type Generator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Translator struct {
	enToEs, esToEn *Dictionary
	gen            Generator
}

// New loads the embedded dictionaries. gen may be nil.
func New(gen Generator) (*Translator, error) {
	enToEs, esToEn, err := LoadDictionaries(dictionariesYAML)
	if err != nil {
		return nil, err
	}
	return &Translator{enToEs: enToEs, esToEn: esToEn, gen: gen}, nil
}

type Result struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Replacements   int    `json:"replacements"`
	Enhanced       bool   `json:"enhanced"`
	Warning        string `json:"warning,omitempty"`
}

// Translate substitutes dictionary terms into target ("en" or "es"). Text
// already in the target language comes back unchanged. With enhance set
// and a generator configured, the draft is polished by the LLM; if that
// fails the dictionary draft is returned.
func (t *Translator) Translate(ctx context.Context, text, target string, enhance bool) (Result, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	var dict *Dictionary
	switch target {
	case Spanish:
		dict = t.enToEs
	case English:
		dict = t.esToEn
	default:
		return Result{}, fmt.Errorf("unsupported target language %q", target)
	}

	source := DetectLanguage(text)
	res := Result{Text: text, SourceLanguage: source, TargetLanguage: target}
	if source == target {
		return res, nil
	}

	res.Text, res.Replacements = substitute(text, dict)

	if enhance && t.gen != nil && strings.TrimSpace(text) != "" {
		polished, err := t.gen.GenerateText(ctx, enhancePrompt(source, target), "ORIGINAL:\n"+text+"\n\nDRAFT:\n"+res.Text)
		if err != nil {
			slog.WarnContext(ctx, "translation enhancement failed", "error", err)
			res.Warning = "enhancement unavailable; returning dictionary translation"
		} else {
			res.Text = polished
			res.Enhanced = true
		}
	}
	return res, nil
}

func enhancePrompt(source, target string) string {
	names := map[string]string{English: "English", Spanish: "Spanish"}
	return fmt.Sprintf("You are a certified legal translator. The DRAFT is a word-by-word %s to %s "+
		"translation of the ORIGINAL. Rewrite it as fluent, accurate legal %s. "+
		"Keep names, numbers and placeholders unchanged. Return only the translation.",
		names[source], names[target], names[target])
}

// substitute scans text once, replacing the longest dictionary phrase that
// starts at each word boundary.
func substitute(text string, dict *Dictionary) (string, int) {
	var b strings.Builder
	b.Grow(len(text))
	count := 0
	prev := rune(-1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isWord(r) && !isWord(prev) {
			if p, end, ok := dict.match(text, i); ok {
				b.WriteString(matchCase(text[i:end], p.to))
				count++
				prev, _ = utf8.DecodeLastRuneInString(text[i:end])
				i = end
				continue
			}
		}
		b.WriteString(text[i : i+size])
		prev = r
		i += size
	}
	return b.String(), count
}

func (d *Dictionary) match(text string, start int) (phrase, int, bool) {
	r, _ := utf8.DecodeRuneInString(text[start:])
	for _, p := range d.byFirst[unicode.ToLower(r)] {
		end, ok := foldPrefix(text, start, p.from)
		if !ok {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[end:])
		if end < len(text) && isWord(next) {
			continue
		}
		return p, end, true
	}
	return phrase{}, 0, false
}

// foldPrefix reports whether text[start:] begins with the lowercase phrase,
// ignoring case and treating any run of spaces as one space.
func foldPrefix(text string, start int, lower string) (int, bool) {
	i := start
	for _, want := range lower {
		if i >= len(text) {
			return 0, false
		}
		got, size := utf8.DecodeRuneInString(text[i:])
		if want == ' ' {
			if !unicode.IsSpace(got) {
				return 0, false
			}
			for i < len(text) {
				got, size = utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(got) {
					break
				}
				i += size
			}
			continue
		}
		if unicode.ToLower(got) != want {
			return 0, false
		}
		i += size
	}
	return i, true
}

func isWord(r rune) bool {
	return r >= 0 && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'')
}

// matchCase applies the casing of original (ALL CAPS or Capitalized) to repl.
func matchCase(original, repl string) string {
	letters, upper := 0, 0
	for _, r := range original {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	switch {
	case letters > 1 && upper == letters:
		return strings.ToUpper(repl)
	case letters > 0:
		first, _ := utf8.DecodeRuneInString(original)
		if unicode.IsUpper(first) {
			r, size := utf8.DecodeRuneInString(repl)
			return string(unicode.ToUpper(r)) + repl[size:]
		}
	}
	return repl
}
