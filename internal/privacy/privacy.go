// Package privacy replaces personal data in free text with placeholder
// tokens such as [PERSON_1] and can put the originals back afterwards.
package privacy

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

const (
	CategoryEmail   = "EMAIL"
	CategorySSN     = "SSN"
	CategoryPhone   = "PHONE"
	CategoryAmount  = "AMOUNT"
	CategoryAddress = "ADDRESS"
	CategoryCompany = "COMPANY"
	CategoryPerson  = "PERSON"
)

type rule struct {
	category string
	re       *regexp.Regexp
	// group selects the submatch that is replaced; 0 is the whole match.
	group int
	// lead, when set, is cut from the front of a match and left in place.
	lead *regexp.Regexp
}

const roleWords = `plaintiff|defendant|client|attorney|witness|petitioner|respondent|counsel|tenant|landlord`

// Order matters: earlier rules consume text before later ones look at it.
var rules = []rule{
	{CategoryEmail, regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), 0, nil},
	{CategorySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), 0, nil},
	{CategoryPhone, regexp.MustCompile(`(?:\+1[-.\s]?)?(?:\(\d{3}\)\s?|\b\d{3}[-.\s])\d{3}[-.\s]\d{4}\b`), 0, nil},
	{CategoryAmount, regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{2})?|\b\d[\d,]*(?:\.\d{2})?\s?(?:USD|dollars)\b`), 0, nil},
	{CategoryAddress, regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:(?:Street|Avenue|Road|Boulevard|Lane|Drive|Court|Way|Place)\b|(?:St|Ave|Rd|Blvd|Ln|Dr|Ct|Pl)\b\.?)`), 0, nil},
	{CategoryCompany, regexp.MustCompile(`\b(?:[A-Z][A-Za-z&]*\s+){0,3}[A-Z][A-Za-z&]*,?\s+(?:Corporation\b|(?:Inc|LLC|Corp|Ltd|LLP|Co)\b\.?)`), 0,
		regexp.MustCompile(`^(?:(?i:` + roleWords + `)\s+)+`)},
	{CategoryPerson, regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Judge)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`), 0, nil},
	{CategoryPerson, regexp.MustCompile(`\b(?i:` + roleWords + `)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)\b`), 1, nil},
}

// Session holds the counters and mappings for one anonymization run. The
// same original value always gets the same token within a session.
type Session struct {
	counters map[string]int
	tokens   map[string]string // category + "\x00" + original → token
	mapping  map[string]string // token → original
}

func NewSession() *Session {
	return &Session{
		counters: map[string]int{},
		tokens:   map[string]string{},
		mapping:  map[string]string{},
	}
}

type Result struct {
	Text    string            `json:"text"`
	Mapping map[string]string `json:"mapping"`
	Counts  map[string]int    `json:"counts"`
}

func (s *Session) token(category, original string) string {
	key := category + "\x00" + original
	if t, ok := s.tokens[key]; ok {
		return t
	}
	s.counters[category]++
	t := fmt.Sprintf("[%s_%d]", category, s.counters[category])
	s.tokens[key] = t
	s.mapping[t] = original
	return t
}

// Anonymize replaces every match of the rule list. On any failure it
// returns the input unchanged.
func (s *Session) Anonymize(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("anonymize failed", "panic", r)
			res = Result{Text: text, Mapping: map[string]string{}, Counts: map[string]int{}}
		}
	}()

	out := text
	for _, r := range rules {
		out = s.replace(out, r)
	}

	return Result{Text: out, Mapping: s.Mapping(), Counts: s.Counts()}
}

// Counts returns how many distinct values were replaced per category.
func (s *Session) Counts() map[string]int {
	out := make(map[string]int, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

func (s *Session) replace(text string, r rule) string {
	matches := r.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[2*r.group], m[2*r.group+1]
		if start < 0 {
			continue
		}
		if r.lead != nil {
			start += len(r.lead.FindString(text[start:end]))
			if start >= end {
				continue
			}
		}
		b.WriteString(text[last:start])
		b.WriteString(s.token(r.category, text[start:end]))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Mapping returns a copy of token → original.
func (s *Session) Mapping() map[string]string {
	out := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out
}

// Restore puts the original values back into text produced in this session.
func (s *Session) Restore(text string) string {
	return Restore(text, s.mapping)
}

// Anonymize runs a fresh session, so equal inputs give equal outputs.
func Anonymize(text string) Result {
	return NewSession().Anonymize(text)
}

// Restore replaces tokens in text using mapping (token → original).
func Restore(text string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return text
	}
	tokens := make([]string, 0, len(mapping))
	for t := range mapping {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	pairs := make([]string, 0, 2*len(tokens))
	for _, t := range tokens {
		pairs = append(pairs, t, mapping[t])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
