package normalize

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold reduces free text to a comparable key: NFKC width folding, Unicode
// case folding, and every run of non-letter, non-digit runes becomes a
// single space.
func fold(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

type phrase[T ~string] struct {
	text  string
	value T
}

// matcher maps free text onto a closed set. Exact matches on the folded
// canonical value or a synonym win; otherwise the longest synonym found at a
// word start inside the text is used.
type matcher[T ~string] struct {
	exact   map[string]T
	phrases []phrase[T]
}

func newMatcher[T ~string](values []T, synonyms map[T][]string) *matcher[T] {
	m := &matcher[T]{exact: make(map[string]T)}
	add := func(text string, v T) {
		key := fold(text)
		if key == "" {
			return
		}
		if _, dup := m.exact[key]; !dup {
			m.exact[key] = v
			m.phrases = append(m.phrases, phrase[T]{text: key, value: v})
		}
	}
	// Canonical spellings take precedence over any synonym that folds to the same key.
	for _, v := range values {
		add(string(v), v)
	}
	for _, v := range values {
		for _, syn := range synonyms[v] {
			add(syn, v)
		}
	}
	slices.SortStableFunc(m.phrases, func(a, b phrase[T]) int {
		if c := cmp.Compare(utf8.RuneCountInString(b.text), utf8.RuneCountInString(a.text)); c != 0 {
			return c
		}
		return strings.Compare(a.text, b.text)
	})
	return m
}

// match returns the enum value for s and whether the match was exact.
func (m *matcher[T]) match(s string) (v T, exact bool, ok bool) {
	key := fold(s)
	if key == "" {
		return v, false, false
	}
	if v, ok := m.exact[key]; ok {
		return v, true, true
	}
	padded := " " + key
	for _, p := range m.phrases {
		if strings.Contains(padded, " "+p.text) {
			return p.value, false, true
		}
	}
	return v, false, false
}

// keywordIndex maps exercise-name keywords to lists, longest keyword first.
type keywordIndex[T any] struct {
	keys   []string
	values map[string]T
}

func newKeywordIndex[T any](entries map[string]T) *keywordIndex[T] {
	idx := &keywordIndex[T]{values: make(map[string]T, len(entries))}
	for k, v := range entries {
		key := fold(k)
		if key == "" {
			continue
		}
		if _, dup := idx.values[key]; !dup {
			idx.keys = append(idx.keys, key)
		}
		idx.values[key] = v
	}
	slices.SortFunc(idx.keys, func(a, b string) int {
		if c := cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return idx
}

func (idx *keywordIndex[T]) lookup(s string) (T, bool) {
	padded := " " + fold(s)
	for _, k := range idx.keys {
		if strings.Contains(padded, " "+k) {
			return idx.values[k], true
		}
	}
	var zero T
	return zero, false
}
