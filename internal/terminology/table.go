package terminology

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"horse.fit/prompttranslate/internal/language"
)

// Wildcard scopes an entry to every source language.
const Wildcard = "*"

// Entry pins one source term to a fixed English rendering.
type Entry struct {
	SourceTerm       string `json:"source_term"`
	SourceLang       string `json:"source_lang"`
	CanonicalEnglish string `json:"canonical_english"`
}

// Table holds terminology entries keyed by (source language, folded term).
// Registering the same key again replaces the earlier entry.
type Table struct {
	mu       sync.RWMutex
	entries  map[string]map[string]Entry
	matchers map[string]*matcher
}

func NewTable() *Table {
	return &Table{
		entries:  make(map[string]map[string]Entry),
		matchers: make(map[string]*matcher),
	}
}

// Register adds or replaces one entry.
func (t *Table) Register(entry Entry) error {
	if t == nil {
		return fmt.Errorf("terminology table is nil")
	}
	term := strings.TrimSpace(entry.SourceTerm)
	if term == "" {
		return fmt.Errorf("source_term is required")
	}
	english := strings.TrimSpace(entry.CanonicalEnglish)
	if english == "" {
		return fmt.Errorf("canonical_english is required for %q", term)
	}
	lang := normalizeScope(entry.SourceLang)
	if lang == "" {
		return fmt.Errorf("source_lang %q is not a valid language code", entry.SourceLang)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	byTerm, ok := t.entries[lang]
	if !ok {
		byTerm = make(map[string]Entry)
		t.entries[lang] = byTerm
	}
	byTerm[string(foldRunes([]rune(term)))] = Entry{
		SourceTerm:       term,
		SourceLang:       lang,
		CanonicalEnglish: english,
	}
	clear(t.matchers)
	return nil
}

// RegisterAll registers entries in order, so later rows win.
func (t *Table) RegisterAll(entries []Entry) error {
	for i, entry := range entries {
		if err := t.Register(entry); err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
	}
	return nil
}

// Apply substitutes registered terms in text, longest match first. It returns
// the rewritten text and the entries applied, in text order.
func (t *Table) Apply(text, lang string) (string, []Entry) {
	if t == nil || text == "" {
		return text, nil
	}
	m := t.matcherFor(lang)
	if m.empty() {
		return text, nil
	}

	src := []rune(text)
	folded := foldRunes(src)

	var (
		out     strings.Builder
		applied []Entry
	)
	out.Grow(len(text))
	for i := 0; i < len(src); {
		if c, ok := m.match(folded, i); ok {
			out.WriteString(c.entry.CanonicalEnglish)
			applied = append(applied, c.entry)
			i += len(c.term)
			continue
		}
		out.WriteRune(src[i])
		i++
	}
	return out.String(), applied
}

// Count reports how many terms Apply would substitute.
func (t *Table) Count(text, lang string) int {
	if t == nil || text == "" {
		return 0
	}
	m := t.matcherFor(lang)
	if m.empty() {
		return 0
	}

	folded := foldRunes([]rune(text))
	count := 0
	for i := 0; i < len(folded); {
		if c, ok := m.match(folded, i); ok {
			count++
			i += len(c.term)
			continue
		}
		i++
	}
	return count
}

// Covers reports whether every letter of text falls inside a term Apply would
// substitute. Text without letters is covered.
func (t *Table) Covers(text, lang string) bool {
	if t == nil {
		return !containsLetter(text)
	}
	m := t.matcherFor(lang)
	folded := foldRunes([]rune(text))
	for i := 0; i < len(folded); {
		if !m.empty() {
			if c, ok := m.match(folded, i); ok {
				i += len(c.term)
				continue
			}
		}
		if unicode.IsLetter(folded[i]) {
			return false
		}
		i++
	}
	return true
}

func containsLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for _, byTerm := range t.entries {
		total += len(byTerm)
	}
	return total
}

// Entries returns a snapshot sorted by language and term.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, 64)
	for _, byTerm := range t.entries {
		for _, entry := range byTerm {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceLang != out[j].SourceLang {
			return out[i].SourceLang < out[j].SourceLang
		}
		return out[i].SourceTerm < out[j].SourceTerm
	})
	return out
}

func (t *Table) matcherFor(lang string) *matcher {
	scope := normalizeScope(lang)

	t.mu.RLock()
	m, ok := t.matchers[scope]
	t.mu.RUnlock()
	if ok {
		return m
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.matchers[scope]; ok {
		return m
	}

	merged := make(map[string]Entry)
	for key, entry := range t.entries[Wildcard] {
		merged[key] = entry
	}
	if scope != Wildcard {
		for key, entry := range t.entries[scope] {
			merged[key] = entry
		}
	}
	m = newMatcher(merged)
	t.matchers[scope] = m
	return m
}

func normalizeScope(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == Wildcard {
		return Wildcard
	}
	return language.NormalizeCode(trimmed)
}

type candidate struct {
	term  []rune
	entry Entry
}

// matcher indexes candidates by their first folded rune, longest first.
type matcher struct {
	byFirst map[rune][]candidate
}

func newMatcher(entries map[string]Entry) *matcher {
	m := &matcher{byFirst: make(map[rune][]candidate, len(entries))}
	for key, entry := range entries {
		term := []rune(key)
		m.byFirst[term[0]] = append(m.byFirst[term[0]], candidate{term: term, entry: entry})
	}
	for first, list := range m.byFirst {
		sort.Slice(list, func(i, j int) bool {
			if len(list[i].term) != len(list[j].term) {
				return len(list[i].term) > len(list[j].term)
			}
			return string(list[i].term) < string(list[j].term)
		})
		m.byFirst[first] = list
	}
	return m
}

func (m *matcher) empty() bool {
	return m == nil || len(m.byFirst) == 0
}

func (m *matcher) match(folded []rune, at int) (candidate, bool) {
	for _, c := range m.byFirst[folded[at]] {
		end := at + len(c.term)
		if end > len(folded) {
			continue
		}
		if !runesEqual(folded[at:end], c.term) {
			continue
		}
		if needsBoundary(c.term[0]) && at > 0 && needsBoundary(folded[at-1]) {
			continue
		}
		if needsBoundary(c.term[len(c.term)-1]) && end < len(folded) && needsBoundary(folded[end]) {
			continue
		}
		return c, true
	}
	return candidate{}, false
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func foldRunes(src []rune) []rune {
	out := make([]rune, len(src))
	for i, r := range src {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// needsBoundary reports whether r is a word character of a script written
// with spaces between words.
func needsBoundary(r rune) bool {
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return false
	}
	return !unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul, unicode.Thai)
}
