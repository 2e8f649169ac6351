// Package scanner implements MyMolt's sensitivity scanner: the two-phase
// check that decides whether a piece of text being stored in memory
// contains something that belongs in the vault instead.
package scanner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category names the kind of sensitive content a match represents. These
// are the display names the spec treats as a verbatim contract: they
// appear as-is in the vault's opaque pointer and in the audit log, so
// they are human-readable, not machine-cased.
type Category string

const (
	CategoryOpenAIKey    Category = "OpenAI Key"
	CategoryGoogleAPIKey Category = "Google API Key"
	CategoryAWSAccessKey Category = "AWS Access Key"
	CategoryPrivateKey   Category = "Private Key Block"
	CategoryIBAN         Category = "IBAN"
	CategoryCreditCard   Category = "Credit Card"
	CategoryBankPIN      Category = "Bank PIN"
)

// Match is a single sensitivity hit: the category it belongs to and the
// byte range within the scanned text.
type Match struct {
	Category Category
	Start    int
	End      int
}

// Text returns the matched substring.
func (m Match) Text(content string) string {
	return content[m.Start:m.End]
}

type pattern struct {
	category Category
	prefixes []string // if non-empty, the pattern only runs when one of
	// these literal prefixes is present anywhere in the text — a cheap
	// single-pass gate in front of an expensive regex. Patterns with no
	// prefixes (the financial ones) always run; they have no reliable
	// short literal to gate on.
	re *regexp.Regexp
}

// patterns is evaluated in this exact order; the first match wins. Order
// matters when a string could plausibly satisfy more than one pattern
// (unlikely here, but the contract is deterministic regardless).
var patterns = []pattern{
	{
		category: CategoryOpenAIKey,
		prefixes: []string{"sk-"},
		re:       regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	},
	{
		category: CategoryGoogleAPIKey,
		prefixes: []string{"AIza"},
		re:       regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
	},
	{
		category: CategoryAWSAccessKey,
		prefixes: []string{"AKIA"},
		re:       regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	},
	{
		category: CategoryPrivateKey,
		prefixes: []string{"-----BEGIN"},
		re:       regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	},
	{
		category: CategoryIBAN,
		re:       regexp.MustCompile(`[A-Z]{2}[0-9]{2}(?:[ ]?[0-9]{4}){4,}(?:[ ]?[0-9]{1,2})?`),
	},
	{
		category: CategoryCreditCard,
		re:       regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`),
	},
	{
		category: CategoryBankPIN,
		re:       regexp.MustCompile(`(?i)(pin|conf|cvv|code)\s*(?:is|:|=|-)?\s*(\d{3,8})`),
	},
}

// Scanner finds sensitive content in free text.
type Scanner struct{}

// New creates a Scanner. It holds no mutable state — every pattern is
// compiled once at package init — so a single instance may be shared
// across goroutines.
func New() *Scanner {
	return &Scanner{}
}

// FindFirst runs the two-phase scan over content: prefix-guarded patterns
// only attempt their regex once their literal prefix is observed anywhere
// in the text (a single Contains pass per prefix, functionally the same
// short-circuit an Aho-Corasick multi-pattern automaton buys you, without
// pulling in a dedicated library for four literals); the financial
// patterns always run since they have no safe literal to gate on. Returns
// the first match in pattern-declaration order, or ok=false if nothing
// matched.
func (s *Scanner) FindFirst(content string) (Match, bool) {
	for _, p := range patterns {
		if len(p.prefixes) > 0 && !containsAny(content, p.prefixes) {
			continue
		}
		if loc := p.re.FindStringIndex(content); loc != nil {
			return Match{Category: p.category, Start: loc[0], End: loc[1]}, true
		}
	}
	return Match{}, false
}

// FindAll returns every non-overlapping match across all patterns, scanned
// in pattern-declaration order and merged by start offset. Used by redact
// to replace more than one sensitive span in a single piece of text.
func (s *Scanner) FindAll(content string) []Match {
	var all []Match
	for _, p := range patterns {
		if len(p.prefixes) > 0 && !containsAny(content, p.prefixes) {
			continue
		}
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			all = append(all, Match{Category: p.category, Start: loc[0], End: loc[1]})
		}
	}
	sortMatches(all)
	return dedupeOverlaps(all)
}

// Redact replaces every match in content with its `[REDACTED:<name>]`
// token and returns the redacted copy alongside the sorted, distinct list
// of pattern names that fired. The prefix guard is evaluated once against
// the original content, same as FindAll, but each pattern's replacement
// is applied against the progressively redacted text so an earlier
// replacement cannot reintroduce a later pattern's literal.
func (s *Scanner) Redact(content string) (string, []string) {
	result := content
	seen := make(map[string]bool)
	for _, p := range patterns {
		if len(p.prefixes) > 0 && !containsAny(content, p.prefixes) {
			continue
		}
		if !p.re.MatchString(result) {
			continue
		}
		seen[string(p.category)] = true
		result = p.re.ReplaceAllString(result, fmt.Sprintf("[REDACTED:%s]", p.category))
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return result, names
}

func containsAny(content string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}

func sortMatches(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j-1].Start > m[j].Start; j-- {
			m[j-1], m[j] = m[j], m[j-1]
		}
	}
}

// dedupeOverlaps drops any match that starts before the previous match
// ended, keeping the earlier (and therefore higher-priority, per
// declaration order at equal offsets) match.
func dedupeOverlaps(m []Match) []Match {
	if len(m) == 0 {
		return nil
	}
	out := []Match{m[0]}
	for _, cur := range m[1:] {
		last := out[len(out)-1]
		if cur.Start < last.End {
			continue
		}
		out = append(out, cur)
	}
	return out
}
