// Package normalize converts raw provider payloads into the canonical quote
// model and aligns bookmaker-specific naming.
package normalize

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	suffixRe     = regexp.MustCompile(`(?i)\b(f\.c\.|fc|club)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NameNormalizer maps bookmaker-provided team and outcome names to canonical
// forms so quotes from different books align on the same outcome. Safe for
// concurrent use.
type NameNormalizer struct {
	mu        sync.RWMutex
	overrides map[string]string
	titler    cases.Caser
}

// NewNameNormalizer creates a normalizer with optional explicit overrides.
// Override keys are matched case-insensitively.
func NewNameNormalizer(overrides map[string]string) *NameNormalizer {
	m := make(map[string]string, len(overrides))
	for k, v := range overrides {
		m[strings.ToLower(k)] = v
	}
	return &NameNormalizer{
		overrides: m,
		titler:    cases.Title(language.English),
	}
}

// Canonicalize returns the canonical form of a name: override if configured,
// otherwise suffix-stripped, whitespace-squashed, title-cased.
func (n *NameNormalizer) Canonicalize(value string) string {
	key := strings.ToLower(strings.TrimSpace(value))
	n.mu.RLock()
	if canonical, ok := n.overrides[key]; ok {
		n.mu.RUnlock()
		return canonical
	}
	n.mu.RUnlock()

	stripped := suffixRe.ReplaceAllString(key, "")
	squashed := strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
	return n.titler.String(squashed)
}

// Update merges additional overrides into the normalizer.
func (n *NameNormalizer) Update(mapping map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for raw, canonical := range mapping {
		n.overrides[strings.ToLower(raw)] = canonical
	}
}
