package match

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"entity-harmonizer/internal/common"
)

// Processor selects how strings are prepared before they are scored.
type Processor int

const (
	// ProcessDefault strips accents, lower-cases, replaces every
	// non-alphanumeric rune with a space and collapses whitespace.
	ProcessDefault Processor = iota
	// ProcessNone scores strings exactly as given.
	ProcessNone
)

// ParseProcessor maps a configuration name onto a Processor.
func ParseProcessor(name string) (Processor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return ProcessDefault, nil
	case "none", "raw":
		return ProcessNone, nil
	default:
		return ProcessDefault, fmt.Errorf("unknown processor %q (expected 'default' or 'none')", name)
	}
}

// String returns the configuration name of the processor.
func (p Processor) String() string {
	if p == ProcessNone {
		return "none"
	}

	return "default"
}

// Apply runs the processor over s.
func (p Processor) Apply(s string) string {
	if p == ProcessNone {
		return s
	}

	return Process(s)
}

// Process applies the default processing pipeline:
// 1. Decompose and drop combining marks ("Côte" -> "Cote").
// 2. Lower-case.
// 3. Replace anything that is not a letter or digit with a space.
// 4. Collapse runs of whitespace and trim.
func Process(s string) string {
	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder

	b.Grow(len(stripped))

	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// FoldKey returns the key under which a name is stored in the alias index.
// Only case differences collapse; the registry writer and validator use the
// same key.
func FoldKey(s string) string {
	return common.FoldKey(s)
}

// tokens splits a processed string into whitespace separated tokens.
func tokens(s string) []string {
	return strings.Fields(s)
}
