// Package normalize canonicalizes student names, course levels and durations.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownLevel is the canonical level for labels outside the vocabulary.
const UnknownLevel = "unknown"

var tokenSplit = regexp.MustCompile(`[^A-Za-z0-9]+`)

// validLevels maps upper-cased level tokens to their canonical form.
var validLevels = map[string]string{
	"PREA1":  "A1",
	"PRE-A1": "A1",
	"A1":     "A1",
	"A2":     "A2",
	"B1":     "B1",
	"B2":     "B2",
	"C1":     "C1",
	"C2":     "C2",
}

// DefaultLevelAliases maps whole course names (normalized with Key) to a level.
var DefaultLevelAliases = map[string]string{
	"adventures": "A1",
	"discovery":  "A1",
	"pre-a1":     "A1",
	"indefinido": UnknownLevel,
}

// Key turns a display name into a comparison key: lower case, without
// diacritics, with single spaces and no surrounding whitespace.
// Key(Key(s)) == Key(s) for every s.
func Key(raw string) string {
	s := strings.ToLower(raw)
	s = stripMarks(s)
	return strings.Join(strings.Fields(s), " ")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Leveler resolves course labels to canonical levels.
type Leveler struct {
	aliases map[string]string
}

// NewLeveler builds a Leveler from the default aliases plus extra ones.
// Extra alias keys are normalized with Key and values are upper-cased unless
// they name the unknown level.
func NewLeveler(extra map[string]string) *Leveler {
	aliases := make(map[string]string, len(DefaultLevelAliases)+len(extra))
	for k, v := range DefaultLevelAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		v = strings.TrimSpace(v)
		if !strings.EqualFold(v, UnknownLevel) {
			v = strings.ToUpper(v)
		} else {
			v = UnknownLevel
		}
		aliases[Key(k)] = v
	}
	return &Leveler{aliases: aliases}
}

// Level maps a label through the alias table, then scans it for a CEFR token.
func (l *Leveler) Level(raw string) string {
	if level, ok := l.aliases[Key(raw)]; ok {
		return level
	}
	upper := strings.ToUpper(raw)
	if level, ok := validLevels[strings.TrimSpace(upper)]; ok {
		return level
	}
	tokens := tokenSplit.Split(upper, -1)
	for i, tok := range tokens {
		// "Pre-A1" splits into PRE and A1.
		if tok == "PRE" && i+1 < len(tokens) && tokens[i+1] == "A1" {
			return "A1"
		}
		if level, ok := validLevels[tok]; ok {
			return level
		}
	}
	return UnknownLevel
}

var defaultLeveler = NewLeveler(nil)

// Level resolves a label with the default aliases.
func Level(raw string) string {
	return defaultLeveler.Level(raw)
}

// FormatDuration renders seconds as "1h1m", or "5m" below one hour.
// Seconds are truncated and negative input counts as zero.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
