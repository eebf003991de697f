// Package preprocessor classifies UserCSS bodies as plain CSS, Less or
// Stylus and orchestrates compilation through pluggable backends with a
// bounded per-engine LRU cache and normalized diagnostics.
package preprocessor

import (
	"regexp"
	"strings"
)

// Type identifies a preprocessor engine.
type Type string

const (
	None   Type = "none"
	Less   Type = "less"
	Stylus Type = "stylus"
)

// Source tells how a detection was made. Empty means undetermined.
type Source string

const (
	SourceMetadata  Source = "metadata"
	SourceHeuristic Source = "heuristic"
)

// Detection is the result of classifying a source body. It is computed
// fresh per call and never persisted.
type Detection struct {
	Type       Type
	Source     Source
	Confidence float64
}

// metadataPattern matches an explicit /* @preprocessor <name> */ comment
// at the very start of trimmed text.
var metadataPattern = regexp.MustCompile(`^/\*\s*@preprocessor\s+([\w-]+)\s*\*/`)

// indicator is one heuristic scoring entry. Kept as a data table so the
// token sets and the tie-break stay independently testable and tunable.
type indicator struct {
	pattern *regexp.Regexp
	engine  Type
	weight  int
}

var indicators = []indicator{
	{regexp.MustCompile(`@import\b`), Less, 1},
	{regexp.MustCompile(`@extend\b`), Less, 1},
	{regexp.MustCompile(`@mixin\b`), Less, 1},
	{regexp.MustCompile(`\.[\w-]+\s*\(`), Less, 1}, // mixin call
	{regexp.MustCompile(`\bwhen\s`), Less, 1},      // mixin guard
	{regexp.MustCompile(`(?m)^\s*\)\s*$`), Less, 1},

	{regexp.MustCompile(`&`), Stylus, 1},
	{regexp.MustCompile(`(?m)^\s*//`), Stylus, 1}, // line comment
	{regexp.MustCompile(`->`), Stylus, 1},
	{regexp.MustCompile(`\b\w+\.\w+\s*\(`), Stylus, 1}, // dotted access
	{regexp.MustCompile(`(?m)^\s*unless\s`), Stylus, 1},
	{regexp.MustCompile(`(?m)^\s*if\s`), Stylus, 1},
}

// Detect classifies text. An explicit @preprocessor comment wins with full
// confidence; a recognized name maps to its engine, an unrecognized one to
// none with confidence 0.5 (explicit-unknown differs from absent). Without
// metadata a heuristic score over fixed token sets decides, capped at 0.8
// and favoring Less under near-equal scores.
func Detect(text string) Detection {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Detection{Type: None}
	}

	if m := metadataPattern.FindStringSubmatch(trimmed); m != nil {
		switch Type(strings.ToLower(m[1])) {
		case Less:
			return Detection{Type: Less, Source: SourceMetadata, Confidence: 1.0}
		case Stylus:
			return Detection{Type: Stylus, Source: SourceMetadata, Confidence: 1.0}
		case None:
			return Detection{Type: None, Source: SourceMetadata, Confidence: 1.0}
		default:
			return Detection{Type: None, Source: SourceMetadata, Confidence: 0.5}
		}
	}

	var lessScore, stylusScore int
	for _, ind := range indicators {
		if ind.pattern.MatchString(trimmed) {
			switch ind.engine {
			case Less:
				lessScore += ind.weight
			case Stylus:
				stylusScore += ind.weight
			}
		}
	}

	// Less is the default under ambiguity: it wins whenever it scored at
	// all and Stylus is not ahead by more than one.
	switch {
	case lessScore >= 1 && (lessScore >= stylusScore || stylusScore-lessScore <= 1):
		return Detection{Type: Less, Source: SourceHeuristic, Confidence: heuristicConfidence(lessScore)}
	case stylusScore > lessScore && stylusScore > 0:
		return Detection{Type: Stylus, Source: SourceHeuristic, Confidence: heuristicConfidence(stylusScore)}
	default:
		return Detection{Type: None}
	}
}

func heuristicConfidence(score int) float64 {
	c := float64(score) / 4
	if c > 0.8 {
		return 0.8
	}
	return c
}
