package vars

import (
	"regexp"
	"strings"
)

// placeholderPattern matches inline markers of the form
// /*[[--name|type|default|...]]*/ optionally followed by the literal value
// token the marker customizes.
var placeholderPattern = regexp.MustCompile(`/\*\[\[([^\]]+)\]\]\*/`)

// trailing literal token right after a marker, e.g. "#336699" or "16px".
var literalPattern = regexp.MustCompile(`^[^\s;,}!]+`)

// ExtractPlaceholders scans a CSS body for inline placeholder markers and
// returns the descriptors in document order. Extraction is purely textual
// and never mutates the input. On duplicate names the first occurrence
// wins.
func ExtractPlaceholders(css string) []Descriptor {
	var out []Descriptor
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(css, -1) {
		d, ok := parsePlaceholderFields(m[1])
		if !ok || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}

// parsePlaceholderFields decodes the pipe-separated field list of one
// marker. Field order: name, type, default, then type-specific trailing
// fields. The name is required and must be "--" prefixed; everything else
// is optional.
func parsePlaceholderFields(raw string) (Descriptor, bool) {
	fields := strings.Split(raw, "|")
	name := strings.TrimSpace(fields[0])
	if !strings.HasPrefix(name, "--") || name == "--" {
		return Descriptor{}, false
	}

	d := Descriptor{Name: name, Type: TypeText}
	if len(fields) > 1 {
		if t := strings.TrimSpace(fields[1]); t != "" {
			d.Type = Type(t) // unknown types pass through unchanged
		}
	}
	if len(fields) > 2 {
		d.Default = strings.TrimSpace(fields[2])
	}

	rest := fields[3:]
	switch d.Type {
	case TypeNumber, TypeRange:
		// default|min|max|step?|unit?
		if len(rest) > 0 {
			d.Min = parseFloatPtr(rest[0])
		}
		if len(rest) > 1 {
			d.Max = parseFloatPtr(rest[1])
		}
		if len(rest) > 2 {
			if step := parseFloatPtr(rest[2]); step != nil {
				d.Step = step
			} else {
				d.Unit = strings.TrimSpace(rest[2])
			}
		}
		if len(rest) > 3 {
			d.Unit = strings.TrimSpace(rest[3])
		}
	case TypeSelect:
		// default|options:v1,v2,v3
		for _, f := range rest {
			f = strings.TrimSpace(f)
			if opts, ok := strings.CutPrefix(f, "options:"); ok {
				for _, v := range strings.Split(opts, ",") {
					v = strings.TrimSpace(v)
					if v != "" {
						d.Options = append(d.Options, Option{Value: v, Label: v})
					}
				}
			}
		}
	}
	return d, true
}

// ResolveVariables substitutes every placeholder marker and its trailing
// literal with the supplied value for that name, falling back to the
// marker's own default. When neither is available the marker and literal
// are left untouched rather than corrupting the surrounding CSS.
func ResolveVariables(css string, values map[string]string) string {
	var b strings.Builder
	b.Grow(len(css))
	rest := css
	for {
		loc := placeholderPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:loc[0]])
		marker := rest[loc[0]:loc[1]]
		tail := rest[loc[1]:]

		d, ok := parsePlaceholderFields(rest[loc[2]:loc[3]])
		repl := ""
		if ok {
			if v, have := values[d.Name]; have && v != "" {
				repl = v
			} else {
				repl = d.Default
			}
		}
		if repl == "" {
			// nothing to substitute, keep marker and literal as-is
			b.WriteString(marker)
			rest = tail
			continue
		}
		literal := literalPattern.FindString(tail)
		b.WriteString(repl)
		rest = tail[len(literal):]
	}
}
