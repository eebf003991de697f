package vars

import (
	"fmt"
	"strings"
)

// ExtractDirectives scans UserStyle header text for the directive variable
// dialect: single-line @var declarations and multi-line @advanced blocks.
// Malformed declarations are reported as error strings and skipped; the
// scan always completes.
func ExtractDirectives(header string) ([]Descriptor, []string) {
	var (
		out  []Descriptor
		errs []string
	)
	byName := make(map[string]int)

	add := func(d Descriptor) {
		if i, ok := byName[d.Name]; ok {
			// later declarations for the same slot override earlier ones,
			// used by @advanced text/color "custom" placeholders
			out[i] = d
			return
		}
		byName[d.Name] = len(out)
		out = append(out, d)
	}

	lines := strings.Split(header, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), "*"))
		switch {
		case strings.HasPrefix(line, "@var "):
			d, err := parseVarLine(strings.TrimSpace(line[len("@var "):]))
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid @var on line %d: %v", i+1, err))
				continue
			}
			add(d)
		case strings.HasPrefix(line, "@advanced "):
			d, consumed, err := parseAdvanced(strings.TrimSpace(line[len("@advanced "):]), lines[i+1:])
			i += consumed
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid @advanced on line %d: %v", i+1, err))
				continue
			}
			add(d)
		}
	}
	return out, errs
}

// parseVarLine decodes `<type> <name> "<label>" <default-spec>`.
func parseVarLine(arg string) (Descriptor, error) {
	typ, rest := cutWord(arg)
	if typ == "" {
		return Descriptor{}, fmt.Errorf("missing type")
	}
	name, rest := cutWord(rest)
	if name == "" {
		return Descriptor{}, fmt.Errorf("missing name")
	}
	label, rest, err := cutQuoted(rest)
	if err != nil {
		return Descriptor{}, err
	}

	d := Descriptor{
		Name:  ensureNamePrefix(name),
		Type:  Type(typ),
		Label: label,
	}
	spec := strings.TrimSpace(rest)

	if strings.HasPrefix(spec, "[") && strings.HasSuffix(spec, "]") {
		items := splitListItems(spec[1 : len(spec)-1])
		switch d.Type {
		case TypeSelect:
			for _, it := range items {
				// the default marker may sit inside or outside the quotes
				it = strings.TrimSpace(it)
				star := strings.HasSuffix(it, "*")
				v := unquoteItem(strings.TrimSuffix(it, "*"))
				if !star && strings.HasSuffix(v, "*") {
					star = true
					v = strings.TrimSuffix(v, "*")
				}
				if star {
					d.Default = v
				}
				d.Options = append(d.Options, Option{Value: v, Label: v})
			}
			if d.Default == "" && len(d.Options) > 0 {
				d.Default = d.Options[0].Value
			}
		case TypeNumber, TypeRange:
			// [default, min, max, step?, unit?]
			if len(items) > 0 {
				d.Default = unquoteItem(items[0])
			}
			if len(items) > 1 {
				d.Min = parseFloatPtr(unquoteItem(items[1]))
			}
			if len(items) > 2 {
				d.Max = parseFloatPtr(unquoteItem(items[2]))
			}
			if len(items) > 3 {
				if step := parseFloatPtr(unquoteItem(items[3])); step != nil {
					d.Step = step
				} else {
					d.Unit = unquoteItem(items[3])
				}
			}
			if len(items) > 4 {
				d.Unit = unquoteItem(items[4])
			}
		default:
			return Descriptor{}, fmt.Errorf("bracketed default is not valid for type %q", typ)
		}
		return d, nil
	}

	// literal default for text/number/color/checkbox
	d.Default = unquoteItem(spec)
	if d.Default == "" {
		return Descriptor{}, fmt.Errorf("variable %s has no default", d.Name)
	}
	return d, nil
}

// parseAdvanced decodes the `@advanced` forms. The dropdown form spans
// multiple lines with heredoc option bodies; the scalar text/color forms
// fit on the directive line. Returns the number of follow-up lines
// consumed.
func parseAdvanced(arg string, following []string) (Descriptor, int, error) {
	typ, rest := cutWord(arg)
	switch typ {
	case "text", "color":
		d, err := parseVarLine(arg)
		return d, 0, err
	case "dropdown":
		return parseDropdown(rest, following)
	case "image":
		// image dropdowns share the dropdown block syntax
		return parseDropdown(rest, following)
	default:
		return Descriptor{}, 0, fmt.Errorf("unknown advanced kind %q", typ)
	}
}

// parseDropdown reads `<name> "<label>" {` and then option entries of the
// form `key "label[*]" <<<EOT ... EOT;` until the closing brace.
func parseDropdown(arg string, following []string) (Descriptor, int, error) {
	name, rest := cutWord(arg)
	if name == "" {
		return Descriptor{}, 0, fmt.Errorf("missing dropdown name")
	}
	label, rest, err := cutQuoted(rest)
	if err != nil {
		return Descriptor{}, 0, err
	}
	if !strings.Contains(rest, "{") {
		return Descriptor{}, 0, fmt.Errorf("dropdown %s: expected block open", name)
	}

	d := Descriptor{
		Name:  ensureNamePrefix(name),
		Type:  TypeSelect,
		Label: label,
	}

	consumed := 0
	for consumed < len(following) {
		line := strings.TrimSpace(following[consumed])
		consumed++
		if line == "}" {
			if d.Default == "" && len(d.Options) > 0 {
				d.Default = d.Options[0].Value
			}
			return d, consumed, nil
		}
		if line == "" {
			continue
		}

		key, optRest := cutWord(line)
		optLabel, optRest, err := cutQuoted(optRest)
		if err != nil {
			return Descriptor{}, consumed, fmt.Errorf("dropdown %s: option %q: %v", name, key, err)
		}
		isDefault := strings.HasSuffix(optLabel, "*")
		optLabel = strings.TrimSuffix(optLabel, "*")

		value := strings.TrimSpace(optRest)
		if heredoc, ok := strings.CutPrefix(value, "<<<EOT"); ok {
			var body []string
			if h := strings.TrimSpace(heredoc); h != "" {
				body = append(body, h)
			}
			closed := false
			for consumed < len(following) {
				l := strings.TrimRight(following[consumed], " \t\r")
				consumed++
				t := strings.TrimSpace(l)
				if t == "EOT;" {
					closed = true
					break
				}
				// the terminator may trail the last content line
				if strings.HasSuffix(t, "EOT;") {
					body = append(body, strings.TrimSpace(strings.TrimSuffix(t, "EOT;")))
					closed = true
					break
				}
				body = append(body, l)
			}
			if !closed {
				return Descriptor{}, consumed, fmt.Errorf("dropdown %s: option %q: unterminated heredoc", name, key)
			}
			value = strings.TrimSpace(strings.Join(body, "\n"))
		}

		d.Options = append(d.Options, Option{Value: value, Label: optLabel})
		if isDefault {
			d.Default = value
		}
	}
	return Descriptor{}, consumed, fmt.Errorf("dropdown %s: missing closing brace", name)
}

// cutWord splits off the first whitespace-delimited word.
func cutWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// cutQuoted splits off a leading double- or single-quoted string.
func cutQuoted(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", s, fmt.Errorf("expected quoted label")
	}
	quote := s[0]
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", s, fmt.Errorf("unterminated label")
	}
	return s[1 : end+1], strings.TrimSpace(s[end+2:]), nil
}

// splitListItems splits a bracketed default list on commas that are not
// inside quotes.
func splitListItems(s string) []string {
	var (
		items []string
		start int
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			items = append(items, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		items = append(items, last)
	}
	return items
}

func unquoteItem(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
