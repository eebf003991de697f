// Package stylus is the reference Stylus backend. It covers the
// indentation and braced block syntaxes, `name = value` variables,
// optional colons and semicolons, and parent references. Constructs
// outside the subset (conditionals, iteration, function definitions)
// produce diagnostics instead of silently corrupted output.
package stylus

import (
	"fmt"
	"regexp"
	"strings"

	"ucss/preprocessor"
)

// Backend compiles a Stylus subset to plain CSS.
type Backend struct{}

// New is the backend factory registered with the engine.
func New() (preprocessor.Backend, error) {
	return &Backend{}, nil
}

func (b *Backend) Name() string { return "stylus" }

type node struct {
	selector string
	line     int
	props    [][2]string
	raws     []string
	children []*node
}

type compiler struct {
	vars     map[string]string
	warnings []preprocessor.Diagnostic
}

var assignPattern = regexp.MustCompile(`^([\w$-]+)\s*=\s*(.+)$`)

var interpPattern = regexp.MustCompile(`\{([\w$-]+)\}`)

// unsupported constructs that would need real language semantics.
var unsupportedPattern = regexp.MustCompile(`^(if|else|unless|for|while|return)\b|^[\w-]+\s*\([^)]*\)\s*$`)

// Compile builds a block tree from indentation (or braces), substitutes
// variables and prints plain CSS. Indentation that does not match any
// open block is a positioned fatal error.
func (b *Backend) Compile(source string) (preprocessor.BackendResult, error) {
	c := &compiler{vars: map[string]string{}}
	root := &node{}

	type level struct {
		indent int
		n      *node
		braced bool
	}
	stack := []level{{indent: -1, n: root}}

	lines := strings.Split(source, "\n")
	skipDeeper := -1 // drop sub-blocks of unsupported constructs

	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		raw := lines[i]
		if idx := strings.Index(raw, "//"); idx >= 0 && !strings.Contains(raw[:idx], "url(") {
			raw = raw[:idx]
		}
		text := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		indent := indentOf(text)

		if skipDeeper >= 0 {
			if indent > skipDeeper {
				continue
			}
			skipDeeper = -1
		}

		// pop blocks closed by dedent; braced blocks close only on "}"
		for len(stack) > 1 && !stack[len(stack)-1].braced && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}
		cur := stack[len(stack)-1].n

		switch {
		case trimmed == "}":
			for len(stack) > 1 {
				braced := stack[len(stack)-1].braced
				stack = stack[:len(stack)-1]
				if braced {
					break
				}
			}
			continue

		case strings.HasSuffix(trimmed, "{"):
			sel := strings.TrimSpace(strings.TrimSuffix(trimmed, "{"))
			child := &node{selector: sel, line: lineNo}
			cur.children = append(cur.children, child)
			stack = append(stack, level{indent: indent, n: child, braced: true})
			continue

		case strings.HasPrefix(trimmed, "/*"):
			// block comment, keep verbatim (placeholder markers survive)
			joined, consumed, err := readBlockComment(lines, i)
			if err != nil {
				return preprocessor.BackendResult{}, &preprocessor.CompileError{Diagnostic: preprocessor.Diagnostic{
					Message: "unterminated comment", Line: lineNo,
				}}
			}
			cur.raws = append(cur.raws, joined)
			i += consumed
			continue
		}

		if m := assignPattern.FindStringSubmatch(trimmed); m != nil && !strings.Contains(m[1], "-moz") {
			c.vars[m[1]] = c.substitute(strings.TrimSuffix(m[2], ";"))
			continue
		}

		if unsupportedPattern.MatchString(trimmed) {
			c.warnings = append(c.warnings, preprocessor.Diagnostic{
				Message: fmt.Sprintf("unsupported construct skipped: %s", trimmed),
				Line:    lineNo,
			})
			skipDeeper = indent
			continue
		}

		if opensBlock(lines, i, indent) {
			child := &node{selector: strings.TrimSuffix(trimmed, ","), line: lineNo}
			cur.children = append(cur.children, child)
			stack = append(stack, level{indent: indent, n: child})
			continue
		}

		name, value, ok := splitProperty(trimmed)
		if !ok {
			c.warnings = append(c.warnings, preprocessor.Diagnostic{
				Message: fmt.Sprintf("cannot interpret line: %s", trimmed),
				Line:    lineNo,
			})
			continue
		}
		cur.props = append(cur.props, [2]string{name, c.substitute(value)})
	}

	var out strings.Builder
	printNode(&out, root, "")
	res := preprocessor.BackendResult{CSS: out.String()}
	res.Warnings = append(res.Warnings, c.warnings...)
	return res, nil
}

func indentOf(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// opensBlock reports whether the next non-blank line is indented deeper,
// which makes the current line a selector in indentation syntax.
func opensBlock(lines []string, i, indent int) bool {
	for j := i + 1; j < len(lines); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" {
			continue
		}
		return indentOf(lines[j]) > indent
	}
	return false
}

func readBlockComment(lines []string, i int) (string, int, error) {
	if strings.Contains(lines[i], "*/") {
		return strings.TrimSpace(lines[i]), 0, nil
	}
	var parts []string
	parts = append(parts, strings.TrimRight(lines[i], " \t"))
	for j := i + 1; j < len(lines); j++ {
		parts = append(parts, lines[j])
		if strings.Contains(lines[j], "*/") {
			return strings.Join(parts, "\n"), j - i, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated")
}

// splitProperty handles `prop: value`, `prop value` and trailing
// semicolons. A bare word is not a property.
func splitProperty(s string) (string, string, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ";")
	if name, value, ok := strings.Cut(s, ":"); ok {
		name = strings.TrimSpace(name)
		if name != "" && !strings.ContainsAny(name, " {}") {
			return name, strings.TrimSpace(value), true
		}
	}
	if name, value, ok := strings.Cut(s, " "); ok {
		if isIdent(name) {
			return name, strings.TrimSpace(value), true
		}
	}
	return "", "", false
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '-' && r != '_' && !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// substitute replaces variable references in a value: bare identifiers
// matching a defined variable and {name} interpolations. Unknown
// references stay untouched.
func (c *compiler) substitute(value string) string {
	// interpolation first
	value = interpPattern.ReplaceAllStringFunc(value, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := c.vars[name]; ok {
			return v
		}
		return m
	})
	fields := strings.Fields(value)
	for i, f := range fields {
		trimmedField := strings.TrimSuffix(f, ",")
		if v, ok := c.vars[trimmedField]; ok {
			if strings.HasSuffix(f, ",") {
				fields[i] = v + ","
			} else {
				fields[i] = v
			}
		}
	}
	return strings.Join(fields, " ")
}

func printNode(w *strings.Builder, n *node, parent string) {
	sel := n.selector
	if sel != "" {
		sel = joinSelector(parent, sel)
	}
	for _, raw := range n.raws {
		w.WriteString(raw)
		w.WriteString("\n")
	}
	if len(n.props) > 0 && sel != "" {
		target := sel
		if strings.HasPrefix(n.selector, "@") {
			target = n.selector
		}
		fmt.Fprintf(w, "%s {\n", target)
		for _, p := range n.props {
			fmt.Fprintf(w, "%s: %s;\n", p[0], p[1])
		}
		w.WriteString("}\n")
	}
	for _, child := range n.children {
		if strings.HasPrefix(n.selector, "@") {
			// group rule wraps its resolved children
			fmt.Fprintf(w, "%s {\n", n.selector)
			printNode(w, child, parent)
			w.WriteString("}\n")
			continue
		}
		printNode(w, child, sel)
	}
}

func joinSelector(parent, sel string) string {
	if strings.Contains(sel, "&") {
		return strings.ReplaceAll(sel, "&", parent)
	}
	if parent == "" || strings.HasPrefix(parent, "@") {
		return sel
	}
	var parts []string
	for _, s := range strings.Split(sel, ",") {
		parts = append(parts, parent+" "+strings.TrimSpace(s))
	}
	return strings.Join(parts, ", ")
}
