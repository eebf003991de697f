// Package less is the reference Less backend: variables, nesting with
// parent references, interpolation, mixins and simple guards. @import is
// reported and dropped since the engine performs no I/O.
package less

import (
	"fmt"
	"strings"

	"ucss/preprocessor"
)

// Backend compiles a Less subset to plain CSS.
type Backend struct{}

// New is the backend factory registered with the engine.
func New() (preprocessor.Backend, error) {
	return &Backend{}, nil
}

func (b *Backend) Name() string { return "less" }

// Compile parses source into a block tree, resolves variables and mixins
// and prints plain CSS. Parse failures abort with a positioned error;
// unresolved references degrade to warnings.
func (b *Backend) Compile(source string) (preprocessor.BackendResult, error) {
	p := &parser{src: source, line: 1}
	root := &block{vars: map[string]string{}, mixins: map[string][]*block{}}
	if err := p.parseInto(root, false); err != nil {
		return preprocessor.BackendResult{}, err
	}

	var out strings.Builder
	pr := &printer{w: &out}
	pr.printChildren(root, "")

	res := preprocessor.BackendResult{CSS: out.String()}
	for _, w := range p.warnings {
		res.Warnings = append(res.Warnings, w)
	}
	for _, w := range pr.warnings {
		res.Warnings = append(res.Warnings, preprocessor.Diagnostic{Message: w})
	}
	return res, nil
}

// decl is one statement inside a block: a property declaration, a raw
// passthrough (comments, @import-like lines) or a mixin call (name empty,
// call set).
type decl struct {
	name  string
	value string
	raw   string
	call  string
	line  int
}

type block struct {
	selector string
	guard    string
	line     int
	parent   *block
	decls    []decl
	children []*block
	vars     map[string]string
	mixins   map[string][]*block
}

type parser struct {
	src      string
	pos      int
	line     int
	warnings []preprocessor.Diagnostic
}

func (p *parser) errf(format string, args ...any) error {
	return &preprocessor.CompileError{Diagnostic: preprocessor.Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Line:    p.line,
	}}
}

func (p *parser) warnf(line int, format string, args ...any) {
	p.warnings = append(p.warnings, preprocessor.Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
	})
}

// parseInto consumes statements until the closing brace of the current
// block (or end of input at top level).
func (p *parser) parseInto(b *block, nested bool) error {
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			if nested {
				return p.errf("unexpected end of input, unclosed block")
			}
			return nil
		}

		switch {
		case p.src[p.pos] == '}':
			p.pos++
			if !nested {
				return p.errf("unexpected }")
			}
			return nil

		case strings.HasPrefix(p.src[p.pos:], "//"):
			p.skipLine()

		case strings.HasPrefix(p.src[p.pos:], "/*"):
			raw, err := p.readComment()
			if err != nil {
				return err
			}
			b.decls = append(b.decls, decl{raw: raw, line: p.line})

		case p.src[p.pos] == '@':
			if err := p.parseAt(b); err != nil {
				return err
			}

		default:
			if err := p.parseStatement(b); err != nil {
				return err
			}
		}
	}
}

// parseAt handles @variable declarations and at-rules. Block at-rules
// (@media, @-moz-document, @supports, @font-face, @keyframes) become
// nested blocks; @import is reported and dropped; anything else with a
// `name: value;` shape is a variable.
func (p *parser) parseAt(b *block) error {
	word := p.peekWord()
	switch word {
	case "@import":
		line := p.line
		stmt, err := p.readUntil(';')
		if err != nil {
			return err
		}
		p.warnf(line, "@import is not resolved, statement dropped: %s", strings.TrimSpace(stmt))
		return nil
	case "@charset":
		_, err := p.readUntil(';')
		return err
	case "@media", "@supports", "@-moz-document", "@font-face", "@keyframes",
		"@-webkit-keyframes", "@-moz-keyframes", "@page":
		return p.parseStatement(b)
	}

	// `@name: value;` variable declaration
	start := p.pos
	head, err := p.readUntilAny(":;{}")
	if err != nil || p.pos >= len(p.src) || p.src[p.pos] != ':' {
		p.pos = start
		return p.parseStatement(b)
	}
	name := strings.TrimSpace(head)[1:]
	p.pos++ // ':'
	value, err := p.readUntil(';')
	if err != nil {
		return err
	}
	b.vars[name] = strings.TrimSpace(value)
	return nil
}

// parseStatement reads either `selector { ... }` or `prop: value;` or a
// mixin call `.name(...);`.
func (p *parser) parseStatement(b *block) error {
	startLine := p.line
	head, delim, err := p.readStatementHead()
	if err != nil {
		return err
	}
	head = strings.TrimSpace(head)

	if delim == '{' {
		child := &block{
			line:   startLine,
			parent: b,
			vars:   map[string]string{},
			mixins: map[string][]*block{},
		}
		sel, guard, _ := strings.Cut(head, " when")
		child.selector = strings.Join(strings.Fields(sel), " ")
		child.guard = strings.TrimSpace(guard)
		if err := p.parseInto(child, true); err != nil {
			return err
		}
		if name, ok := mixinDefName(child.selector); ok {
			b.mixins[name] = append(b.mixins[name], child)
			return nil
		}
		b.children = append(b.children, child)
		return nil
	}

	// ';' (or trailing '}' handled by caller on next loop)
	if head == "" {
		return nil
	}
	if name, value, ok := splitDeclaration(head); ok {
		b.decls = append(b.decls, decl{name: name, value: value, line: startLine})
		return nil
	}
	if strings.HasPrefix(head, ".") || strings.HasPrefix(head, "#") {
		b.decls = append(b.decls, decl{call: head, line: startLine})
		return nil
	}
	return p.errf("expected declaration or mixin call, got %q", head)
}

// readStatementHead reads up to the first top-level '{' or ';'. A '}' or
// end of input terminates a final declaration without its semicolon.
func (p *parser) readStatementHead() (string, byte, error) {
	var sb strings.Builder
	depth := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\n':
			p.line++
		case '(':
			depth++
		case ')':
			depth--
		case '"', '\'':
			s, err := p.readQuoted()
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(s)
			continue
		case '{', ';':
			if depth == 0 {
				p.pos++
				return sb.String(), c, nil
			}
		case '}':
			if depth == 0 {
				// last declaration without ';', brace left for caller
				return sb.String(), ';', nil
			}
		}
		sb.WriteByte(c)
		p.pos++
	}
	return sb.String(), ';', nil
}

func (p *parser) readQuoted() (string, error) {
	quote := p.src[p.pos]
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos++
		case quote:
			p.pos++
			return p.src[start:p.pos], nil
		case '\n':
			p.line++
		}
		p.pos++
	}
	return "", p.errf("unterminated string")
}

func (p *parser) readComment() (string, error) {
	end := strings.Index(p.src[p.pos:], "*/")
	if end < 0 {
		return "", p.errf("unterminated comment")
	}
	raw := p.src[p.pos : p.pos+end+2]
	p.line += strings.Count(raw, "\n")
	p.pos += end + 2
	return raw, nil
}

func (p *parser) readUntil(stop byte) (string, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\n' {
			p.line++
		}
		if c == stop {
			s := p.src[start:p.pos]
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return "", p.errf("expected %q", string(stop))
}

func (p *parser) readUntilAny(stops string) (string, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '\n' {
			p.line++
		}
		if strings.IndexByte(stops, c) >= 0 {
			return p.src[start:p.pos], nil
		}
		p.pos++
	}
	return p.src[start:], nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\n':
			p.line++
			p.pos++
		case ' ', '\t', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) skipLine() {
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
}

func (p *parser) peekWord() string {
	rest := p.src[p.pos:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ':' || r == ';' || r == '(' || r == '{'
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// mixinDefName reports whether a selector defines a mixin, i.e. a class
// or id selector with a parameter list.
func mixinDefName(sel string) (string, bool) {
	if !strings.HasPrefix(sel, ".") && !strings.HasPrefix(sel, "#") {
		return "", false
	}
	name, _, ok := strings.Cut(sel, "(")
	if !ok || !strings.HasSuffix(sel, ")") {
		return "", false
	}
	return strings.TrimSpace(name), true
}

// splitDeclaration splits `prop: value`, rejecting selectors that merely
// contain pseudo-class colons.
func splitDeclaration(s string) (string, string, bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", "", false
	}
	name := strings.TrimSpace(s[:i])
	if strings.ContainsAny(name, " .#&>{") {
		return "", "", false
	}
	return name, strings.TrimSpace(s[i+1:]), true
}
