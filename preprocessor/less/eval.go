package less

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// varPattern matches @name and @{name} references in values, selectors
// and guards.
var varPattern = regexp.MustCompile(`@\{?([\w-]+)\}?`)

type printer struct {
	w        *strings.Builder
	warnings []string
}

// lookupVar walks the scope chain from b outwards.
func lookupVar(b *block, name string) (string, bool) {
	for s := b; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

func lookupMixins(b *block, name string) []*block {
	for s := b; s != nil; s = s.parent {
		if defs, ok := s.mixins[name]; ok {
			return defs
		}
	}
	return nil
}

// resolve substitutes variable references in s against the scope of b,
// then folds simple arithmetic. Unresolved references are kept verbatim
// and reported once.
func (pr *printer) resolve(b *block, s string, seen map[string]bool) string {
	out := varPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := varPattern.FindStringSubmatch(ref)
		name := m[1]
		if isAtKeyword(name) {
			return ref
		}
		if seen[name] {
			pr.warnf("circular variable reference @%s", name)
			return ref
		}
		v, ok := lookupVar(b, name)
		if !ok {
			pr.warnf("undefined variable @%s", name)
			return ref
		}
		seen[name] = true
		resolved := pr.resolve(b, v, seen)
		delete(seen, name)
		return resolved
	})
	return foldMath(out)
}

func (pr *printer) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	for _, w := range pr.warnings {
		if w == msg {
			return
		}
	}
	pr.warnings = append(pr.warnings, msg)
}

// isAtKeyword keeps CSS at-keywords that survive into values, such as
// media types inside @media interpolation-free selectors.
func isAtKeyword(name string) bool {
	switch name {
	case "media", "supports", "font-face", "keyframes", "page", "import", "charset":
		return true
	}
	return false
}

// foldMath evaluates `a op b` when both operands are plain numbers with
// at most one shared unit, mirroring the conservative folding of the
// grounding compiler. Anything else is returned unchanged.
func foldMath(s string) string {
	inner := s
	if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		inner = strings.TrimSuffix(strings.TrimPrefix(inner, "("), ")")
	}
	parts := strings.Fields(inner)
	if len(parts) != 3 {
		return s
	}
	a, aUnit, ok1 := splitNumber(parts[0])
	b, bUnit, ok2 := splitNumber(parts[2])
	if !ok1 || !ok2 {
		return s
	}
	unit := aUnit
	if unit == "" {
		unit = bUnit
	} else if bUnit != "" && bUnit != unit {
		return s
	}
	var r float64
	switch parts[1] {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		if b == 0 {
			return s
		}
		r = a / b
	default:
		return s
	}
	return strconv.FormatFloat(r, 'f', -1, 64) + unit
}

func splitNumber(s string) (float64, string, bool) {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' || c == '.' {
			break
		}
		i--
	}
	if i == 0 {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", false
	}
	return v, s[i:], true
}

// guardHolds evaluates a `when (...)` guard. Conditions join with "and";
// non-numeric or unparseable conditions pass, keeping unsupported guards
// harmless.
func (pr *printer) guardHolds(b *block, guard string) bool {
	if guard == "" {
		return true
	}
	resolved := pr.resolve(b, guard, map[string]bool{})
	for _, cond := range strings.Split(resolved, "and") {
		cond = strings.TrimSpace(cond)
		cond = strings.TrimPrefix(cond, "(")
		cond = strings.TrimSuffix(cond, ")")
		parts := strings.Fields(cond)
		if len(parts) != 3 {
			continue
		}
		a, _, ok1 := splitNumber(parts[0])
		c, _, ok2 := splitNumber(parts[2])
		if !ok1 || !ok2 {
			// string equality still works for = and !=
			switch parts[1] {
			case "=":
				if parts[0] != parts[2] {
					return false
				}
			case "!=":
				if parts[0] == parts[2] {
					return false
				}
			}
			continue
		}
		var holds bool
		switch parts[1] {
		case "=":
			holds = a == c
		case "!=":
			holds = a != c
		case "<":
			holds = a < c
		case ">":
			holds = a > c
		case "<=", "=<":
			holds = a <= c
		case ">=", "=>":
			holds = a >= c
		default:
			holds = true
		}
		if !holds {
			return false
		}
	}
	return true
}

// joinSelector combines a parent selector with a nested one, honoring
// parent references.
func joinSelector(parent, sel string) string {
	if strings.Contains(sel, "&") {
		return strings.ReplaceAll(sel, "&", parent)
	}
	if parent == "" {
		return sel
	}
	var parts []string
	for _, s := range strings.Split(sel, ",") {
		parts = append(parts, parent+" "+strings.TrimSpace(s))
	}
	return strings.Join(parts, ", ")
}

// printChildren emits all rules of b's subtree under the given parent
// selector context.
func (pr *printer) printChildren(b *block, parent string) {
	pr.printDecls(b, b, parent)
	for _, child := range b.children {
		pr.printBlock(child, parent)
	}
}

func (pr *printer) printBlock(b *block, parent string) {
	if !pr.guardHolds(b, b.guard) {
		return
	}
	sel := pr.resolve(b, b.selector, map[string]bool{})

	if strings.HasPrefix(sel, "@") {
		// conditional group rule keeps its own braces, rules inside
		// resolve against the outer selector context
		fmt.Fprintf(pr.w, "%s {\n", sel)
		pr.printChildren(b, parent)
		pr.w.WriteString("}\n")
		return
	}

	joined := joinSelector(parent, sel)
	if pr.hasOwnDecls(b, b) {
		fmt.Fprintf(pr.w, "%s {\n", joined)
		pr.printDecls(b, b, joined)
		pr.w.WriteString("}\n")
	}
	for _, child := range b.children {
		pr.printBlock(child, joined)
	}
}

// hasOwnDecls reports whether the block (including expanded mixin calls)
// produces any declaration output.
func (pr *printer) hasOwnDecls(scope, b *block) bool {
	for _, d := range b.decls {
		if d.name != "" || d.raw != "" {
			return true
		}
		if d.call != "" {
			name, _, _ := strings.Cut(d.call, "(")
			if len(lookupMixins(scope, strings.TrimSpace(name))) > 0 {
				return true
			}
		}
	}
	return false
}

// printDecls writes the declarations of b, expanding mixin calls inline.
func (pr *printer) printDecls(scope, b *block, parent string) {
	for _, d := range b.decls {
		switch {
		case d.raw != "":
			fmt.Fprintf(pr.w, "%s\n", d.raw)
		case d.name != "":
			fmt.Fprintf(pr.w, "%s: %s;\n", d.name, pr.resolve(scope, d.value, map[string]bool{}))
		case d.call != "":
			pr.expandMixin(scope, d.call, parent)
		}
	}
}

// expandMixin binds arguments to parameters and prints the mixin body in
// the caller's selector context.
func (pr *printer) expandMixin(scope *block, call, parent string) {
	name, argsRaw, _ := strings.Cut(call, "(")
	name = strings.TrimSpace(name)
	defs := lookupMixins(scope, name)
	if len(defs) == 0 {
		pr.warnf("undefined mixin %s", name)
		return
	}
	args := splitArgs(strings.TrimSuffix(strings.TrimSpace(argsRaw), ")"))
	for i := range args {
		args[i] = pr.resolve(scope, args[i], map[string]bool{})
	}

	for _, def := range defs {
		_, paramsRaw, _ := strings.Cut(def.selector, "(")
		params := splitArgs(strings.TrimSuffix(paramsRaw, ")"))

		bound := &block{
			parent: def.parent,
			vars:   map[string]string{},
			mixins: def.mixins,
		}
		for i, param := range params {
			param = strings.TrimSpace(param)
			if !strings.HasPrefix(param, "@") {
				continue
			}
			pName, defVal, _ := strings.Cut(param, ":")
			v := strings.TrimSpace(defVal)
			if i < len(args) && args[i] != "" {
				v = args[i]
			}
			bound.vars[strings.TrimPrefix(pName, "@")] = v
		}
		if !pr.guardHolds(bound, def.guard) {
			continue
		}
		pr.printDecls(bound, def, parent)
		for _, child := range def.children {
			pr.printBlock(&block{
				selector: child.selector,
				guard:    child.guard,
				parent:   bound,
				decls:    child.decls,
				children: child.children,
				vars:     child.vars,
				mixins:   child.mixins,
			}, parent)
		}
	}
}

// splitArgs splits on commas and semicolons outside parentheses.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var (
		parts []string
		start int
		depth int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',', ';':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	return parts
}
