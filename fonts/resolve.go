package fonts

import (
	"regexp"
	"strings"
)

// fontVarPattern matches var(--font-*) references with an optional
// fallback stack.
var fontVarPattern = regexp.MustCompile(`var\(\s*(--font-[\w-]+)\s*(?:,\s*([^)]*))?\)`)

// ResolveFontVariables substitutes var(--font-*) references with matching
// values. Multi-word font names are quoted when unquoted, trailing
// fallback stacks are preserved, and unmatched references stay untouched.
func ResolveFontVariables(sheet string, values map[string]string) string {
	return fontVarPattern.ReplaceAllStringFunc(sheet, func(ref string) string {
		m := fontVarPattern.FindStringSubmatch(ref)
		name, fallback := m[1], strings.TrimSpace(m[2])

		v, ok := values[name]
		if !ok || v == "" {
			return ref
		}
		v = quoteFamily(v)
		if fallback != "" {
			return v + ", " + fallback
		}
		return v
	})
}

// quoteFamily quotes a multi-word family name unless already quoted.
func quoteFamily(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && (name[0] == '"' || name[0] == '\'') {
		return name
	}
	if strings.ContainsAny(name, " \t") && !strings.Contains(name, ",") {
		return `"` + name + `"`
	}
	return name
}
