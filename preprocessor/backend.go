package preprocessor

import "fmt"

// Diagnostic is one backend message with optional position information.
// Line and Column are 1-based; zero means the backend did not supply them.
type Diagnostic struct {
	Message string
	Line    int
	Column  int
	File    string
}

// BackendResult is the raw outcome of one backend compilation.
type BackendResult struct {
	CSS      string
	Warnings []Diagnostic
	Errors   []Diagnostic
}

// Backend is the capability interface a concrete compiler implements. The
// engine depends only on this, decoupling detection, caching and error
// normalization from any particular compiler.
type Backend interface {
	Name() string
	Compile(source string) (BackendResult, error)
}

// Factory constructs a backend on first use. A construction failure is
// caught by the engine and reported, never thrown.
type Factory func() (Backend, error)

// Result is the externally visible compilation outcome. Diagnostics are
// already normalized to strings.
type Result struct {
	CSS      string
	Warnings []string
	Errors   []string
}

// engineTitle maps an engine type to its display name in diagnostics.
func engineTitle(typ Type) string {
	switch typ {
	case Less:
		return "Less"
	case Stylus:
		return "Stylus"
	default:
		return string(typ)
	}
}

// normalizeDiagnostic renders one backend diagnostic into the canonical
// "<Engine> compilation <kind>: <message>" form, appending position and
// file when the backend supplied them.
func normalizeDiagnostic(typ Type, kind string, d Diagnostic) string {
	s := fmt.Sprintf("%s compilation %s: %s", engineTitle(typ), kind, d.Message)
	if d.Line > 0 {
		if d.Column > 0 {
			s += fmt.Sprintf(" (Line %d, Column %d)", d.Line, d.Column)
		} else {
			s += fmt.Sprintf(" (Line %d)", d.Line)
		}
	}
	if d.File != "" {
		s += fmt.Sprintf(" in %s", d.File)
	}
	return s
}
