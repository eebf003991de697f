// Package style turns raw UserCSS source into a structured style
// description and a resolved, injectable stylesheet.
package style

import (
	"ucss/domain"
	"ucss/vars"
)

// Asset is an external resource referenced by the compiled style.
type Asset struct {
	Kind string // currently "font"
	URL  string
}

// Meta is the structured description of one style.
type Meta struct {
	ID          string
	Name        string
	Namespace   string
	Version     string
	Description string
	Author      string
	License     string

	SourceURL   string
	HomepageURL string
	SupportURL  string
	UpdateURL   string

	// Preprocessor is the explicit @preprocessor directive value, empty
	// when the header does not declare one.
	Preprocessor string

	// RawDomains keeps the @-moz-document rule-list text verbatim for
	// round-trip editing.
	RawDomains string
	Domains    []domain.Rule

	Variables map[string]vars.Descriptor
	VarOrder  []string // insertion order of Variables

	CompiledCSS string
	Assets      []Asset
}

// OrderedVariables returns the descriptors in declaration order.
func (m *Meta) OrderedVariables() []vars.Descriptor {
	out := make([]vars.Descriptor, 0, len(m.VarOrder))
	for _, name := range m.VarOrder {
		out = append(out, m.Variables[name])
	}
	return out
}

// ParseResult is the externally visible parse artifact, freshly
// constructed per call. A non-empty Errors slice means degraded but
// usable, never total failure.
type ParseResult struct {
	Meta     Meta
	CSS      string
	Warnings []string
	Errors   []string
}
