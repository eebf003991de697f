// Package vars implements the customization-variable model shared by the
// UserStyle header dialect and the inline placeholder dialect.
package vars

import (
	"fmt"
	"strconv"
	"strings"
)

// Type enumerates supported variable control types.
type Type string

const (
	TypeText     Type = "text"
	TypeColor    Type = "color"
	TypeNumber   Type = "number"
	TypeRange    Type = "range"
	TypeSelect   Type = "select"
	TypeCheckbox Type = "checkbox"
)

// IsKnown returns true for one of the six supported control types.
// Unknown type strings are passed through unchanged by the extractors,
// favoring forward compatibility over strictness.
func (t Type) IsKnown() bool {
	switch t {
	case TypeText, TypeColor, TypeNumber, TypeRange, TypeSelect, TypeCheckbox:
		return true
	}
	return false
}

// Option is a single selectable value of a select variable.
// Options keep their authored order.
type Option struct {
	Value string
	Label string
}

// Descriptor describes one customization variable.
type Descriptor struct {
	Name    string // always "--" prefixed
	Type    Type
	Label   string
	Default string
	Value   string // user-supplied override, empty until set

	// number/range only
	Min  *float64
	Max  *float64
	Step *float64
	Unit string

	// select only
	Options []Option
}

// EffectiveValue returns the user value when set, the default otherwise.
func (d Descriptor) EffectiveValue() string {
	if d.Value != "" {
		return d.Value
	}
	return d.Default
}

// Check verifies descriptor invariants: non-empty "--" prefixed name,
// non-empty default, and for select/range a default that resolves to a
// declared option or the numeric range.
func (d Descriptor) Check() error {
	if !strings.HasPrefix(d.Name, "--") {
		return fmt.Errorf("variable name %q must start with --", d.Name)
	}
	if d.Default == "" {
		return fmt.Errorf("variable %s has no default", d.Name)
	}
	switch d.Type {
	case TypeSelect:
		for _, o := range d.Options {
			if o.Value == d.Default {
				return nil
			}
		}
		return fmt.Errorf("variable %s default %q is not a declared option", d.Name, d.Default)
	case TypeRange, TypeNumber:
		v, err := strconv.ParseFloat(strings.TrimSuffix(d.Default, d.Unit), 64)
		if err != nil {
			return fmt.Errorf("variable %s default %q is not numeric", d.Name, d.Default)
		}
		if d.Min != nil && v < *d.Min {
			return fmt.Errorf("variable %s default %v is below minimum %v", d.Name, v, *d.Min)
		}
		if d.Max != nil && v > *d.Max {
			return fmt.Errorf("variable %s default %v is above maximum %v", d.Name, v, *d.Max)
		}
	}
	return nil
}

// ensureNamePrefix makes a raw dialect name canonical. Both header
// dialects historically allow bare names; the model requires the custom
// property form.
func ensureNamePrefix(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	return "--" + name
}

func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Merge combines placeholder-extracted descriptors with directive-declared
// ones. Directive entries win on name conflict since explicit metadata
// outranks inferred placeholders. Order: directive entries first in their
// authored order, then placeholder-only entries in scan order.
func Merge(directives, placeholders []Descriptor) []Descriptor {
	seen := make(map[string]bool, len(directives))
	out := make([]Descriptor, 0, len(directives)+len(placeholders))
	for _, d := range directives {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	for _, p := range placeholders {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
