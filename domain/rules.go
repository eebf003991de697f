// Package domain implements the @-moz-document site-targeting rule model:
// parsing, serialization with redundancy elimination, hostname
// normalization and a strict validation layer for trust boundaries.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// Kind enumerates the @-moz-document matcher functions.
type Kind string

const (
	KindDomain    Kind = "domain"
	KindURL       Kind = "url"
	KindURLPrefix Kind = "url-prefix"
	KindRegexp    Kind = "regexp"
)

// Rule is a single site-matching condition. Include=false marks an
// exclusion maintained by the host; the @-moz-document grammar itself has
// no exclusion syntax.
type Rule struct {
	Kind    Kind   `validate:"required,oneof=domain url url-prefix regexp"`
	Pattern string `validate:"required"`
	Include bool
}

// ErrNoRules is reported when a non-empty rule list text yields no valid
// rules. An empty input is valid and means "match all sites".
var ErrNoRules = errors.New("No valid domain rules found")

// rulePattern matches one `kind("pattern")` call. Single or double quotes.
var rulePattern = regexp.MustCompile(`([\w-]+)\s*\(\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*\)`)

// Parse reads a comma-separated list of kind("pattern") calls, optionally
// prefixed by @-moz-document. Unknown kinds are skipped. A non-empty input
// yielding zero rules is an error; empty input yields an empty, valid rule
// list meaning "match all sites".
func Parse(text string) ([]Rule, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "@-moz-document"))
	if trimmed == "" {
		return nil, nil
	}

	var rules []Rule
	for _, m := range rulePattern.FindAllStringSubmatch(trimmed, -1) {
		kind := Kind(strings.ToLower(m[1]))
		switch kind {
		case KindDomain, KindURL, KindURLPrefix, KindRegexp:
		default:
			continue // unknown kind, skip for forward compatibility
		}
		pattern := m[2]
		if pattern == "" {
			pattern = m[3]
		}
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if kind == KindDomain {
			pattern = NormalizeHost(pattern)
		}
		rules = append(rules, Rule{Kind: kind, Pattern: pattern, Include: true})
	}
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	return rules, nil
}

// Serialize renders rules back to @-moz-document rule-list text. A
// url-prefix rule for hostname H suppresses any domain rule for H since
// the prefix already implies it, keeping round-tripped text
// non-contradictory. Exclusion rules are host state and are not emitted.
func Serialize(rules []Rule) string {
	prefixHosts := make(map[string]bool)
	for _, r := range rules {
		if r.Include && r.Kind == KindURLPrefix {
			if h := hostOf(r.Pattern); h != "" {
				prefixHosts[h] = true
			}
		}
	}

	var parts []string
	for _, r := range rules {
		if !r.Include || r.Pattern == "" {
			continue
		}
		if r.Kind == KindDomain && prefixHosts[NormalizeHost(r.Pattern)] {
			continue
		}
		parts = append(parts, fmt.Sprintf(`%s(%q)`, r.Kind, r.Pattern))
	}
	return strings.Join(parts, ", ")
}

// NormalizeHost lowercases a hostname, strips any port and converts
// internationalized names to their punycode form. Input that does not
// survive IDNA mapping is returned lowercased as-is.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host, "]") {
		if _, rest := host[:i], host[i+1:]; isDigits(rest) {
			host = host[:i]
		}
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// hostOf extracts the normalized hostname from a URL or URL prefix.
func hostOf(pattern string) string {
	u, err := url.Parse(pattern)
	if err != nil || u.Host == "" {
		return ""
	}
	return NormalizeHost(u.Hostname())
}
