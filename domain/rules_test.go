package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MixedKinds(t *testing.T) {
	rules, err := Parse(`domain("Example.COM"), url-prefix("https://github.com/settings"), regexp("https?://.*\\.wiki.*")`)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, KindDomain, rules[0].Kind)
	assert.Equal(t, "example.com", rules[0].Pattern, "domain patterns are normalized")
	assert.Equal(t, KindURLPrefix, rules[1].Kind)
	assert.Equal(t, "https://github.com/settings", rules[1].Pattern)
	assert.Equal(t, KindRegexp, rules[2].Kind)
	assert.True(t, rules[0].Include)
}

func TestParse_StripsAtMozDocumentPrefix(t *testing.T) {
	rules, err := Parse(`@-moz-document domain("example.com")`)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "example.com", rules[0].Pattern)
}

func TestParse_SingleQuotes(t *testing.T) {
	rules, err := Parse(`url('https://example.com/page')`)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, KindURL, rules[0].Kind)
}

func TestParse_SkipsUnknownKinds(t *testing.T) {
	rules, err := Parse(`domain("example.com"), media-document("video")`)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestParse_EmptyMeansMatchAll(t *testing.T) {
	rules, err := Parse("   ")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParse_NoValidRules(t *testing.T) {
	_, err := Parse(`bogus("x"), domain("")`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRules))
	assert.Equal(t, "No valid domain rules found", err.Error())
}

func TestSerialize_RoundTrip(t *testing.T) {
	text := `domain("example.com"), url-prefix("https://other.org/app"), regexp("https?://x")`
	rules, err := Parse(text)
	require.NoError(t, err)

	out := Serialize(rules)
	assert.Equal(t, text, out)

	again, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, rules, again)
}

func TestSerialize_URLPrefixSuppressesDomain(t *testing.T) {
	rules := []Rule{
		{Kind: KindURLPrefix, Pattern: "https://example.com/app", Include: true},
		{Kind: KindDomain, Pattern: "example.com", Include: true},
		{Kind: KindDomain, Pattern: "other.org", Include: true},
	}

	out := Serialize(rules)
	assert.NotContains(t, out, `domain("example.com")`)
	assert.Contains(t, out, `url-prefix("https://example.com/app")`)
	assert.Contains(t, out, `domain("other.org")`)
}

func TestSerialize_DropsExclusions(t *testing.T) {
	rules := []Rule{
		{Kind: KindDomain, Pattern: "example.com", Include: true},
		{Kind: KindDomain, Pattern: "blocked.example.com", Include: false},
	}

	out := Serialize(rules)
	assert.Equal(t, `domain("example.com")`, out)
}

func TestNormalizeHost(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"Example.COM", "example.com"},
		{"example.com:8080", "example.com"},
		{"example.com.", "example.com"},
		{"bücher.de", "xn--bcher-kva.de"},
		{"  WWW.Example.ORG  ", "www.example.org"},
	} {
		assert.Equal(t, tc.want, NormalizeHost(tc.in), "input %q", tc.in)
	}
}

func TestValidateStrict(t *testing.T) {
	err := ValidateStrict([]Rule{
		{Kind: KindDomain, Pattern: "example.com", Include: true},
		{Kind: "bogus", Pattern: "x"},
		{Kind: KindURL, Pattern: ""},
		{Kind: KindRegexp, Pattern: "("},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "rule 1")
	assert.Contains(t, msg, `fails constraint "oneof"`)
	assert.Contains(t, msg, "rule 2")
	assert.Contains(t, msg, `fails constraint "required"`)
	assert.Contains(t, msg, "rule 3")
	assert.True(t, strings.Contains(msg, "regular expression"))
}

func TestValidateStrict_Valid(t *testing.T) {
	assert.NoError(t, ValidateStrict([]Rule{
		{Kind: KindRegexp, Pattern: `https?://.*\.example\.com/.*`, Include: true},
	}))
}
