package style

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"ucss/domain"
	"ucss/fonts"
	"ucss/preprocessor"
	"ucss/preprocessor/less"
	"ucss/preprocessor/stylus"
	"ucss/vars"
)

const (
	headerOpen  = "==UserStyle=="
	headerClose = "==/UserStyle=="
)

// Parser is the metadata block parser: it splits header from body,
// extracts fields and variables from both dialects, normalizes domains
// and forwards the body to the preprocessor engine. Parse never fails;
// every anomaly is collected into the result.
type Parser struct {
	log    *zap.Logger
	engine *preprocessor.Engine
	fonts  *fonts.Processor
}

// NewEngine builds a preprocessor engine with the reference Less and
// Stylus backends registered.
func NewEngine(capacity int, log *zap.Logger) *preprocessor.Engine {
	e := preprocessor.NewEngine(capacity, log)
	e.Register(preprocessor.Less, less.New)
	e.Register(preprocessor.Stylus, stylus.New)
	return e
}

// NewParser creates a parser. A nil engine gets a default one with the
// reference backends and default cache capacity.
func NewParser(log *zap.Logger, engine *preprocessor.Engine) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	if engine == nil {
		engine = NewEngine(preprocessor.DefaultCacheCapacity, log)
	}
	return &Parser{
		log:    log.Named("usercss"),
		engine: engine,
		fonts:  fonts.NewProcessor(log),
	}
}

// bodyDomainPattern locates an @-moz-document prelude in the body.
var bodyDomainPattern = regexp.MustCompile(`@-moz-document\s+([^{]+)\{`)

// Parse processes one UserCSS document. It always returns a best-effort
// ParseResult and never panics or throws; the only true failure mode is
// feeding it something other than a string, which Go's type system
// already excludes.
func (p *Parser) Parse(source string) ParseResult {
	return p.ParseWithValues(source, nil)
}

// ParseWithValues parses and resolves variables against user-supplied
// values, as the settings surface of a host would after edits. Values for
// undeclared names are ignored.
func (p *Parser) ParseWithValues(source string, values map[string]string) ParseResult {
	res := ParseResult{}
	res.Meta.Variables = map[string]vars.Descriptor{}

	header, body, ok := splitHeader(source)
	switch {
	case !ok && header == "":
		res.Warnings = append(res.Warnings, "no ==UserStyle== header found, treating whole input as body")
	case !ok:
		res.Errors = append(res.Errors, "unterminated ==UserStyle== header")
	}

	p.parseDirectives(header, &res)

	directiveVars, verrs := vars.ExtractDirectives(header)
	res.Errors = append(res.Errors, verrs...)
	placeholderVars := vars.ExtractPlaceholders(body)
	merged := vars.Merge(directiveVars, placeholderVars)
	for _, d := range merged {
		if err := d.Check(); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		if v, ok := values[d.Name]; ok {
			d.Value = v
		}
		res.Meta.Variables[d.Name] = d
		res.Meta.VarOrder = append(res.Meta.VarOrder, d.Name)
	}

	// domains: header directive wins, body prelude is the fallback
	if res.Meta.RawDomains == "" {
		if m := bodyDomainPattern.FindStringSubmatch(body); m != nil {
			res.Meta.RawDomains = strings.TrimSpace(m[1])
		}
	}
	if res.Meta.RawDomains != "" {
		rules, err := domain.Parse(res.Meta.RawDomains)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
		res.Meta.Domains = rules
	}

	if res.Meta.Name == "" {
		res.Meta.Name = "Unnamed Style"
		res.Warnings = append(res.Warnings, "style has no @name, using placeholder")
	}
	if res.Meta.ID == "" {
		res.Meta.ID = newStyleID(res.Meta.Name)
	}

	css := p.compile(body, &res)
	css = p.resolveVariables(css, &res)
	css = fonts.ResolveFontVariables(css, p.fontValues(&res))

	faces := p.fonts.ExtractFaces(css)
	for _, f := range faces {
		for _, u := range srcURLs(f.Src) {
			res.Meta.Assets = append(res.Meta.Assets, Asset{Kind: "font", URL: u})
		}
	}
	css = p.fonts.Reorder(css)

	res.CSS = css
	res.Meta.CompiledCSS = css
	p.log.Debug("Parsed style",
		zap.String("name", res.Meta.Name),
		zap.Int("variables", len(res.Meta.Variables)),
		zap.Int("domains", len(res.Meta.Domains)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("errors", len(res.Errors)))
	return res
}

// compile detects the body's preprocessor and runs it through the engine,
// falling back to the unprocessed body on failure.
func (p *Parser) compile(body string, res *ParseResult) string {
	typ := preprocessor.None
	switch res.Meta.Preprocessor {
	case "":
		typ = preprocessor.Detect(body).Type
	case string(preprocessor.Less):
		typ = preprocessor.Less
	case string(preprocessor.Stylus):
		typ = preprocessor.Stylus
	case "default", "uso", "none":
		// plain CSS dialects of the wider ecosystem
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown @preprocessor %q, treating body as plain CSS", res.Meta.Preprocessor))
	}

	out := p.engine.Process(typ, body)
	res.Warnings = append(res.Warnings, out.Warnings...)
	res.Errors = append(res.Errors, out.Errors...)
	return out.CSS
}

// resolveVariables substitutes inline placeholders with effective values.
func (p *Parser) resolveVariables(css string, res *ParseResult) string {
	if len(res.Meta.Variables) == 0 {
		return css
	}
	values := make(map[string]string, len(res.Meta.Variables))
	for name, d := range res.Meta.Variables {
		values[name] = d.EffectiveValue()
	}
	return vars.ResolveVariables(css, values)
}

// fontValues collects effective values of --font-* variables.
func (p *Parser) fontValues(res *ParseResult) map[string]string {
	values := map[string]string{}
	for name, d := range res.Meta.Variables {
		if strings.HasPrefix(name, "--font-") {
			values[name] = d.EffectiveValue()
		}
	}
	return values
}

// parseDirectives fills Meta fields from @directive lines inside the
// header. Unrecognized directives are ignored for forward compatibility.
func (p *Parser) parseDirectives(header string, res *ParseResult) {
	for _, line := range strings.Split(header, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if !strings.HasPrefix(line, "@") {
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		value = norm.NFC.String(strings.TrimSpace(value))

		switch name {
		case "@name":
			res.Meta.Name = value
		case "@namespace":
			res.Meta.Namespace = value
		case "@version":
			res.Meta.Version = value
		case "@description":
			res.Meta.Description = value
		case "@author":
			res.Meta.Author = value
		case "@license":
			res.Meta.License = value
		case "@source", "@sourceURL":
			res.Meta.SourceURL = value
		case "@homepageURL":
			res.Meta.HomepageURL = value
		case "@supportURL":
			res.Meta.SupportURL = value
		case "@updateURL":
			res.Meta.UpdateURL = value
		case "@preprocessor":
			res.Meta.Preprocessor = strings.ToLower(value)
		case "@-moz-document":
			res.Meta.RawDomains = value
		}
	}
}

// splitHeader locates the metadata block. Returns ok=false with empty
// header when the opening marker is missing (whole input is body) and
// ok=false with the remainder as header when the closing marker is
// missing.
func splitHeader(source string) (header, body string, ok bool) {
	lines := strings.Split(source, "\n")
	open := -1
	for i, l := range lines {
		if strings.Contains(l, headerOpen) && !strings.Contains(l, headerClose) {
			open = i
			break
		}
	}
	if open < 0 {
		return "", source, false
	}
	for i := open + 1; i < len(lines); i++ {
		if strings.Contains(lines[i], headerClose) {
			return strings.Join(lines[open+1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return strings.Join(lines[open+1:], "\n"), "", false
}

// newStyleID derives a stable-looking identifier from the style name.
func newStyleID(name string) string {
	return slug.Make(name) + "-" + uuid.NewString()[:8]
}

// srcURLs pulls url(...) references out of a font-face src value.
var srcURLPattern = regexp.MustCompile(`url\s*\(\s*(?:["']([^"']*)["']|([^)"']*))\s*\)`)

func srcURLs(src string) []string {
	var urls []string
	for _, m := range srcURLPattern.FindAllStringSubmatch(src, -1) {
		u := m[1]
		if u == "" {
			u = strings.TrimSpace(m[2])
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
