// Package fonts extracts @font-face rules from compiled CSS, resolves
// font custom properties and orders injected output so fonts are declared
// before first use.
package fonts

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Face is a read-only extracted view of one @font-face rule. Family may
// be empty on malformed author input; such blocks are kept rather than
// dropped.
type Face struct {
	Family string
	Src    string
	Weight string
	Style  string
}

// Processor finds and reorders font assets in stylesheets.
type Processor struct {
	log *zap.Logger
}

// NewProcessor creates a font asset processor.
func NewProcessor(log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{log: log.Named("fonts")}
}

// ExtractFaces finds @font-face blocks in document order, reading
// font-family, concatenated multi-line src, font-weight and font-style.
// The input is never mutated.
func (p *Processor) ExtractFaces(sheet string) []Face {
	var faces []Face

	input := parse.NewInput(bytes.NewReader([]byte(sheet)))
	parser := css.NewParser(input, false)

	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				p.log.Debug("CSS parse stopped", zap.Error(err))
			}
			return faces

		case css.BeginAtRuleGrammar:
			if string(data) == "@font-face" {
				faces = append(faces, p.parseFace(parser))
			} else {
				p.skipAtRuleBlock(parser)
			}
		}
	}
}

// parseFace reads declarations until the end of one @font-face block.
func (p *Processor) parseFace(parser *css.Parser) Face {
	var face Face
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			if face.Family == "" {
				p.log.Debug("@font-face without font-family kept", zap.String("src", face.Src))
			}
			return face

		case css.DeclarationGrammar:
			name := string(data)
			values := parser.Values()
			if len(values) == 0 {
				continue
			}
			var parts []string
			for _, v := range values {
				if v.TokenType != css.WhitespaceToken {
					parts = append(parts, string(v.Data))
				}
			}
			val := strings.Join(parts, " ")

			switch name {
			case "font-family":
				face.Family = unquote(val)
			case "src":
				// multi-line src values concatenate in source order
				if face.Src != "" {
					face.Src += ", " + val
				} else {
					face.Src = val
				}
			case "font-weight":
				face.Weight = val
			case "font-style":
				face.Style = val
			}
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Processor) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// fontFacePattern matches whole @font-face blocks for removal. Font-face
// bodies cannot nest braces.
var fontFacePattern = regexp.MustCompile(`@font-face\s*\{[^}]*\}\s*`)

// Reorder moves every @font-face rule ahead of the remaining CSS,
// preserving their document order.
func (p *Processor) Reorder(sheet string) string {
	faces := p.ExtractFaces(sheet)
	if len(faces) == 0 {
		return sheet
	}
	rest := strings.TrimLeft(fontFacePattern.ReplaceAllString(sheet, ""), "\n")
	return Inject(faces, rest)
}

// Inject concatenates all @font-face rules ahead of mainCSS in input
// order, so fonts are declared before first use.
func Inject(faces []Face, mainCSS string) string {
	if len(faces) == 0 {
		return mainCSS
	}
	var b strings.Builder
	for _, f := range faces {
		writeFace(&b, f)
	}
	b.WriteString(mainCSS)
	return b.String()
}

// writeFace writes one @font-face block with properties in stable order.
func writeFace(b *strings.Builder, f Face) {
	b.WriteString("@font-face {\n")
	if f.Family != "" {
		fmt.Fprintf(b, "  font-family: %q;\n", f.Family)
	}
	if f.Src != "" {
		fmt.Fprintf(b, "  src: %s;\n", f.Src)
	}
	if f.Style != "" {
		fmt.Fprintf(b, "  font-style: %s;\n", f.Style)
	}
	if f.Weight != "" {
		fmt.Fprintf(b, "  font-weight: %s;\n", f.Weight)
	}
	b.WriteString("}\n")
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
