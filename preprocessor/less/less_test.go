package less

import (
	"errors"
	"strings"
	"testing"

	"ucss/preprocessor"
)

func compileOK(t *testing.T, source string) preprocessor.BackendResult {
	t.Helper()
	b := &Backend{}
	res, err := b.Compile(source)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	return res
}

func TestCompile_Variables(t *testing.T) {
	res := compileOK(t, "@color: #ff0000;\nbody {\n  background: @color;\n}")
	want := "body {\nbackground: #ff0000;\n}\n"
	if res.CSS != want {
		t.Errorf("got %q, want %q", res.CSS, want)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestCompile_VariableChain(t *testing.T) {
	res := compileOK(t, "@a: @b;\n@b: 10px;\np { margin: @a; }")
	if !strings.Contains(res.CSS, "margin: 10px;") {
		t.Errorf("chained variable not resolved: %q", res.CSS)
	}
}

func TestCompile_NestingWithParentReference(t *testing.T) {
	res := compileOK(t, ".btn {\n  color: red;\n  &:hover {\n    color: blue;\n  }\n}")
	if !strings.Contains(res.CSS, ".btn {\ncolor: red;\n}\n") {
		t.Errorf("outer rule missing: %q", res.CSS)
	}
	if !strings.Contains(res.CSS, ".btn:hover {\ncolor: blue;\n}\n") {
		t.Errorf("parent reference not joined: %q", res.CSS)
	}
}

func TestCompile_NestedSelectorJoin(t *testing.T) {
	res := compileOK(t, "nav {\n  ul {\n    margin: 0;\n  }\n}")
	if !strings.Contains(res.CSS, "nav ul {\nmargin: 0;\n}\n") {
		t.Errorf("descendant join missing: %q", res.CSS)
	}
	if strings.Contains(res.CSS, "nav {\n}") {
		t.Errorf("empty parent rule should not be emitted: %q", res.CSS)
	}
}

func TestCompile_SelectorInterpolation(t *testing.T) {
	res := compileOK(t, "@name: main;\n.@{name} { width: 100%; }")
	if !strings.Contains(res.CSS, ".main {\nwidth: 100%;\n}\n") {
		t.Errorf("selector interpolation failed: %q", res.CSS)
	}
}

func TestCompile_MixinWithArguments(t *testing.T) {
	res := compileOK(t, ".rounded(@r: 4px) {\n  border-radius: @r;\n}\n.box {\n  .rounded(8px);\n}")
	if !strings.Contains(res.CSS, ".box {\nborder-radius: 8px;\n}\n") {
		t.Errorf("mixin argument not bound: %q", res.CSS)
	}
	if strings.Contains(res.CSS, ".rounded") {
		t.Errorf("mixin definition must not be emitted: %q", res.CSS)
	}
}

func TestCompile_MixinDefaultParameter(t *testing.T) {
	res := compileOK(t, ".pad(@p: 1em) { padding: @p; }\n.card { .pad(); }")
	if !strings.Contains(res.CSS, "padding: 1em;") {
		t.Errorf("default parameter not applied: %q", res.CSS)
	}
}

func TestCompile_UndefinedMixinWarns(t *testing.T) {
	res := compileOK(t, ".box { .nothere(); color: red; }")
	if !strings.Contains(res.CSS, "color: red;") {
		t.Errorf("remaining declarations must survive: %q", res.CSS)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "undefined mixin .nothere") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected undefined mixin warning, got %v", res.Warnings)
	}
}

func TestCompile_GuardEvaluation(t *testing.T) {
	res := compileOK(t, "@w: 800;\n.wide when (@w > 600) { width: 100%; }\n.narrow when (@w < 600) { width: 50%; }")
	if !strings.Contains(res.CSS, "width: 100%;") {
		t.Errorf("passing guard should emit: %q", res.CSS)
	}
	if strings.Contains(res.CSS, "width: 50%;") {
		t.Errorf("failing guard should drop block: %q", res.CSS)
	}
}

func TestCompile_MathFolding(t *testing.T) {
	res := compileOK(t, "@base: 4px;\n.p { margin: @base * 2; }")
	if !strings.Contains(res.CSS, "margin: 8px;") {
		t.Errorf("arithmetic not folded: %q", res.CSS)
	}
}

func TestCompile_MediaBlock(t *testing.T) {
	res := compileOK(t, "@media screen {\n  .a { color: red; }\n}")
	if !strings.Contains(res.CSS, "@media screen {\n") {
		t.Errorf("at-rule prelude lost: %q", res.CSS)
	}
	if !strings.Contains(res.CSS, ".a {\ncolor: red;\n}\n") {
		t.Errorf("rule inside at-rule lost: %q", res.CSS)
	}
}

func TestCompile_ImportDroppedWithWarning(t *testing.T) {
	res := compileOK(t, "@import \"base.less\";\na { b: c; }")
	if strings.Contains(res.CSS, "@import") {
		t.Errorf("@import must be dropped: %q", res.CSS)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "@import") {
		t.Fatalf("expected one @import warning, got %v", res.Warnings)
	}
	if res.Warnings[0].Line != 1 {
		t.Errorf("warning should carry line 1, got %d", res.Warnings[0].Line)
	}
}

func TestCompile_UndefinedVariableWarnsOnce(t *testing.T) {
	res := compileOK(t, "a { color: @missing; border-color: @missing; }")
	if !strings.Contains(res.CSS, "color: @missing;") {
		t.Errorf("unresolved reference should stay verbatim: %q", res.CSS)
	}
	count := 0
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "undefined variable @missing") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one warning, got %v", res.Warnings)
	}
}

func TestCompile_CommentsPreserved(t *testing.T) {
	res := compileOK(t, "a {\n  /*[[--accent|color|#f00]]*/\n  color: red;\n}")
	if !strings.Contains(res.CSS, "/*[[--accent|color|#f00]]*/") {
		t.Errorf("block comments must survive verbatim: %q", res.CSS)
	}
}

func TestCompile_UnclosedBlock(t *testing.T) {
	b := &Backend{}
	_, err := b.Compile("a {\n  color: red;\n")
	if err == nil {
		t.Fatal("expected an error for unclosed block")
	}
	var ce *preprocessor.CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *preprocessor.CompileError, got %T", err)
	}
	if ce.Line == 0 {
		t.Errorf("error should carry a line number: %+v", ce.Diagnostic)
	}
}

func TestCompile_LastDeclarationWithoutSemicolon(t *testing.T) {
	res := compileOK(t, "a { color: red }")
	if !strings.Contains(res.CSS, "color: red;") {
		t.Errorf("trailing declaration lost: %q", res.CSS)
	}
}
