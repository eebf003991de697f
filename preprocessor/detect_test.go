package preprocessor

import "testing"

func TestDetect_MetadataComment(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		want Detection
	}{
		{"less", "/* @preprocessor less */\nbody { color: red; }", Detection{Less, SourceMetadata, 1.0}},
		{"stylus", "/* @preprocessor stylus */\nbody\n  color red", Detection{Stylus, SourceMetadata, 1.0}},
		{"none", "/* @preprocessor none */\nbody { color: red; }", Detection{None, SourceMetadata, 1.0}},
		{"unknown name", "/* @preprocessor sass */\nbody { color: red; }", Detection{None, SourceMetadata, 0.5}},
		{"leading whitespace", "  \n\t/* @preprocessor less */\na{b:c}", Detection{Less, SourceMetadata, 1.0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.text)
			if got != tc.want {
				t.Errorf("Detect() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDetect_MetadataWinsOverHeuristics(t *testing.T) {
	// body full of Stylus markers, but metadata says less
	text := "/* @preprocessor less */\n// comment\nbody\n  color red\n  &:hover\n    color blue"
	got := Detect(text)
	if got.Type != Less || got.Source != SourceMetadata || got.Confidence != 1.0 {
		t.Errorf("metadata must override heuristics, got %+v", got)
	}
}

func TestDetect_HeuristicLess(t *testing.T) {
	text := "@import \"base\";\n.rounded() {\n  border-radius: 4px;\n}\n.box when (@wide) { width: 100%; }"
	got := Detect(text)
	if got.Type != Less || got.Source != SourceHeuristic {
		t.Fatalf("expected heuristic less, got %+v", got)
	}
	if got.Confidence <= 0 || got.Confidence > 0.8 {
		t.Errorf("heuristic confidence out of range: %v", got.Confidence)
	}
}

func TestDetect_HeuristicStylus(t *testing.T) {
	text := "// stylus style\nbody\n  if dark\n    color white\n  unless compact\n    padding 2em"
	got := Detect(text)
	if got.Type != Stylus || got.Source != SourceHeuristic {
		t.Fatalf("expected heuristic stylus, got %+v", got)
	}
}

func TestDetect_TieBreakFavorsLess(t *testing.T) {
	// one marker each: & for stylus, mixin guard for less
	text := ".box when (@a) { x: y; }\n.box & { z: w; }"
	got := Detect(text)
	if got.Type != Less {
		t.Errorf("near-equal scores should favor less, got %+v", got)
	}
}

func TestDetect_StylusWinsWithClearLead(t *testing.T) {
	text := "// c\nbody\n  &:hover\n    f -> g\n  if x\n    a b\n  unless y\n    c d"
	got := Detect(text)
	if got.Type != Stylus {
		t.Errorf("stylus with a clear lead should win, got %+v", got)
	}
}

func TestDetect_PlainCSS(t *testing.T) {
	got := Detect("body { color: red; margin: 0; }")
	if got.Type != None || got.Source != "" || got.Confidence != 0 {
		t.Errorf("plain css should detect as none, got %+v", got)
	}
}

func TestDetect_EmptyInput(t *testing.T) {
	got := Detect("   \n\t ")
	if (got != Detection{Type: None}) {
		t.Errorf("empty input should be none/undetermined, got %+v", got)
	}
}

func TestHeuristicConfidenceCap(t *testing.T) {
	if c := heuristicConfidence(2); c != 0.5 {
		t.Errorf("score 2 should map to 0.5, got %v", c)
	}
	if c := heuristicConfidence(6); c != 0.8 {
		t.Errorf("confidence must cap at 0.8, got %v", c)
	}
}
