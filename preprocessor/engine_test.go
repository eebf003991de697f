package preprocessor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records how often Compile is called and answers from a
// canned function.
type countingBackend struct {
	calls   int
	compile func(source string) (BackendResult, error)
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Compile(source string) (BackendResult, error) {
	b.calls++
	return b.compile(source)
}

func upperBackend() *countingBackend {
	return &countingBackend{compile: func(source string) (BackendResult, error) {
		return BackendResult{CSS: strings.ToUpper(source)}, nil
	}}
}

func registerBackend(e *Engine, typ Type, b Backend) {
	e.Register(typ, func() (Backend, error) { return b, nil })
}

func TestProcess_NonePassthrough(t *testing.T) {
	e := NewEngine(4, nil)
	res := e.Process(None, "body { color: red; }")
	assert.Equal(t, "body { color: red; }", res.CSS)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Errors)
}

func TestProcess_CacheIdempotence(t *testing.T) {
	e := NewEngine(4, nil)
	b := upperBackend()
	registerBackend(e, Less, b)

	first := e.Process(Less, "a { b: c; }")
	second := e.Process(Less, "a { b: c; }")

	assert.Equal(t, first, second)
	assert.Equal(t, "A { B: C; }", second.CSS)
	assert.Equal(t, 1, b.calls, "identical source must compile once")
}

func TestProcess_CacheKeyedByExactSource(t *testing.T) {
	e := NewEngine(4, nil)
	b := upperBackend()
	registerBackend(e, Less, b)

	e.Process(Less, "a{b:c}")
	e.Process(Less, "a{b:c} ")
	assert.Equal(t, 2, b.calls, "whitespace difference is a different key")
}

func TestProcess_CachesAreSeparatePerEngine(t *testing.T) {
	e := NewEngine(4, nil)
	lb, sb := upperBackend(), upperBackend()
	registerBackend(e, Less, lb)
	registerBackend(e, Stylus, sb)

	e.Process(Less, "x{y:z}")
	e.Process(Stylus, "x{y:z}")
	assert.Equal(t, 1, lb.calls)
	assert.Equal(t, 1, sb.calls, "same source under another engine must not hit the other cache")
}

func TestProcess_LRUEviction(t *testing.T) {
	e := NewEngine(2, nil)
	b := upperBackend()
	registerBackend(e, Less, b)

	e.Process(Less, "one")
	e.Process(Less, "two")
	e.Process(Less, "one")   // refresh "one"
	e.Process(Less, "three") // evicts "two"
	e.Process(Less, "one")   // still cached
	e.Process(Less, "two")   // recompiled

	assert.Equal(t, 4, b.calls)
}

func TestProcess_CompileErrorNormalized(t *testing.T) {
	e := NewEngine(4, nil)
	registerBackend(e, Less, &countingBackend{compile: func(string) (BackendResult, error) {
		return BackendResult{Errors: []Diagnostic{{
			Message: "Unrecognised input",
			Line:    3,
			Column:  7,
			File:    "style.less",
		}}}, nil
	}})

	res := e.Process(Less, "broken")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Less compilation failed: Unrecognised input (Line 3, Column 7) in style.less", res.Errors[0])
	assert.Equal(t, "broken", res.CSS, "failed compilation falls back to unprocessed source")
}

func TestProcess_ErrorWithoutPosition(t *testing.T) {
	e := NewEngine(4, nil)
	registerBackend(e, Stylus, &countingBackend{compile: func(string) (BackendResult, error) {
		return BackendResult{}, errors.New("expected indent")
	}})

	res := e.Process(Stylus, "broken")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Stylus compilation failed: expected indent", res.Errors[0])
}

func TestProcess_CompileErrorCarriesPosition(t *testing.T) {
	e := NewEngine(4, nil)
	registerBackend(e, Stylus, &countingBackend{compile: func(string) (BackendResult, error) {
		return BackendResult{}, &CompileError{Diagnostic{Message: "unexpected token", Line: 2, Column: 1}}
	}})

	res := e.Process(Stylus, "broken")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Stylus compilation failed: unexpected token (Line 2, Column 1)", res.Errors[0])
}

func TestProcess_FailedResultCached(t *testing.T) {
	e := NewEngine(4, nil)
	b := &countingBackend{compile: func(string) (BackendResult, error) {
		return BackendResult{}, errors.New("boom")
	}}
	registerBackend(e, Less, b)

	first := e.Process(Less, "x")
	second := e.Process(Less, "x")
	require.Len(t, first.Errors, 1)
	assert.Equal(t, "x", first.CSS, "failed compilation falls back to unprocessed source")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.calls, "deterministic failures are served from cache like successes")
}

func TestProcess_ConstructionFailureNotCached(t *testing.T) {
	e := NewEngine(4, nil)
	attempts := 0
	e.Register(Less, func() (Backend, error) {
		attempts++
		return nil, fmt.Errorf("engine unavailable")
	})

	e.Process(Less, "a{b:c}")
	e.Process(Less, "a{b:c}")
	assert.Equal(t, 2, attempts, "construction is retried, its failures never enter the cache")
}

func TestProcess_WarningsDoNotPreventCaching(t *testing.T) {
	e := NewEngine(4, nil)
	b := &countingBackend{compile: func(source string) (BackendResult, error) {
		return BackendResult{
			CSS:      source,
			Warnings: []Diagnostic{{Message: "deprecated syntax", Line: 1}},
		}, nil
	}}
	registerBackend(e, Less, b)

	first := e.Process(Less, "ok")
	second := e.Process(Less, "ok")
	require.Len(t, first.Warnings, 1)
	assert.Equal(t, "Less compilation warning: deprecated syntax (Line 1)", first.Warnings[0])
	assert.Empty(t, first.Errors)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.calls)
}

func TestProcess_FactoryFailure(t *testing.T) {
	e := NewEngine(4, nil)
	e.Register(Less, func() (Backend, error) { return nil, fmt.Errorf("engine unavailable") })

	res := e.Process(Less, "a{b:c}")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Failed to process with less: engine unavailable", res.Errors[0])
	assert.Equal(t, "a{b:c}", res.CSS)
}

func TestProcess_UnregisteredBackend(t *testing.T) {
	e := NewEngine(4, nil)
	res := e.Process(Stylus, "a{b:c}")
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Failed to process with stylus")
	assert.Equal(t, "a{b:c}", res.CSS)
}
