package preprocessor

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultCacheCapacity bounds each per-engine compiled-output cache when
// the caller does not configure one.
const DefaultCacheCapacity = 32

// Engine compiles Less/Stylus sources through registered backends. Each
// engine type gets its own bounded LRU cache keyed by exact source text,
// so cross-engine key collision is structurally impossible. The cache is
// the only state surviving across calls.
type Engine struct {
	log      *zap.Logger
	capacity int

	mu        sync.Mutex
	factories map[Type]Factory
	backends  map[Type]Backend
	caches    map[Type]*lru.Cache[string, Result]
}

// NewEngine creates an engine with the given cache capacity per backend.
// A non-positive capacity falls back to DefaultCacheCapacity.
func NewEngine(capacity int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Engine{
		log:       log.Named("preprocessor"),
		capacity:  capacity,
		factories: make(map[Type]Factory),
		backends:  make(map[Type]Backend),
		caches:    make(map[Type]*lru.Cache[string, Result]),
	}
}

// Register installs a backend factory for an engine type. The backend is
// constructed lazily on first compilation.
func (e *Engine) Register(typ Type, f Factory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[typ] = f
}

// Process compiles source with the backend for typ. None passes the
// source through untouched, bypassing the cache and producing no
// diagnostics. Failures are never returned as errors: they are normalized
// into Result.Errors and the unprocessed source is kept as CSS so callers
// can degrade gracefully. Compilation is deterministic, so failed results
// cache exactly like successful ones; only backend construction failures
// bypass the cache since the backend never ran.
func (e *Engine) Process(typ Type, source string) Result {
	if typ == None || typ == "" {
		return Result{CSS: source}
	}

	if cached, ok := e.cacheFor(typ).Get(source); ok {
		e.log.Debug("Cache hit", zap.String("engine", string(typ)), zap.Int("bytes", len(source)))
		return cached
	}

	backend, err := e.backendFor(typ)
	if err != nil {
		return Result{
			CSS:    source,
			Errors: []string{fmt.Sprintf("Failed to process with %s: %v", typ, err)},
		}
	}

	raw, err := backend.Compile(source)
	res := Result{CSS: raw.CSS}
	for _, w := range raw.Warnings {
		res.Warnings = append(res.Warnings, normalizeDiagnostic(typ, "warning", w))
	}
	for _, d := range raw.Errors {
		res.Errors = append(res.Errors, normalizeDiagnostic(typ, "failed", d))
	}
	if err != nil {
		res.Errors = append(res.Errors, normalizeError(typ, err))
	}

	if len(res.Errors) > 0 {
		// degraded: fall back to the unprocessed body
		res.CSS = source
		e.log.Debug("Compilation failed", zap.String("engine", string(typ)), zap.Strings("errors", res.Errors))
	} else {
		e.log.Debug("Compiled", zap.String("engine", string(typ)), zap.Int("in", len(source)), zap.Int("out", len(res.CSS)))
	}
	e.cacheFor(typ).Add(source, res)
	return res
}

// normalizeError renders a fatal backend error. Position information is
// carried when the error is a Diagnostic-bearing *CompileError.
func normalizeError(typ Type, err error) string {
	if ce, ok := err.(*CompileError); ok {
		return normalizeDiagnostic(typ, "failed", ce.Diagnostic)
	}
	return fmt.Sprintf("%s compilation failed: %v", engineTitle(typ), err)
}

// CompileError is a fatal backend error that carries source position.
type CompileError struct {
	Diagnostic
}

func (e *CompileError) Error() string {
	return e.Message
}

func (e *Engine) cacheFor(typ Type) *lru.Cache[string, Result] {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.caches[typ]
	if !ok {
		// lru.New only fails on non-positive size, which NewEngine excludes
		c, _ = lru.New[string, Result](e.capacity)
		e.caches[typ] = c
	}
	return c
}

func (e *Engine) backendFor(typ Type) (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.backends[typ]; ok {
		return b, nil
	}
	f, ok := e.factories[typ]
	if !ok {
		return nil, fmt.Errorf("no backend registered")
	}
	b, err := f()
	if err != nil {
		return nil, err
	}
	e.backends[typ] = b
	return b, nil
}
