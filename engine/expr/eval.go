package expr

import (
	"errors"
	"strings"
	"sync"

	"github.com/aiqhub/aiq/engine/core"
)

// SyntaxError marks a condition the grammar rejects. These are authoring
// faults and surface as 500s, unlike runtime mismatches which evaluate to
// false.
type SyntaxError struct {
	Source string
	Err    error
}

func (e *SyntaxError) Error() string {
	return "invalid condition " + e.Source + ": " + e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// NormalizeName maps a source identifier to its environment binding: every
// character outside [0-9A-Za-z_] becomes '_' and a leading digit gains a
// '_' prefix. q3.1-a and q3_1_a resolve to the same binding.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 1)
	for i, r := range name {
		isWord := r == '_' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')
		if i == 0 && r >= '0' && r <= '9' {
			b.WriteByte('_')
		}
		if isWord {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// BuildEnv merges parameters and answers into a flat evaluation
// environment with normalised keys, answers shadowing parameters.
func BuildEnv(answers, params map[string]any) map[string]any {
	env := make(map[string]any, len(answers)+len(params))
	for key, value := range params {
		env[NormalizeName(key)] = value
	}
	for key, value := range answers {
		env[NormalizeName(key)] = value
	}
	return env
}

// astCache memoises compiled conditions by source text. Conditions are
// authored data with low cardinality, so the cache is unbounded.
var astCache = struct {
	sync.RWMutex
	entries map[string]node
}{entries: make(map[string]node)}

func compile(src string) (node, error) {
	astCache.RLock()
	cached, ok := astCache.entries[src]
	astCache.RUnlock()
	if ok {
		return cached, nil
	}
	root, err := parse(src)
	if err != nil {
		return nil, &SyntaxError{Source: src, Err: err}
	}
	astCache.Lock()
	astCache.entries[src] = root
	astCache.Unlock()
	return root, nil
}

// EvalCondition evaluates a condition against the environment. The empty
// condition and the "else" sentinel are unconditionally true. Runtime type
// mismatches make the condition false; only grammar faults return an
// error (a *SyntaxError).
func EvalCondition(src string, env map[string]any) (bool, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" || strings.EqualFold(trimmed, "else") {
		return true, nil
	}
	root, err := compile(trimmed)
	if err != nil {
		return false, err
	}
	value, err := root.eval(env)
	if err != nil {
		if errors.Is(err, errNotApplicable) {
			return false, nil
		}
		return false, err
	}
	return core.Truthy(value), nil
}
