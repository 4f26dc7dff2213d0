package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalOK(t *testing.T, src string, env map[string]any) bool {
	t.Helper()
	result, err := EvalCondition(src, env)
	require.NoError(t, err)
	return result
}

func TestEvalCondition_Basics(t *testing.T) {
	t.Run("Should treat empty condition as true", func(t *testing.T) {
		assert.True(t, evalOK(t, "", nil))
		assert.True(t, evalOK(t, "   ", nil))
	})
	t.Run("Should treat else sentinel as true regardless of case", func(t *testing.T) {
		assert.True(t, evalOK(t, "else", nil))
		assert.True(t, evalOK(t, " ELSE ", nil))
	})
	t.Run("Should compare answers against literals", func(t *testing.T) {
		env := map[string]any{"q1": true, "q2": "yes", "q3": 3}
		assert.True(t, evalOK(t, "q1 == True", env))
		assert.False(t, evalOK(t, "q1 == False", env))
		assert.True(t, evalOK(t, "q2 == 'yes'", env))
		assert.True(t, evalOK(t, "q3 == 3", env))
		assert.True(t, evalOK(t, "q2 != 'no'", env))
	})
	t.Run("Should compare against negative numeric literals", func(t *testing.T) {
		env := map[string]any{"n": -1, "f": -0.5}
		assert.True(t, evalOK(t, "n == -1", env))
		assert.False(t, evalOK(t, "n == -2", env))
		assert.True(t, evalOK(t, "f == -0.5", env))
		assert.True(t, evalOK(t, "n != -3", env))
	})
	t.Run("Should combine with boolean operators and parentheses", func(t *testing.T) {
		env := map[string]any{"a": true, "b": false, "c": "x"}
		assert.True(t, evalOK(t, "a and c == 'x'", env))
		assert.True(t, evalOK(t, "b or a", env))
		assert.False(t, evalOK(t, "not a", env))
		assert.True(t, evalOK(t, "not (b and a)", env))
		assert.True(t, evalOK(t, "(a or b) and c == 'x'", env))
	})
}

func TestEvalCondition_UnboundIdentifiers(t *testing.T) {
	t.Run("Should compare unbound names as null", func(t *testing.T) {
		assert.False(t, evalOK(t, "unbound == 'x'", map[string]any{}))
		assert.True(t, evalOK(t, "unbound != 'x'", map[string]any{}))
		assert.True(t, evalOK(t, "unbound == None", map[string]any{}))
	})
	t.Run("Should report unbound names as not defined", func(t *testing.T) {
		assert.False(t, evalOK(t, "unbound is defined", map[string]any{}))
		assert.True(t, evalOK(t, "bound is defined", map[string]any{"bound": "v"}))
		assert.False(t, evalOK(t, "bound is defined", map[string]any{"bound": nil}))
	})
}

func TestEvalCondition_Membership(t *testing.T) {
	t.Run("Should test list membership", func(t *testing.T) {
		env := map[string]any{"tags": []any{"a", "b"}}
		assert.True(t, evalOK(t, "'a' in tags", env))
		assert.False(t, evalOK(t, "'c' in tags", env))
	})
	t.Run("Should test substring on strings", func(t *testing.T) {
		env := map[string]any{"name": "provider"}
		assert.True(t, evalOK(t, "'vid' in name", env))
		assert.False(t, evalOK(t, "'xyz' in name", env))
	})
	t.Run("Should be false when container is not applicable", func(t *testing.T) {
		assert.False(t, evalOK(t, "'a' in missing", map[string]any{}))
		assert.False(t, evalOK(t, "'a' in num", map[string]any{"num": 5}))
	})
	t.Run("Should expand bracketed lists into equality chains", func(t *testing.T) {
		env := map[string]any{"role": "deployer"}
		assert.True(t, evalOK(t, "role in ['provider', 'deployer']", env))
		assert.False(t, evalOK(t, "role in ['provider', 'importer']", env))
		sugar := evalOK(t, "role in ['provider', 'deployer']", env)
		expanded := evalOK(t, "role == 'provider' or role == 'deployer'", env)
		assert.Equal(t, expanded, sugar)
	})
	t.Run("Should rewrite contains as reversed membership", func(t *testing.T) {
		env := map[string]any{"tags": []any{"a", "b"}}
		assert.True(t, evalOK(t, "tags contains 'a'", env))
		assert.False(t, evalOK(t, "tags contains 'c'", env))
		assert.Equal(t,
			evalOK(t, "tags contains 'a'", env),
			evalOK(t, "'a' in tags", env),
		)
	})
	t.Run("Should handle chained contains", func(t *testing.T) {
		env := map[string]any{"xs": []any{"a"}, "ys": []any{"b"}}
		assert.True(t, evalOK(t, "xs contains 'a' and ys contains 'b'", env))
	})
}

func TestEvalCondition_Errors(t *testing.T) {
	t.Run("Should surface grammar faults as syntax errors", func(t *testing.T) {
		for _, src := range []string{"q1 ==", "q1 = 1", "(q1 == 1", "'unterminated", "q1 == 1 extra ,", "q1 == -"} {
			_, err := EvalCondition(src, map[string]any{})
			require.Error(t, err, "source %q", src)
			assert.ErrorAs(t, err, new(*SyntaxError))
		}
	})
	t.Run("Should fold type mismatches into false", func(t *testing.T) {
		env := map[string]any{"n": 1}
		assert.False(t, evalOK(t, "'a' in n", env))
		assert.False(t, evalOK(t, "n == 'a'", env))
		assert.True(t, evalOK(t, "n != 'a'", env))
	})
}

func TestNormalizeName(t *testing.T) {
	t.Run("Should replace punctuation with underscores", func(t *testing.T) {
		assert.Equal(t, "q3_1_a", NormalizeName("q3.1-a"))
		assert.Equal(t, "q3_1_a", NormalizeName("q3_1_a"))
	})
	t.Run("Should prefix a leading digit", func(t *testing.T) {
		assert.Equal(t, "_3q", NormalizeName("3q"))
	})
	t.Run("Should resolve normalised spellings to the same binding", func(t *testing.T) {
		env := BuildEnv(map[string]any{"q3.1-a": "yes"}, nil)
		assert.True(t, evalOK(t, "q3.1-a == 'yes'", env))
		assert.True(t, evalOK(t, "q3_1_a == 'yes'", env))
	})
}

func TestBuildEnv(t *testing.T) {
	t.Run("Should let answers shadow parameters", func(t *testing.T) {
		env := BuildEnv(map[string]any{"x": "answer"}, map[string]any{"x": "param", "y": 1})
		assert.Equal(t, "answer", env["x"])
		assert.Equal(t, 1, env["y"])
	})
}
