package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqhub/aiq/engine/schema"
)

func engineWithVariables(variables ...*schema.Variable) *schema.Engine {
	module := &schema.Module{ID: "module_1", Variables: variables}
	return &schema.Engine{
		Modules:     []*schema.Module{module},
		ModulesByID: map[string]*schema.Module{module.ID: module},
	}
}

func TestComputeParameters(t *testing.T) {
	e := New()
	t.Run("Should seed from the initial value when no rule matches", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name:         "Role",
			Type:         schema.VariableString,
			InitialValue: "unknown",
			Rules:        []schema.VariableRule{{Condition: "q1 == True", Value: "provider"}},
		})
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "unknown", params["Role"])
	})
	t.Run("Should seed from the type default without an initial value", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{Name: "Flag", Type: schema.VariableBoolean},
			&schema.Variable{Name: "Label", Type: schema.VariableString},
			&schema.Variable{Name: "Tags", Type: schema.VariableStringList},
			&schema.Variable{Name: "Free", Type: ""},
		)
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, false, params["Flag"])
		assert.Equal(t, "", params["Label"])
		assert.Equal(t, []any{}, params["Tags"])
		assert.Nil(t, params["Free"])
	})
	t.Run("Should take the first matching rule for scalar variables", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name: "Role",
			Type: schema.VariableString,
			Rules: []schema.VariableRule{
				{Condition: "q1 == True", Value: "provider"},
				{Condition: "q1 == True", Value: "deployer"},
			},
		})
		params, err := e.ComputeParameters(engine, map[string]any{"q1": true})
		require.NoError(t, err)
		assert.Equal(t, "provider", params["Role"])
	})
	t.Run("Should collect every matching rule for list variables", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name: "Obligations",
			Type: schema.VariableStringList,
			Rules: []schema.VariableRule{
				{Condition: "q1 == True", Value: "register"},
				{Condition: "q2 == True", Value: "assess"},
				{Condition: "else", Value: "none"},
			},
		})
		params, err := e.ComputeParameters(engine, map[string]any{"q1": true, "q2": true})
		require.NoError(t, err)
		assert.Equal(t, []any{"register", "assess"}, params["Obligations"])
	})
	t.Run("Should apply the else rule only when nothing matched", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name: "Obligations",
			Type: schema.VariableStringList,
			Rules: []schema.VariableRule{
				{Condition: "q1 == True", Value: "register"},
				{Condition: "else", Value: "none"},
			},
		})
		params, err := e.ComputeParameters(engine, map[string]any{"q1": false})
		require.NoError(t, err)
		assert.Equal(t, []any{"none"}, params["Obligations"])
	})
	t.Run("Should keep a list-valued else as-is", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name: "Obligations",
			Type: schema.VariableList,
			Rules: []schema.VariableRule{
				{Condition: "else", Value: []any{"a", "b"}},
			},
		})
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, params["Obligations"])
	})
	t.Run("Should let later variables see earlier ones", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{
				Name:  "Role",
				Type:  schema.VariableString,
				Rules: []schema.VariableRule{{Condition: "q1 == True", Value: "provider"}},
			},
			&schema.Variable{
				Name:  "View",
				Type:  schema.VariableString,
				Rules: []schema.VariableRule{{Condition: "Role == 'provider'", Value: "full"}},
			},
		)
		params, err := e.ComputeParameters(engine, map[string]any{"q1": true})
		require.NoError(t, err)
		assert.Equal(t, "full", params["View"])
	})
	t.Run("Should fail on a malformed rule condition", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name:  "Role",
			Rules: []schema.VariableRule{{Condition: "q1 ==", Value: "x"}},
		})
		_, err := e.ComputeParameters(engine, map[string]any{})
		require.Error(t, err)
	})
}

func TestComputeParameters_Templates(t *testing.T) {
	e := New()
	t.Run("Should interpolate parameters and answers into strings", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{Name: "Role", Type: schema.VariableString, InitialValue: "provider"},
			&schema.Variable{
				Name:         "Summary",
				Type:         schema.VariableString,
				InitialValue: "Acting as {{ Role }} for {{ q_name }}.",
			},
		)
		params, err := e.ComputeParameters(engine, map[string]any{"q_name": "ACME"})
		require.NoError(t, err)
		assert.Equal(t, "Acting as provider for ACME.", params["Summary"])
	})
	t.Run("Should render unknown names and nulls as empty", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name:         "Summary",
			Type:         schema.VariableString,
			InitialValue: "[{{ Missing }}]",
		})
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "[]", params["Summary"])
	})
	t.Run("Should join list values in placeholders", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{
				Name: "Obligations",
				Type: schema.VariableStringList,
				Rules: []schema.VariableRule{
					{Condition: "q1 == True", Value: "register"},
					{Condition: "q1 == True", Value: "assess"},
				},
			},
			&schema.Variable{
				Name:         "Summary",
				Type:         schema.VariableString,
				InitialValue: "Duties: {{ Obligations }}",
			},
		)
		params, err := e.ComputeParameters(engine, map[string]any{"q1": true})
		require.NoError(t, err)
		assert.Equal(t, "Duties: register; assess", params["Summary"])
	})
	t.Run("Should render placeholders inside list elements", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{Name: "Role", Type: schema.VariableString, InitialValue: "provider"},
			&schema.Variable{
				Name: "Notes",
				Type: schema.VariableList,
				Rules: []schema.VariableRule{
					{Condition: "else", Value: []any{"role is {{ Role }}"}},
				},
			},
		)
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, []any{"role is provider"}, params["Notes"])
	})
	t.Run("Should resolve chains of templated parameters in declaration order", func(t *testing.T) {
		engine := engineWithVariables(
			&schema.Variable{Name: "Role", Type: schema.VariableString, InitialValue: "provider"},
			&schema.Variable{
				Name:         "Headline",
				Type:         schema.VariableString,
				InitialValue: "r={{ Role }}",
			},
			&schema.Variable{
				Name:         "Summary",
				Type:         schema.VariableString,
				InitialValue: "m={{ Headline }}",
			},
		)
		params, err := e.ComputeParameters(engine, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "r=provider", params["Headline"])
		assert.Equal(t, "m=r=provider", params["Summary"])
	})
	t.Run("Should accept dotted and hyphenated placeholder names", func(t *testing.T) {
		engine := engineWithVariables(&schema.Variable{
			Name:         "Summary",
			Type:         schema.VariableString,
			InitialValue: "answer: {{ q3.1-a }}",
		})
		params, err := e.ComputeParameters(engine, map[string]any{"q3.1-a": "yes"})
		require.NoError(t, err)
		assert.Equal(t, "answer: yes", params["Summary"])
	})
}
