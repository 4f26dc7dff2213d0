package evaluator

import (
	"regexp"
	"strings"

	"github.com/aiqhub/aiq/engine/core"
	"github.com/aiqhub/aiq/engine/schema"
)

var templatePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// ComputeParameters derives every parameter from the engine definition and
// the current answers. It is a pure function of its inputs: modules are
// walked in engine order and each variable sees the parameters set before
// it, so authors order variables topologically.
func (e *Evaluator) ComputeParameters(engine *schema.Engine, answers map[string]any) (map[string]any, error) {
	params := make(map[string]any)
	for _, module := range engine.Modules {
		for _, variable := range module.Variables {
			value, err := e.deriveVariable(variable, answers, params)
			if err != nil {
				return nil, err
			}
			params[variable.Name] = value
		}
	}
	// Second pass: render {{ name }} placeholders in declaration order,
	// updating in place so a placeholder referencing an earlier templated
	// parameter sees its rendered value.
	for _, module := range engine.Modules {
		for _, variable := range module.Variables {
			params[variable.Name] = e.renderTemplate(params[variable.Name], answers, params)
		}
	}
	return params, nil
}

func (e *Evaluator) deriveVariable(variable *schema.Variable, answers, params map[string]any) (any, error) {
	value := variable.InitialValue
	if value == nil {
		value = defaultForType(variable.Type)
	}
	typeTag := strings.ToLower(variable.Type)
	if typeTag == schema.VariableStringList || typeTag == schema.VariableList {
		return e.deriveListVariable(variable, value, answers, params)
	}
	for _, rule := range variable.Rules {
		matched, err := e.evalCondition(rule.Condition, answers, params)
		if err != nil {
			return nil, err
		}
		if matched {
			return rule.Value, nil
		}
	}
	return value, nil
}

// deriveListVariable collects the values of every matching rule; the
// "else" rule only applies when nothing matched, wrapped into a list if
// needed.
func (e *Evaluator) deriveListVariable(
	variable *schema.Variable,
	seed any,
	answers, params map[string]any,
) (any, error) {
	collected := make([]any, 0)
	var elseValue any
	for _, rule := range variable.Rules {
		if strings.EqualFold(strings.TrimSpace(rule.Condition), "else") {
			elseValue = rule.Value
			continue
		}
		matched, err := e.evalCondition(rule.Condition, answers, params)
		if err != nil {
			return nil, err
		}
		if matched {
			collected = append(collected, rule.Value)
		}
	}
	if len(collected) > 0 {
		return collected, nil
	}
	if elseValue != nil {
		if list, ok := elseValue.([]any); ok {
			return list, nil
		}
		return []any{elseValue}, nil
	}
	return seed, nil
}

func defaultForType(typeTag string) any {
	switch strings.ToLower(typeTag) {
	case schema.VariableBoolean:
		return false
	case schema.VariableString:
		return ""
	case schema.VariableStringList, schema.VariableList:
		return []any{}
	}
	return nil
}

// renderTemplate expands {{ name }} placeholders inside strings and list
// elements. Names resolve against parameters first, then answers; null
// renders empty and lists join with "; ".
func (e *Evaluator) renderTemplate(value any, answers, params map[string]any) any {
	switch t := value.(type) {
	case string:
		return templatePattern.ReplaceAllStringFunc(t, func(match string) string {
			name := templatePattern.FindStringSubmatch(match)[1]
			return stringifyPlaceholder(name, answers, params)
		})
	case []any:
		rendered := make([]any, len(t))
		for i, item := range t {
			rendered[i] = e.renderTemplate(item, answers, params)
		}
		return rendered
	}
	return value
}

func stringifyPlaceholder(name string, answers, params map[string]any) string {
	if raw, ok := params[name]; ok {
		return core.Stringify(raw)
	}
	if raw, ok := answers[name]; ok {
		return core.Stringify(raw)
	}
	return ""
}
