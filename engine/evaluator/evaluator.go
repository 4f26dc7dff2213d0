package evaluator

import (
	"errors"
	"strings"

	"github.com/aiqhub/aiq/engine/core"
	"github.com/aiqhub/aiq/engine/expr"
	"github.com/aiqhub/aiq/engine/schema"
)

// Evaluator applies the rule language to a session's answers: answer
// validation, question visibility, parameter derivation, routing and the
// final conclusion. It holds no per-session state and is safe for
// concurrent use.
type Evaluator struct{}

func New() *Evaluator {
	return &Evaluator{}
}

// Next is a routing decision: either the module to continue with or a
// terminal result.
type Next struct {
	Type     string `json:"type"`
	ModuleID string `json:"module_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

const (
	NextModule = "module"
	NextResult = "result"
)

// moduleFinishedVar is injected into the router environment so rules can
// react to completion.
const moduleFinishedVar = "Module_finished"

// ValidateAnswer checks a submitted value against the question definition
// and returns the value to store. Violations are 400-class errors with a
// structured detail naming the question.
func (e *Evaluator) ValidateAnswer(question *schema.Question, value any) (any, error) {
	switch question.Type {
	case schema.QuestionBoolean:
		if _, ok := value.(bool); ok {
			return value, nil
		}
		return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "expected": "boolean"})
	case schema.QuestionSingleChoice:
		if optionIndex(question.Options, value) < 0 {
			return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "value": value})
		}
		return value, nil
	case schema.QuestionMultiChoice, schema.QuestionMultipleChoice:
		return e.validateMultiChoice(question, value)
	}
	return value, nil
}

func (e *Evaluator) validateMultiChoice(question *schema.Question, value any) (any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "expected": "list"})
	}
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			if core.Equal(list[i], list[j]) {
				return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "duplicates": true})
			}
		}
	}
	invalid := make([]any, 0)
	hasExclusive := false
	for _, item := range list {
		idx := optionIndex(question.Options, item)
		if idx < 0 {
			invalid = append(invalid, item)
			continue
		}
		if question.Options[idx].Exclusive {
			hasExclusive = true
		}
	}
	if len(invalid) > 0 {
		return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "invalid": invalid})
	}
	if hasExclusive && len(list) != 1 {
		return nil, core.BadRequest(map[string]any{"invalid_answer": question.ID, "exclusive": true})
	}
	return list, nil
}

func optionIndex(options []schema.Option, value any) int {
	for i := range options {
		if core.Equal(options[i].Value, value) {
			return i
		}
	}
	return -1
}

// QuestionVisible reports whether the question should be shown under the
// current answers and parameters.
func (e *Evaluator) QuestionVisible(question *schema.Question, answers, params map[string]any) (bool, error) {
	if question.Dependency == "" {
		return true, nil
	}
	return e.evalCondition(question.Dependency, answers, params)
}

// ModulePayload builds the presentation shape for a module: identity plus
// a single-question window. The first visible unanswered question is
// selected; when everything visible is answered the window falls back to
// the last answered visible question, then to the last visible one.
func (e *Evaluator) ModulePayload(module *schema.Module, answers, params map[string]any) (map[string]any, error) {
	var window []map[string]any
	var lastAnswered, lastVisible map[string]any
	for _, q := range module.Questions {
		visible, err := e.QuestionVisible(q, answers, params)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		lastVisible = q.Raw
		if _, answered := answers[q.ID]; !answered {
			window = []map[string]any{q.Raw}
			break
		}
		lastAnswered = q.Raw
	}
	if window == nil {
		switch {
		case lastAnswered != nil:
			window = []map[string]any{lastAnswered}
		case lastVisible != nil:
			window = []map[string]any{lastVisible}
		default:
			window = []map[string]any{}
		}
	}
	return map[string]any{
		"id":          module.ID,
		"title":       module.Title,
		"description": module.Description,
		"questions":   window,
	}, nil
}

// ModuleComplete reports whether every currently-visible question has an
// answer.
func (e *Evaluator) ModuleComplete(module *schema.Module, answers, params map[string]any) (bool, error) {
	for _, q := range module.Questions {
		visible, err := e.QuestionVisible(q, answers, params)
		if err != nil {
			return false, err
		}
		if !visible {
			continue
		}
		if _, answered := answers[q.ID]; !answered {
			return false, nil
		}
	}
	return true, nil
}

// PruneHiddenAnswers removes answers whose questions are no longer
// visible, mutating the answers map. It reports whether anything was
// removed; callers iterate recompute/prune to a fixed point.
func (e *Evaluator) PruneHiddenAnswers(module *schema.Module, answers, params map[string]any) (bool, error) {
	removed := false
	for _, q := range module.Questions {
		if _, answered := answers[q.ID]; !answered {
			continue
		}
		visible, err := e.QuestionVisible(q, answers, params)
		if err != nil {
			return removed, err
		}
		if !visible {
			delete(answers, q.ID)
			removed = true
		}
	}
	return removed, nil
}

// NextAction walks the module's router rules in order and returns the
// first decision. The environment is extended with Module_finished so
// rules can gate on completion. With no matching rule the session stays on
// the current module.
func (e *Evaluator) NextAction(module *schema.Module, answers, params map[string]any) (*Next, error) {
	moduleDone, err := e.ModuleComplete(module, answers, params)
	if err != nil {
		return nil, err
	}
	routed := make(map[string]any, len(params)+1)
	for k, v := range params {
		routed[k] = v
	}
	routed[moduleFinishedVar] = moduleDone
	for _, rule := range module.Router {
		if rule.Condition != "" {
			matched, err := e.evalCondition(rule.Condition, answers, routed)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		switch strings.ToLower(rule.Action) {
		case schema.ActionJump, schema.ActionNext:
			if rule.TargetModuleID == "" {
				return nil, core.Internal(map[string]any{"router_target_missing": rule.Action})
			}
			return &Next{Type: NextModule, ModuleID: rule.TargetModuleID, Message: rule.Message}, nil
		case schema.ActionTerminate, schema.ActionEnd, schema.ActionFinish:
			return &Next{Type: NextResult, Message: rule.Message}, nil
		}
	}
	return &Next{Type: NextModule, ModuleID: module.ID}, nil
}

// ComputeConclusion projects the fixed conclusion fields out of the
// parameters; absent ones stay null.
func (e *Evaluator) ComputeConclusion(params map[string]any) map[string]any {
	return map[string]any{
		"Role":       params["Role"],
		"Type":       params["Type"],
		"Risk_level": params["Risk_level"],
		"View":       params["View"],
	}
}

// evalCondition runs a condition over the merged environment. Grammar
// faults become 500-class errors naming the condition; runtime mismatches
// were already folded into false by the expression engine.
func (e *Evaluator) evalCondition(condition string, answers, params map[string]any) (bool, error) {
	result, err := expr.EvalCondition(condition, expr.BuildEnv(answers, params))
	if err != nil {
		var syntaxErr *expr.SyntaxError
		if errors.As(err, &syntaxErr) {
			return false, core.Internal(map[string]any{
				"invalid_condition": condition,
				"error":             syntaxErr.Err.Error(),
			})
		}
		return false, err
	}
	return result, nil
}
