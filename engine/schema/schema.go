package schema

// Question type tags as they appear in the resource files.
const (
	QuestionBoolean        = "boolean"
	QuestionSingleChoice   = "single_choice"
	QuestionMultiChoice    = "multi_choice"
	QuestionMultipleChoice = "multiple_choice"
)

// Variable type tags.
const (
	VariableBoolean    = "boolean"
	VariableString     = "string"
	VariableStringList = "string_list"
	VariableList       = "list"
)

// Router actions (matched case-insensitively).
const (
	ActionJump      = "jump"
	ActionNext      = "next"
	ActionTerminate = "terminate"
	ActionEnd       = "end"
	ActionFinish    = "finish"
)

// Option is one selectable choice. Raw preserves the authored shape
// (labels, help text) for presentation.
type Option struct {
	Value     any
	Exclusive bool
	Raw       map[string]any
}

// Question is a single questionnaire item. Dependency, when non-empty, is
// a condition controlling visibility. Raw preserves the authored payload.
type Question struct {
	ID         string
	Type       string
	Dependency string
	Options    []Option
	Raw        map[string]any
}

// VariableRule pairs a condition with the value it yields. The sentinel
// condition "else" matches unconditionally.
type VariableRule struct {
	Condition string
	Value     any
}

// Variable is a derived parameter definition. A nil InitialValue means the
// type default seeds the parameter.
type Variable struct {
	Name         string
	Type         string
	InitialValue any
	Rules        []VariableRule
}

// RouterRule selects the next module or terminates the session. An empty
// TargetModuleID on a jump/next rule is an authoring fault detected at
// evaluation time.
type RouterRule struct {
	Condition      string
	Action         string
	TargetModuleID string
	Message        string
}

// Module is a named group of questions with its own variables and router.
// Num is the ordering key derived from the module id or filename.
type Module struct {
	ID            string
	Num           int
	Title         string
	Description   string
	Questions     []*Question
	QuestionsByID map[string]*Question
	Variables     []*Variable
	Router        []*RouterRule
}

// Engine is the immutable in-memory questionnaire for one language.
type Engine struct {
	Modules       []*Module
	ModulesByID   map[string]*Module
	QuestionsByID map[string]*Question
	Constants     map[string]any
}

// FirstModule returns the lowest-ordered module, or nil when the engine is
// empty.
func (e *Engine) FirstModule() *Module {
	if len(e.Modules) == 0 {
		return nil
	}
	return e.Modules[0]
}
