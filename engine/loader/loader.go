package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aiqhub/aiq/engine/schema"
	"github.com/aiqhub/aiq/pkg/logger"
)

// ErrResourcesDirMissing is returned when the language directory does not
// exist.
var ErrResourcesDirMissing = errors.New("resources_dir_missing")

// ModuleIDMissingError marks a module file without a module id. This is an
// authoring fault, not a client one.
type ModuleIDMissingError struct {
	File string
}

func (e *ModuleIDMissingError) Error() string {
	return "module_id_missing:" + e.File
}

const constantsFile = "constants.yaml"

var (
	citeMarkerPattern = regexp.MustCompile(`\[cite:[^\]]*\]`)
	integerRunPattern = regexp.MustCompile(`\d+`)
)

// fileStamp is one entry of a directory signature.
type fileStamp struct {
	name  string
	mtime int64
}

// Loader builds and caches the Engine for one language directory. The
// cached engine is invalidated when any resource file's mtime changes; an
// optional TTL short-circuits the mtime check entirely.
type Loader struct {
	dataDir  string
	cacheTTL time.Duration

	mu          sync.Mutex
	cached      *schema.Engine
	signature   []fileStamp
	lastChecked time.Time
}

// New creates a loader for the given directory. A zero cacheTTL forces a
// signature check on every call.
func New(dataDir string, cacheTTL time.Duration) *Loader {
	return &Loader{dataDir: dataDir, cacheTTL: cacheTTL}
}

// GetEngine returns the current engine, rebuilding when the directory
// signature changed. The swap is atomic: callers always observe either the
// old or the new engine in its entirety.
func (l *Loader) GetEngine(ctx context.Context) (*schema.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.cached != nil && l.cacheTTL > 0 && now.Sub(l.lastChecked) < l.cacheTTL {
		return l.cached, nil
	}
	signature := l.currentSignature()
	l.lastChecked = now
	if l.cached != nil && signaturesEqual(l.signature, signature) {
		return l.cached, nil
	}
	engine, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.cached = engine
	l.signature = signature
	return engine, nil
}

func (l *Loader) currentSignature() []fileStamp {
	paths, err := filepath.Glob(filepath.Join(l.dataDir, "*.yaml"))
	if err != nil {
		return nil
	}
	stamps := make([]fileStamp, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stamps = append(stamps, fileStamp{name: filepath.Base(path), mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].name < stamps[j].name })
	return stamps
}

func signaturesEqual(a, b []fileStamp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (l *Loader) build(ctx context.Context) (*schema.Engine, error) {
	log := logger.FromContext(ctx)
	if info, err := os.Stat(l.dataDir); err != nil || !info.IsDir() {
		return nil, ErrResourcesDirMissing
	}
	paths, err := filepath.Glob(filepath.Join(l.dataDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("enumerating resources: %w", err)
	}
	sort.Strings(paths)
	constants, err := l.loadConstants()
	if err != nil {
		return nil, err
	}
	modules := make([]*schema.Module, 0, len(paths))
	questionsByID := make(map[string]*schema.Question)
	for _, path := range paths {
		if filepath.Base(path) == constantsFile {
			continue
		}
		module, err := loadModuleFile(path)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
		for id, q := range module.QuestionsByID {
			questionsByID[id] = q
		}
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].Num < modules[j].Num })
	modulesByID := make(map[string]*schema.Module, len(modules))
	for _, m := range modules {
		modulesByID[m.ID] = m
	}
	log.Debug("engine built", "dir", l.dataDir, "modules", len(modules), "questions", len(questionsByID))
	return &schema.Engine{
		Modules:       modules,
		ModulesByID:   modulesByID,
		QuestionsByID: questionsByID,
		Constants:     constants,
	}, nil
}

func (l *Loader) loadConstants() (map[string]any, error) {
	path := filepath.Join(l.dataDir, constantsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", constantsFile, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(stripCiteMarkers(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", constantsFile, err)
	}
	if constants, ok := raw["constants"].(map[string]any); ok {
		return constants, nil
	}
	return map[string]any{}, nil
}

func loadModuleFile(path string) (*schema.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(stripCiteMarkers(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	filename := filepath.Base(path)
	moduleIDRaw, ok := raw["module_id"]
	if !ok || moduleIDRaw == nil {
		moduleIDRaw = raw["module"]
	}
	if moduleIDRaw == nil {
		return nil, &ModuleIDMissingError{File: filename}
	}
	moduleID := asString(moduleIDRaw)
	module := &schema.Module{
		ID:          moduleID,
		Num:         parseModuleNumber(moduleIDRaw, filename),
		Title:       stringField(raw, "title", moduleID),
		Description: stringField(raw, "description", ""),
	}
	module.Questions = parseQuestions(raw["questions"])
	module.QuestionsByID = make(map[string]*schema.Question, len(module.Questions))
	for _, q := range module.Questions {
		module.QuestionsByID[q.ID] = q
	}
	module.Variables = parseVariables(raw["variables"])
	module.Router = parseRouter(raw["router"])
	return module, nil
}

// stripCiteMarkers removes annotation artifacts carried over from source
// content: the bare [cite_end] marker and any [cite:...] substring.
func stripCiteMarkers(data []byte) []byte {
	cleaned := strings.ReplaceAll(string(data), "[cite_end]", "")
	return []byte(citeMarkerPattern.ReplaceAllString(cleaned, ""))
}

func parseQuestions(raw any) []*schema.Question {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	questions := make([]*schema.Question, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(entry, "id", "")
		if id == "" {
			continue
		}
		questions = append(questions, &schema.Question{
			ID:         id,
			Type:       stringField(entry, "type", ""),
			Dependency: stringField(entry, "dependency", ""),
			Options:    parseOptions(entry["options"]),
			Raw:        entry,
		})
	}
	return questions
}

func parseOptions(raw any) []schema.Option {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	options := make([]schema.Option, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		exclusive, _ := entry["exclusive"].(bool)
		options = append(options, schema.Option{
			Value:     entry["value"],
			Exclusive: exclusive,
			Raw:       entry,
		})
	}
	return options
}

func parseVariables(raw any) []*schema.Variable {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	variables := make([]*schema.Variable, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(entry, "name", "")
		if name == "" {
			continue
		}
		variable := &schema.Variable{
			Name:         name,
			Type:         stringField(entry, "type", ""),
			InitialValue: entry["initial_value"],
		}
		if rules, ok := entry["rules"].([]any); ok {
			variable.Rules = make([]schema.VariableRule, 0, len(rules))
			for _, r := range rules {
				rule, ok := r.(map[string]any)
				if !ok {
					continue
				}
				variable.Rules = append(variable.Rules, schema.VariableRule{
					Condition: stringField(rule, "condition", ""),
					Value:     rule["value"],
				})
			}
		}
		variables = append(variables, variable)
	}
	return variables
}

func parseRouter(raw any) []*schema.RouterRule {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	rules := make([]*schema.RouterRule, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rule := &schema.RouterRule{
			Condition: stringField(entry, "condition", ""),
			Action:    stringField(entry, "action", ""),
			Message:   stringField(entry, "message", ""),
		}
		if target, ok := entry["target_module_id"]; ok && target != nil {
			rule.TargetModuleID = asString(target)
		} else if target, ok := entry["target_module"]; ok && target != nil {
			rule.TargetModuleID = parseTargetModule(target)
		}
		rules = append(rules, rule)
	}
	return rules
}

// parseModuleNumber derives the ordering key: an integer module id is used
// directly, otherwise the first integer run in the id, then in the
// filename, then 9999.
func parseModuleNumber(moduleID any, filename string) int {
	if n, ok := moduleID.(int); ok {
		return n
	}
	if s, ok := moduleID.(string); ok {
		if match := integerRunPattern.FindString(s); match != "" {
			if n, err := strconv.Atoi(match); err == nil {
				return n
			}
		}
	}
	if match := integerRunPattern.FindString(filename); match != "" {
		if n, err := strconv.Atoi(match); err == nil {
			return n
		}
	}
	return 9999
}

// parseTargetModule normalises a legacy target_module reference to the
// first integer run it contains.
func parseTargetModule(raw any) string {
	switch t := raw.(type) {
	case int:
		return strconv.Itoa(t)
	case string:
		return integerRunPattern.FindString(t)
	}
	return ""
}

func stringField(entry map[string]any, key, fallback string) string {
	value, ok := entry[key]
	if !ok || value == nil {
		return fallback
	}
	s := asString(value)
	if s == "" {
		return fallback
	}
	return s
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprintf("%v", v)
}
