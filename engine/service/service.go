package service

import (
	"context"
	"errors"

	"github.com/aiqhub/aiq/engine/core"
	"github.com/aiqhub/aiq/engine/evaluator"
	"github.com/aiqhub/aiq/engine/loader"
	"github.com/aiqhub/aiq/engine/schema"
	"github.com/aiqhub/aiq/engine/session"
	"github.com/aiqhub/aiq/pkg/logger"
)

// maxPruneIterations caps the recompute/prune fixed-point loop after a
// submission.
const maxPruneIterations = 5

// Service orchestrates the questionnaire protocol: it loads the engine for
// the request language, applies submissions through the evaluator and
// persists session state. It is transport-agnostic; faults are *core.Error
// values the HTTP layer renders.
type Service struct {
	loaders map[string]*loader.Loader
	eval    *evaluator.Evaluator
	store   session.Store
}

func New(loaders map[string]*loader.Loader, eval *evaluator.Evaluator, store session.Store) *Service {
	return &Service{loaders: loaders, eval: eval, store: store}
}

// StartResult is the response to a session start.
type StartResult struct {
	SessionID string         `json:"session_id"`
	Module    map[string]any `json:"module"`
}

// SubmitRequest is one answer submission. ModuleID is optional and
// defaults to the session's current module; Replace clears all previous
// answers first.
type SubmitRequest struct {
	SessionID string         `json:"session_id"`
	ModuleID  string         `json:"module_id"`
	Answers   map[string]any `json:"answers"`
	Replace   bool           `json:"replace"`
	Lang      string         `json:"-"`
}

// SubmitResult mirrors the submission protocol: refreshed parameters, the
// routing decision, and the payload of the module to present next (or the
// conclusion at a terminal state).
type SubmitResult struct {
	SessionID      string          `json:"session_id"`
	Parameters     map[string]any  `json:"parameters"`
	Next           *evaluator.Next `json:"next"`
	ModuleComplete bool            `json:"module_complete"`
	Module         map[string]any  `json:"module"`
	Conclusion     map[string]any  `json:"conclusion"`
}

// ResultPayload is the read-path projection of a session.
type ResultPayload struct {
	Parameters map[string]any `json:"parameters"`
	Conclusion map[string]any `json:"conclusion"`
}

// Start creates a session positioned at the first module of the requested
// language and returns its presentation payload.
func (s *Service) Start(ctx context.Context, lang string) (*StartResult, error) {
	normalized := resolveLang(lang, "")
	engine, err := s.engineFor(ctx, normalized)
	if err != nil {
		return nil, err
	}
	first := engine.FirstModule()
	if first == nil {
		return nil, core.Internal("no_modules_loaded")
	}
	sess, err := s.store.Create(ctx, first.ID, normalized)
	if err != nil {
		return nil, core.AsError(err)
	}
	sess.Parameters, err = s.eval.ComputeParameters(engine, sess.Answers)
	if err != nil {
		return nil, err
	}
	payload, err := s.eval.ModulePayload(first, sess.Answers, sess.Parameters)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}
	logger.FromContext(ctx).Info("session started", "session_id", sess.ID, "lang", normalized, "module", first.ID)
	return &StartResult{SessionID: sess.ID, Module: payload}, nil
}

// GetModule returns the presentation payload of one module under the
// session's current answers.
func (s *Service) GetModule(ctx context.Context, sessionID, moduleID, lang string) (map[string]any, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	priorLang := sess.Lang
	engine, err := s.engineForSession(ctx, lang, sess)
	if err != nil {
		return nil, err
	}
	module, ok := engine.ModulesByID[moduleID]
	if !ok {
		return nil, core.NotFound("module_not_found")
	}
	if sess.Lang != priorLang {
		if err := s.store.Save(ctx, sess); err != nil {
			return nil, core.AsError(err)
		}
	}
	return s.eval.ModulePayload(module, sess.Answers, sess.Parameters)
}

// SubmitAnswer applies a submission: validates and stores the incoming
// answers, recomputes parameters, prunes newly-hidden answers to a fixed
// point and decides the next step.
func (s *Service) SubmitAnswer(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	sess, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	engine, err := s.engineForSession(ctx, req.Lang, sess)
	if err != nil {
		return nil, err
	}
	activeID := req.ModuleID
	if activeID == "" {
		activeID = sess.CurrentModuleID
	}
	if activeID == "" {
		return nil, core.BadRequest("module_id_required")
	}
	module, ok := engine.ModulesByID[activeID]
	if !ok {
		return nil, core.NotFound("module_not_found")
	}
	if req.ModuleID != "" {
		sess.CurrentModuleID = activeID
	}
	if req.Replace {
		sess.Answers = make(map[string]any)
	}
	for qid, value := range req.Answers {
		question, ok := engine.QuestionsByID[qid]
		if !ok {
			return nil, core.BadRequest(map[string]any{"unknown_question": qid})
		}
		validated, err := s.eval.ValidateAnswer(question, value)
		if err != nil {
			return nil, err
		}
		sess.Answers[qid] = validated
	}
	params, err := s.reconcile(engine, module, sess.Answers)
	if err != nil {
		return nil, err
	}
	sess.Parameters = params
	result := &SubmitResult{SessionID: sess.ID, Parameters: params}
	result.ModuleComplete, err = s.eval.ModuleComplete(module, sess.Answers, params)
	if err != nil {
		return nil, err
	}
	if !result.ModuleComplete {
		result.Next = &evaluator.Next{Type: evaluator.NextModule, ModuleID: module.ID}
		result.Module, err = s.eval.ModulePayload(module, sess.Answers, params)
		if err != nil {
			return nil, err
		}
	} else {
		result.Next, err = s.eval.NextAction(module, sess.Answers, params)
		if err != nil {
			return nil, err
		}
		switch result.Next.Type {
		case evaluator.NextModule:
			sess.CurrentModuleID = result.Next.ModuleID
			if target, ok := engine.ModulesByID[result.Next.ModuleID]; ok {
				result.Module, err = s.eval.ModulePayload(target, sess.Answers, params)
				if err != nil {
					return nil, err
				}
			}
		case evaluator.NextResult:
			sess.CurrentModuleID = ""
			result.Conclusion = s.eval.ComputeConclusion(params)
			sess.Conclusion = result.Conclusion
		}
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}
	return result, nil
}

// reconcile recomputes parameters and prunes answers of newly-hidden
// questions until a fixed point, bounded by maxPruneIterations.
func (s *Service) reconcile(
	engine *schema.Engine,
	module *schema.Module,
	answers map[string]any,
) (map[string]any, error) {
	params, err := s.eval.ComputeParameters(engine, answers)
	if err != nil {
		return nil, err
	}
	for range maxPruneIterations {
		removed, err := s.eval.PruneHiddenAnswers(module, answers, params)
		if err != nil {
			return nil, err
		}
		if !removed {
			break
		}
		params, err = s.eval.ComputeParameters(engine, answers)
		if err != nil {
			return nil, err
		}
	}
	return params, nil
}

// Result recomputes parameters from the current answers and persists the
// refreshed conclusion.
func (s *Service) Result(ctx context.Context, sessionID, lang string) (*ResultPayload, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	engine, err := s.engineForSession(ctx, lang, sess)
	if err != nil {
		return nil, err
	}
	sess.Parameters, err = s.eval.ComputeParameters(engine, sess.Answers)
	if err != nil {
		return nil, err
	}
	sess.Conclusion = s.eval.ComputeConclusion(sess.Parameters)
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, core.AsError(err)
	}
	return &ResultPayload{Parameters: sess.Parameters, Conclusion: sess.Conclusion}, nil
}

// GetQuestion returns the raw payload of one question from the global
// index.
func (s *Service) GetQuestion(ctx context.Context, questionID, lang string) (map[string]any, error) {
	engine, err := s.engineFor(ctx, resolveLang(lang, ""))
	if err != nil {
		return nil, err
	}
	question, ok := engine.QuestionsByID[questionID]
	if !ok {
		return nil, core.NotFound("question_not_found")
	}
	return question.Raw, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, core.NotFound("session_not_found")
		}
		return nil, core.AsError(err)
	}
	return sess, nil
}

// engineForSession resolves the effective language, records it on the
// session and returns that language's engine.
func (s *Service) engineForSession(
	ctx context.Context,
	lang string,
	sess *session.Session,
) (*schema.Engine, error) {
	normalized := resolveLang(lang, sess.Lang)
	sess.Lang = normalized
	return s.engineFor(ctx, normalized)
}

func (s *Service) engineFor(ctx context.Context, lang string) (*schema.Engine, error) {
	l, ok := s.loaders[lang]
	if !ok {
		l, ok = s.loaders[LangEN]
		if !ok {
			return nil, core.Internal("resources_dir_missing")
		}
	}
	engine, err := l.GetEngine(ctx)
	if err != nil {
		if errors.Is(err, loader.ErrResourcesDirMissing) {
			return nil, core.Internal("resources_dir_missing")
		}
		var idErr *loader.ModuleIDMissingError
		if errors.As(err, &idErr) {
			return nil, core.Internal(idErr.Error())
		}
		return nil, core.AsError(err)
	}
	return engine, nil
}
