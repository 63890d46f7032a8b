package intel

import (
	"context"
	"time"

	apperrors "meeting-intel/internal/common/errors"
	"meeting-intel/internal/common/logger"
	"meeting-intel/internal/common/metrics"
	"meeting-intel/internal/common/observability"
	"meeting-intel/internal/llm"
)

// OutcomeKind tags the result of one parse or validate step.
type OutcomeKind int

const (
	Success OutcomeKind = iota
	ParseFailed
	SchemaInvalid
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case ParseFailed:
		return "parse_failed"
	case SchemaInvalid:
		return "schema_invalid"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result that drives the reconciler.
type Outcome struct {
	Kind   OutcomeKind
	Object map[string]interface{}
	Reason error
}

// ParseOutcome classifies raw model text.
func ParseOutcome(text string) Outcome {
	obj, err := ParseObject(text)
	if err != nil {
		return Outcome{Kind: ParseFailed, Reason: err}
	}
	return Outcome{Kind: Success, Object: obj}
}

type state int

const (
	stateSend state = iota
	stateParse
	stateValidate
	stateRepairParse
	stateRepairSchema
	stateAccept
)

// Call is one logical model request; repairs reuse System unchanged and
// append a correction clause to Prompt.
type Call struct {
	System  string
	Prompt  string
	Purpose string
}

// Reconciler turns free-form model output into validated values.
type Reconciler struct {
	provider llm.Provider
	obs      *observability.Observability
	logger   logger.Logger
}

func NewReconciler(provider llm.Provider, obs *observability.Observability, log logger.Logger) *Reconciler {
	return &Reconciler{provider: provider, obs: obs, logger: logger.Component(log, "reconciler")}
}

// Reconcile runs SEND, PARSE and VALIDATE with at most one parse repair
// and one schema repair. A parse repair is only issued before any other
// repair; a later parse failure degrades to an empty object. A second
// schema failure is returned as SCHEMA_RECONCILIATION_FAILED. Provider
// errors abort immediately.
func Reconcile[T any](ctx context.Context, r *Reconciler, call Call, build func(map[string]interface{}) (T, error)) (T, error) {
	var (
		zero           T
		accepted       T
		st             = stateSend
		prompt         = call.Prompt
		text           string
		obj            map[string]interface{}
		reason         error
		parseRepaired  bool
		schemaRepaired bool
	)

	for {
		switch st {
		case stateSend:
			out, err := r.generate(ctx, call, prompt)
			if err != nil {
				return zero, err
			}
			text = out
			st = stateParse

		case stateParse:
			outcome := ParseOutcome(text)
			if outcome.Kind == ParseFailed {
				if !parseRepaired && !schemaRepaired {
					reason = outcome.Reason
					st = stateRepairParse
					continue
				}
				r.logger.Warn("model output unparsable after repair, using empty object", map[string]interface{}{
					"purpose": call.Purpose,
					"error":   outcome.Reason.Error(),
				})
				outcome.Object = map[string]interface{}{}
			}
			obj = outcome.Object
			st = stateValidate

		case stateValidate:
			v, err := build(obj)
			if err == nil {
				accepted = v
				st = stateAccept
				continue
			}
			outcome := Outcome{Kind: SchemaInvalid, Object: obj, Reason: err}
			if schemaRepaired {
				r.logger.Error("model output failed schema validation after repair", map[string]interface{}{
					"purpose": call.Purpose,
					"error":   err.Error(),
				})
				return zero, apperrors.NewSchemaReconciliationError(outcome.Reason.Error()).WithCause(outcome.Reason)
			}
			reason = outcome.Reason
			st = stateRepairSchema

		case stateRepairParse:
			parseRepaired = true
			metrics.ReconcileRepairs.WithLabelValues("parse").Inc()
			r.logger.Info("requesting json repair", map[string]interface{}{"purpose": call.Purpose, "error": reason.Error()})
			prompt = call.Prompt + parseRepairClause(reason)
			st = stateSend

		case stateRepairSchema:
			schemaRepaired = true
			metrics.ReconcileRepairs.WithLabelValues("schema").Inc()
			r.logger.Info("requesting schema repair", map[string]interface{}{"purpose": call.Purpose, "error": reason.Error()})
			prompt = call.Prompt + schemaRepairClause(reason)
			st = stateSend

		case stateAccept:
			return accepted, nil
		}
	}
}

// ParseWithRepair is the looser pass used for conversational output: one
// parse repair with the given clause, then an empty object. No schema.
func (r *Reconciler) ParseWithRepair(ctx context.Context, call Call, repair func(error) string) (map[string]interface{}, error) {
	text, err := r.generate(ctx, call, call.Prompt)
	if err != nil {
		return nil, err
	}
	outcome := ParseOutcome(text)
	if outcome.Kind == Success {
		return outcome.Object, nil
	}

	metrics.ReconcileRepairs.WithLabelValues("parse").Inc()
	text, err = r.generate(ctx, call, call.Prompt+repair(outcome.Reason))
	if err != nil {
		return nil, err
	}
	if outcome = ParseOutcome(text); outcome.Kind == Success {
		return outcome.Object, nil
	}
	r.logger.Warn("model output unparsable after repair, using empty object", map[string]interface{}{
		"purpose": call.Purpose,
		"error":   outcome.Reason.Error(),
	})
	return map[string]interface{}{}, nil
}

func (r *Reconciler) generate(ctx context.Context, call Call, prompt string) (string, error) {
	ctx, span := r.obs.StartSpan(ctx, "llm.generate")
	defer span.End()

	start := time.Now()
	text, err := r.provider.Generate(ctx, llm.Request{
		System:  call.System,
		Prompt:  prompt,
		JSON:    true,
		Purpose: call.Purpose,
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
	}
	metrics.LLMCalls.WithLabelValues(call.Purpose, outcome).Inc()
	r.obs.RecordLLMCall(ctx, call.Purpose, outcome, time.Since(start))

	if err != nil {
		return "", err
	}
	if text == "" {
		text = "{}"
	}
	return text, nil
}
