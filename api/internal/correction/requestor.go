package correction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"typing-assistant/api/internal/llm"
)

type FailureKind int

const (
	TransportFailure FailureKind = iota + 1
	MalformedUpstreamResponse
)

func (k FailureKind) String() string {
	switch k {
	case TransportFailure:
		return "transport_failure"
	case MalformedUpstreamResponse:
		return "malformed_upstream_response"
	default:
		return "unknown"
	}
}

// ParseFailureKind is the inverse of String; unknown names yield 0.
func ParseFailureKind(s string) FailureKind {
	switch s {
	case "transport_failure":
		return TransportFailure
	case "malformed_upstream_response":
		return MalformedUpstreamResponse
	default:
		return 0
	}
}

// Failure is a terminal, per-request upstream failure.
type Failure struct {
	Kind  FailureKind
	Cause error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// Message is the text shown to the end user in place of a correction.
func (f *Failure) Message() string {
	switch f.Kind {
	case MalformedUpstreamResponse:
		return fmt.Sprintf("Error: Could not get a valid response from the AI. (%v)", f.Cause)
	default:
		return fmt.Sprintf("Error: Could not connect to AI. (%v)", f.Cause)
	}
}

func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{f.Kind.String(), f.Message()})
}

func classify(err error) *Failure {
	if errors.Is(err, llm.ErrMalformedResponse) {
		return &Failure{Kind: MalformedUpstreamResponse, Cause: err}
	}
	return &Failure{Kind: TransportFailure, Cause: err}
}

// Outcome is either the model's text or a Failure, never both.
type Outcome struct {
	Text    string
	Failure *Failure
}

func (o Outcome) OK() bool { return o.Failure == nil }

// Display flattens the outcome for rendering.
func (o Outcome) Display() string {
	if o.Failure != nil {
		return o.Failure.Message()
	}
	return o.Text
}

type Request struct {
	Task  TaskKind `json:"task"`
	Input string   `json:"text"`
}

// Result is what the page, the JSON API and the bot render.
type Result struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Task      TaskKind  `json:"task"`
	Input     string    `json:"input"`
	Corrected string    `json:"corrected"`
	Failure   *Failure  `json:"failure,omitempty"`
	Metrics   Metrics   `json:"metrics"`
	Engine    string    `json:"engine"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryWriter persists finished results. Implementations must be safe for concurrent use.
type HistoryWriter interface {
	Save(ctx context.Context, res Result) error
}

// Observer receives one call per upstream round trip.
type Observer interface {
	ObserveCorrection(engine, task, outcome string, elapsed time.Duration)
}

type Requestor struct {
	Engine     llm.Engine
	Generation llm.GenerationConfig
	History    HistoryWriter
	Observer   Observer

	logger *zap.Logger
}

func NewRequestor(engine llm.Engine, logger *zap.Logger) *Requestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requestor{
		Engine:     engine,
		Generation: llm.DefaultGeneration,
		logger:     logger,
	}
}

// Correct sends the task prompt through the default engine.
func (r *Requestor) Correct(ctx context.Context, req Request) Outcome {
	return r.CorrectWith(ctx, r.Engine, req)
}

// CorrectWith never returns an error: every failure ends up in Outcome.Failure.
func (r *Requestor) CorrectWith(ctx context.Context, eng llm.Engine, req Request) Outcome {
	if eng == nil {
		eng = r.Engine
	}
	if eng == nil {
		return Outcome{Failure: &Failure{Kind: TransportFailure, Cause: errors.New("no llm engine configured")}}
	}

	start := time.Now()
	text, err := eng.Generate(ctx, req.Task.Prompt(req.Input), r.Generation)
	elapsed := time.Since(start)

	if err != nil {
		f := classify(err)
		r.logger.Warn("correction failed",
			zap.String("engine", eng.Name()),
			zap.String("model", eng.GetModel()),
			zap.String("task", string(req.Task)),
			zap.String("failure", f.Kind.String()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		r.observe(eng.Name(), req.Task, f.Kind.String(), elapsed)
		return Outcome{Failure: f}
	}

	r.logger.Debug("correction done",
		zap.String("engine", eng.Name()),
		zap.String("task", string(req.Task)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", elapsed),
	)
	r.observe(eng.Name(), req.Task, "ok", elapsed)
	return Outcome{Text: text}
}

// Process runs a correction, computes metrics over the displayed text and records history.
func (r *Requestor) Process(ctx context.Context, source string, req Request) Result {
	return r.ProcessWith(ctx, r.Engine, source, req)
}

func (r *Requestor) ProcessWith(ctx context.Context, eng llm.Engine, source string, req Request) Result {
	if eng == nil {
		eng = r.Engine
	}
	out := r.CorrectWith(ctx, eng, req)
	display := out.Display()

	res := Result{
		ID:        uuid.NewString(),
		Source:    source,
		Task:      req.Task,
		Input:     req.Input,
		Corrected: display,
		Failure:   out.Failure,
		Metrics:   ComputeMetrics(req.Input, display),
		CreatedAt: time.Now().UTC(),
	}
	if eng != nil {
		res.Engine = eng.Name()
		res.Model = eng.GetModel()
	}

	if r.History != nil {
		if err := r.History.Save(ctx, res); err != nil {
			r.logger.Error("history save failed", zap.String("id", res.ID), zap.Error(err))
		}
	}
	return res
}

func (r *Requestor) observe(engine string, task TaskKind, outcome string, elapsed time.Duration) {
	if r.Observer != nil {
		r.Observer.ObserveCorrection(engine, string(task), outcome, elapsed)
	}
}
