package copilot

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/copilotd/internal/oracle"
)

const instrumentationName = "github.com/fyrsmithlabs/copilotd/internal/copilot"

// handlerFunc is a branch handler: it makes one completion call and
// appends exactly one assistant message to the turn's conversation.
type handlerFunc func(ctx context.Context, state *TurnState) error

// Workflow dispatches one turn: the intent classifier runs first, then
// exactly one branch handler selected from the label. There are no
// cycles and no retries; a turn always completes in two node executions.
type Workflow struct {
	oracle oracle.Client
	logger *zap.Logger
	tracer oteltrace.Tracer
	meter  metric.Meter

	callDuration metric.Float64Histogram
	callErrors   metric.Int64Counter
}

// NewWorkflow creates a workflow with an injected completion client.
func NewWorkflow(client oracle.Client, logger *zap.Logger) (*Workflow, error) {
	if client == nil {
		return nil, fmt.Errorf("oracle client cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for dispatch tracking")
	}

	w := &Workflow{
		oracle: client,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	w.initMetrics()

	return w, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (w *Workflow) initMetrics() {
	var err error

	w.callDuration, err = w.meter.Float64Histogram(
		"copilotd.oracle.call_duration_seconds",
		metric.WithDescription("Duration of completion calls by graph node"),
		metric.WithUnit("s"),
	)
	if err != nil {
		w.logger.Warn("failed to create call duration histogram", zap.Error(err))
	}

	w.callErrors, err = w.meter.Int64Counter(
		"copilotd.oracle.errors_total",
		metric.WithDescription("Total number of failed completion calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		w.logger.Warn("failed to create call error counter", zap.Error(err))
	}
}

// generate runs one completion call, tagging the span and latency
// histogram with the graph node that issued it. The callee's error is
// returned as-is so each call site applies its own wrap.
func (w *Workflow) generate(ctx context.Context, node string, messages []oracle.Message) (*oracle.Result, error) {
	ctx, span := w.tracer.Start(ctx, "oracle.generate",
		oteltrace.WithAttributes(attribute.String("node", node)))
	defer span.End()

	start := time.Now()
	result, err := w.oracle.Generate(ctx, messages)

	if w.callDuration != nil {
		w.callDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("node", node)))
	}

	if err != nil {
		if w.callErrors != nil {
			w.callErrors.Add(ctx, 1,
				metric.WithAttributes(attribute.String("node", node)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return result, nil
}

// Run executes one turn against the working state.
//
// On success exactly one assistant message has been appended, whichever
// branch ran; the controller branch may additionally have stored one
// pending patch. A completion fault from either node aborts the turn and
// propagates to the caller untouched.
func (w *Workflow) Run(ctx context.Context, state *TurnState) error {
	if state == nil {
		return fmt.Errorf("turn state cannot be nil")
	}

	ctx, span := w.tracer.Start(ctx, "copilot.turn")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", state.SessionID))

	if err := w.classifyIntent(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("intent", state.Intent))

	name, handler := w.routeIntent(state.Intent)
	w.logger.Debug("intent routed",
		zap.String("intent", state.Intent),
		zap.String("handler", name),
		zap.String("session_id", state.SessionID),
	)

	if err := handler(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
