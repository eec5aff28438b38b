package review

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
	"go.uber.org/zap"
)

// Pipeline stages.
const (
	StageRetrieving = "retrieving"
	StagePrompting  = "prompting"
	StageGenerating = "generating"
	StageValidating = "validating"
	StagePolicy     = "policy"
	StageAssembled  = "assembled"
)

// Lifecycle events.
const (
	eventRetrieved = "retrieved"
	eventPrompted  = "prompted"
	eventGenerated = "generated"
	eventFailed    = "failed"
	eventValidated = "validated"
	eventAssembled = "assembled"
)

type lifecycleContext struct {
	RequestID string
}

// lifecycle tracks the stage of one review run and logs every transition.
type lifecycle struct {
	interpreter *statekit.Interpreter[lifecycleContext]
	logger      *zap.Logger
}

func newLifecycle(requestID string, logger *zap.Logger) (*lifecycle, error) {
	builder := statekit.NewMachine[lifecycleContext]("review-lifecycle").
		WithInitial(statekit.StateID(StageRetrieving)).
		WithContext(lifecycleContext{RequestID: requestID})

	builder.State(StageRetrieving).
		On(eventRetrieved).Target(StagePrompting).
		Done()

	builder.State(StagePrompting).
		On(eventPrompted).Target(StageGenerating).
		Done()

	// A multi-rule model failure skips straight to assembly.
	builder.State(StageGenerating).
		On(eventGenerated).Target(StageValidating).
		On(eventFailed).Target(StageAssembled).
		Done()

	builder.State(StageValidating).
		On(eventValidated).Target(StagePolicy).
		Done()

	builder.State(StagePolicy).
		On(eventAssembled).Target(StageAssembled).
		Done()

	builder.State(StageAssembled).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building review lifecycle: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &lifecycle{interpreter: interpreter, logger: logger}, nil
}

// advance sends event and logs the resulting transition. An event that is
// not valid in the current stage leaves the stage unchanged and is logged.
func (l *lifecycle) advance(event string) {
	if l == nil {
		return
	}
	before := l.Stage()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := l.Stage()
	if before == after {
		l.logger.Warn("ignored lifecycle event",
			zap.String("event", event),
			zap.String("stage", before),
		)
		return
	}
	l.logger.Debug("stage transition",
		zap.String("from", before),
		zap.String("to", after),
	)
}

// Stage returns the current stage name.
func (l *lifecycle) Stage() string {
	if l == nil {
		return ""
	}
	return string(l.interpreter.State().Value)
}
