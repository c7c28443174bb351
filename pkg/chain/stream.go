package chain

import "context"

// Stream event types.
const (
	EventProgress = "progress"
	EventError    = "error"
)

// StreamEvent is a transient progress notification. It is never
// persisted.
type StreamEvent struct {
	Type     string         `json:"type"`
	Stage    string         `json:"stage,omitempty"`
	Message  string         `json:"message"`
	Progress float64        `json:"progress"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type emitFunc func(ev StreamEvent)

func progressEvent(stage string, progress float64, message string) StreamEvent {
	return StreamEvent{Type: EventProgress, Stage: stage, Progress: progress, Message: message}
}

func progressEventMeta(stage string, progress float64, message string, metadata map[string]any) StreamEvent {
	ev := progressEvent(stage, progress, message)
	ev.Metadata = metadata
	return ev
}

// streamBuffer bounds the event channel so a slow consumer applies
// backpressure instead of growing memory.
const streamBuffer = 16

// Stream is a running streaming orchestration. Consume Events until
// it closes, then call Wait for the terminal result.
type Stream struct {
	events chan StreamEvent
	result *Result
	err    error
	done   chan struct{}
}

// Events returns the progress channel. It is closed after the
// terminal event.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Wait blocks until the run finishes and returns the same ChainResult
// the buffered path would produce. On unrecoverable failure the error
// is non-nil and a terminal error event was already emitted.
func (s *Stream) Wait() (*Result, error) {
	<-s.done
	return s.result, s.err
}

// OrchestrateStream runs the pipeline while publishing milestone
// events. Telemetry persistence is fire-and-forget here so it never
// adds latency to the perceived stream.
func (o *Orchestrator) OrchestrateStream(ctx context.Context, req Request) *Stream {
	s := &Stream{
		events: make(chan StreamEvent, streamBuffer),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)

		emit := func(ev StreamEvent) {
			select {
			case s.events <- ev:
			case <-ctx.Done():
			}
		}

		result, err := o.run(ctx, req, emit)
		if err != nil {
			// Consumers always observe a terminal signal before the
			// error surfaces from Wait.
			emit(StreamEvent{Type: EventError, Message: err.Error(), Progress: 1})
			s.err = err
			return
		}

		s.result = result
		go o.persist(context.Background(), req, result)
	}()

	return s
}
