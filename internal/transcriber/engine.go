package transcriber

import "context"

// EventKind identifies a speech engine stream event.
type EventKind string

const (
	// EventSegment carries a chunk of recognized text.
	EventSegment EventKind = "segment"
	// EventDownload reports model download lifecycle (started, progress,
	// completed). Emitted the first time a model is used.
	EventDownload EventKind = "download"
	// EventError reports an engine-side failure; the run ends after it.
	EventError EventKind = "error"
)

// Event is one item in a speech engine's output stream.
type Event struct {
	Kind     EventKind
	Text     string
	Status   string
	Progress float64
	Message  string
}

// EventSink receives engine events as they arrive. The orchestrator joins
// segment texts and surfaces download progress; it must not block.
type EventSink func(Event)

// Engine drives an external speech-to-text engine over one audio file.
// Implementations stream events to the sink in arrival order and return an
// error when the run failed as a whole.
type Engine interface {
	Transcribe(ctx context.Context, audioPath, model string, sink EventSink) error
}
