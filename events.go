package lzw

import (
	"go.uber.org/zap"
)

// EventKind names a step in dictionary construction or resolution.
type EventKind uint8

const (
	EventCodeEmitted    EventKind = iota + 1 // encoder wrote a code
	EventEntryInserted                       // a dictionary entry was added
	EventCodeResolved                        // decoder expanded a code
	EventDictionaryFull                      // dictionary reached its capacity and froze
)

func (k EventKind) String() string {
	switch k {
	case EventCodeEmitted:
		return "code emitted"
	case EventEntryInserted:
		return "entry inserted"
	case EventCodeResolved:
		return "code resolved"
	case EventDictionaryFull:
		return "dictionary full"
	default:
		return "unknown"
	}
}

// Event describes one step of a compress or decompress call.
//
// Position is the input index being processed: a symbol index for the
// encoder, a code index for the decoder. Length is the number of symbols
// the code stands for.
type Event struct {
	Kind     EventKind
	Position int
	Code     Code
	Length   int
}

// Observer receives events synchronously from the calling goroutine.
// An observer shared between concurrent calls must be safe for concurrent use.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// LogObserver writes events to a zap logger at debug level.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver returns an observer logging to l.
func NewLogObserver(l *zap.Logger) *LogObserver {
	return &LogObserver{logger: l}
}

// OnEvent implements Observer.
func (o *LogObserver) OnEvent(e Event) {
	if ce := o.logger.Check(zap.DebugLevel, e.Kind.String()); ce != nil {
		ce.Write(
			zap.Int("position", e.Position),
			zap.Uint32("code", uint32(e.Code)),
			zap.Int("length", e.Length),
		)
	}
}
