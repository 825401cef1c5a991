package engine

import (
	"golang.org/x/time/rate"

	"github.com/meterbridge/jamdeck"
)

// Event is one change notification. Events exist for UI binding only: they
// say that something of a kind changed, and the consumer re-reads the state
// it renders. They carry no payload beyond the kind and the slot concerned,
// so losing one to a full channel is always recoverable.
type Event struct {
	Kind EventKind
	Slot jamdeck.SlotID
}

type EventKind int

const (
	// EventSongs: a song was added or removed.
	EventSongs EventKind = iota
	// EventTransport: master or per-song playing changed.
	EventTransport
	// EventTempo: master tempo, a song tempo, a ratio, or the sync mode
	// changed.
	EventTempo
	// EventMix: a volume, mute or solo changed.
	EventMix
	// EventLoop: loop enable or loop points changed.
	EventLoop
	// EventPreset: a preset was restored.
	EventPreset
	// EventPosition: playback positions advanced. Throttled to uiRate so
	// per-block clock updates fan out at UI rate, not render rate.
	EventPosition
)

var eventKindNames = [...]string{
	"songs", "transport", "tempo", "mix", "loop", "preset", "position",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "unknown"
	}
	return eventKindNames[k]
}

// uiRate bounds position events per second on the bus.
const uiRate = 30

type eventBus struct {
	ch      chan Event
	posRate *rate.Limiter
}

func newEventBus() *eventBus {
	return &eventBus{
		ch:      make(chan Event, 1024),
		posRate: rate.NewLimiter(uiRate, 1),
	}
}

// publish sends without blocking; when the consumer is full the event is
// dropped. The control plane never waits on a listener.
func (b *eventBus) publish(ev Event) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}

// publishThrottled additionally rate-limits, for event kinds produced at
// render rate.
func (b *eventBus) publishThrottled(ev Event) bool {
	if !b.posRate.Allow() {
		return false
	}
	return b.publish(ev)
}
