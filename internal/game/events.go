package game

import "github.com/robalobadob/tradeloop/internal/trade"

// EventType names an engine -> presentation event.
type EventType string

const (
	EventOptionsChanged  EventType = "options_changed"
	EventRoundResolved   EventType = "round_resolved"
	EventLoopClosed      EventType = "loop_closed"
	EventLinkEstablished EventType = "link_established"
	EventAllLinksCleared EventType = "all_links_cleared"
)

// Event is emitted synchronously from inside engine transitions.
// Payload is one of the *Payload types below.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type OptionsChangedPayload struct {
	Current     string            `json:"current"`
	CurrentISO  string            `json:"currentIso"`
	Coordinates trade.Coordinates `json:"coordinates"`
	StreakStart string            `json:"streakStart,omitempty"`
	Options     []string          `json:"options"`
}

type RoundResolvedPayload struct {
	Correct bool        `json:"correct"`
	Detail  RoundDetail `json:"detail"`
}

type LoopClosedPayload struct {
	FinalScore   float64 `json:"finalScore"`
	StreakLength int     `json:"streakLength"`
	StartCountry string  `json:"startCountry"`
}

type LinkEstablishedPayload struct {
	From    string            `json:"from"`
	To      string            `json:"to"`
	FromPos trade.Coordinates `json:"fromPos"`
	ToPos   trade.Coordinates `json:"toPos"`
	Product string            `json:"product"`
}

type AllLinksClearedPayload struct{}

// Listener receives engine events. Implementations must not call back
// into the engine and must not block.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }
