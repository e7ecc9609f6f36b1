package relay

import "encoding/json"

// Message is the single wire envelope for everything that crosses a
// room socket. Fields are sparse; only the ones relevant to a given
// Type are populated.
type Message struct {
	Type string `json:"type"`

	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Room string `json:"room,omitempty"`

	// State relay. Snap is opaque to the relay; it is fanned out
	// verbatim and only decoded by receiving clients.
	From string          `json:"from,omitempty"`
	Snap json.RawMessage `json:"snap,omitempty"`

	// Dice rolls.
	Die   int `json:"die,omitempty"`
	Value int `json:"value,omitempty"`

	// Seat resume. PlayerKey is the stable identity a reconnecting
	// client reclaims; Token carries it across connections.
	PlayerKey string `json:"playerKey,omitempty"`
	Token     string `json:"token,omitempty"`

	Error string `json:"error,omitempty"`
}

// Message types understood by the hub.
const (
	TypeJoin   = "join"
	TypeJoined = "joined"
	TypeLeave  = "leave"
	TypeState  = "state"
	TypeDice   = "dice"
	TypeError  = "error"
)
