package engine

// State is the dominant lifecycle state of an engine. An engine can have a reply in flight and
// a persist pending at the same time; State reports the most significant one.
type State int

const (
	StateUninitialized State = iota // Created or loading history
	StateIdle
	StateAwaitingReply
	StatePendingPersist // Debounce timer armed
	StatePersisting     // Upsert in flight
	StateDetached
)

var stateNames = map[State]string{
	StateUninitialized:  "uninitialized",
	StateIdle:           "idle",
	StateAwaitingReply:  "awaiting_reply",
	StatePendingPersist: "pending_persist",
	StatePersisting:     "persisting",
	StateDetached:       "detached",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
