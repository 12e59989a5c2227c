package app

// State is one of the application states. There is no terminal state.
type State int

const (
	StateInit State = iota
	StateLoading
	StateButtonShimmer
	StateButtonPressed
	StateShowingMessage
	StateReturnToButtons
)

var stateNames = map[State]string{
	StateInit:            "INIT",
	StateLoading:         "LOADING",
	StateButtonShimmer:   "BUTTON_SHIMMER",
	StateButtonPressed:   "BUTTON_PRESSED",
	StateShowingMessage:  "SHOWING_MESSAGE",
	StateReturnToButtons: "RETURN_TO_BUTTONS",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Event ends a state's script and selects the next state.
type Event int

const (
	EventNone Event = iota
	EventInitOK
	EventLoaded
	EventShimmerStarted
	EventPressed
	EventMessageDone
	EventReturned
)

var eventNames = map[Event]string{
	EventNone:           "none",
	EventInitOK:         "init_ok",
	EventLoaded:         "loaded",
	EventShimmerStarted: "shimmer_started",
	EventPressed:        "pressed",
	EventMessageDone:    "message_done",
	EventReturned:       "returned",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{StateInit, EventInitOK}:                  StateLoading,
	{StateLoading, EventLoaded}:               StateButtonShimmer,
	{StateButtonShimmer, EventShimmerStarted}: StateButtonPressed,
	{StateButtonPressed, EventPressed}:        StateShowingMessage,
	{StateShowingMessage, EventMessageDone}:   StateReturnToButtons,
	{StateReturnToButtons, EventReturned}:     StateButtonShimmer,
}

// Transition returns the state reached from s on e. The second result is
// false when the table has no such edge; s is returned unchanged.
func Transition(s State, e Event) (State, bool) {
	next, ok := transitions[edge{s, e}]
	if !ok {
		return s, false
	}
	return next, true
}
