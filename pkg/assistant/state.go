package assistant

// State is the position of a command in the pipeline.
type State int

const (
	Idle State = iota
	Classifying
	ToolSelecting
	ArgResolving
	Executing
	Responding
	Speaking
)

var stateNames = [...]string{
	Idle:          "idle",
	Classifying:   "classifying",
	ToolSelecting: "tool_selecting",
	ArgResolving:  "arg_resolving",
	Executing:     "executing",
	Responding:    "responding",
	Speaking:      "speaking",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
